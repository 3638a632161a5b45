// Package scraper обновляет статус правовой охраны объектов ИС по
// страницам открытого реестра. Запросы строго последовательны и
// ограничены по частоте: источник агрессивно банит параллельные обходы.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ipregistry/database"
	"ipregistry/normalization"
)

// Config параметры обхода реестра.
type Config struct {
	BaseURL     string        // шаблон адреса карточки, номер подставляется в конец
	Delay       time.Duration // минимальная пауза между запросами
	Jitter      time.Duration // случайная добавка к паузе
	Timeout     time.Duration // таймаут одного запроса
	MaxRequests int           // жесткий потолок запросов (для тестов)
	UserAgent   string
}

// DefaultConfig параметры по умолчанию.
func DefaultConfig() Config {
	return Config{
		Delay:     3 * time.Second,
		Jitter:    2 * time.Second,
		Timeout:   30 * time.Second,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) ipregistry-updater",
	}
}

// PageStatus сведения со страницы карточки объекта.
type PageStatus struct {
	RegistrationNumber string
	Actual             bool
	ExpirationDate     *time.Time
}

// UpdateStats итоги прогона обновления.
type UpdateStats struct {
	Requested int
	Updated   int
	Unchanged int
	Errors    int
}

// RegistryScraper последовательный обходчик карточек реестра.
type RegistryScraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	rnd     *rand.Rand
	logger  *slog.Logger
}

// New создает обходчик с лимитером частоты запросов.
func New(cfg Config) *RegistryScraper {
	if cfg.Delay <= 0 {
		cfg.Delay = 3 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RegistryScraper{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  slog.Default().With("component", "registry_scraper"),
	}
}

// FetchStatus загружает и разбирает карточку одного объекта.
func (s *RegistryScraper) FetchStatus(ctx context.Context, regNumber string) (*PageStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+regNumber, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", regNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, regNumber)
	}

	status, err := ParseStatusPage(resp.Body)
	if err != nil {
		return nil, err
	}
	status.RegistrationNumber = regNumber
	return status, nil
}

// ParseStatusPage извлекает статус охраны и дату прекращения из HTML
// карточки. Карточки реестра сверстаны таблицами ключ-значение.
func ParseStatusPage(r io.Reader) (*PageStatus, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status page: %w", err)
	}

	status := &PageStatus{}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())

		switch {
		case strings.Contains(key, "статус"):
			status.Actual = strings.Contains(strings.ToLower(value), "действует")
		case strings.Contains(key, "прекращени"), strings.Contains(key, "истечени"):
			status.ExpirationDate = normalization.ParseDate(value)
		}
	})

	// Запасной вариант: статус вынесен в отдельный блок
	if statusText := doc.Find(".status, #StatusR").First().Text(); statusText != "" {
		status.Actual = strings.Contains(strings.ToLower(statusText), "действует")
	}

	return status, nil
}

// UpdateObjects последовательно обходит карточки и обновляет флаг
// actual и дату прекращения в базе. Ошибки отдельных карточек
// считаются и не прерывают обход.
func (s *RegistryScraper) UpdateObjects(ctx context.Context, db *database.RegistryDB, ipType string, regNumbers []string, dryRun bool) (*UpdateStats, error) {
	stats := &UpdateStats{}

	existing, err := db.GetIPObjectsByRegNumbers(ipType, regNumbers, 500)
	if err != nil {
		return stats, fmt.Errorf("failed to load objects for update: %w", err)
	}

	var updates []database.IPObjectUpdate
	for _, regNumber := range regNumbers {
		if s.cfg.MaxRequests > 0 && stats.Requested >= s.cfg.MaxRequests {
			s.logger.Info("request ceiling reached", "max_requests", s.cfg.MaxRequests)
			break
		}

		current, ok := existing[regNumber]
		if !ok {
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return stats, err
		}
		if s.cfg.Jitter > 0 {
			select {
			case <-time.After(time.Duration(s.rnd.Int63n(int64(s.cfg.Jitter)))):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}

		stats.Requested++
		status, err := s.FetchStatus(ctx, regNumber)
		if err != nil {
			stats.Errors++
			s.logger.Warn("failed to fetch card", "reg_number", regNumber, "error", err)
			continue
		}

		fields := make(map[string]interface{})
		if current.Actual != status.Actual {
			fields["actual"] = status.Actual
		}
		if status.ExpirationDate != nil &&
			(current.ExpirationDate == nil || !current.ExpirationDate.Equal(*status.ExpirationDate)) {
			fields["expiration_date"] = status.ExpirationDate
		}

		if len(fields) == 0 {
			stats.Unchanged++
			continue
		}
		updates = append(updates, database.IPObjectUpdate{ID: current.ID, Fields: fields})
	}

	if dryRun {
		stats.Updated = len(updates)
		return stats, nil
	}

	updated, err := db.UpdateIPObjectsBatch(updates, 500)
	if err != nil {
		return stats, fmt.Errorf("failed to apply status updates: %w", err)
	}
	stats.Updated = updated

	return stats, nil
}
