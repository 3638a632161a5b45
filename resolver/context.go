// Package resolver разрешает свободные текстовые наименования в
// канонические записи людей и организаций, не создавая дублей.
package resolver

import (
	"fmt"
	"log/slog"

	"ipregistry/classification"
	"ipregistry/database"
	"ipregistry/normalization"
)

// Context состояние разрешения сущностей в рамках одного запуска импорта.
// Все кэши живут только внутри запуска и передаются явно, а не через
// глобальные переменные: жизненный цикл состояния виден по сигнатурам.
type Context struct {
	db       *database.RegistryDB
	detector *classification.Detector
	dryRun   bool
	logger   *slog.Logger

	personsByName map[string]*database.Person
	orgsByName    map[string]*database.Organization

	// Выделение суррогатных id как max+1. Дыры не заполняются,
	// параллельные писатели не поддерживаются.
	nextPersonID int64
	nextOrgID    int64

	personSlugs map[string]bool
	orgSlugs    map[string]bool

	// Префиксный индекс нормальных форм названий организаций,
	// строится лениво при первом нечетком поиске.
	orgPrefixIndex map[string]*database.Organization
}

// NewContext создает контекст разрешения для одного запуска импорта.
func NewContext(db *database.RegistryDB, detector *classification.Detector, dryRun bool) (*Context, error) {
	maxPersonID, err := db.MaxPersonID()
	if err != nil {
		return nil, fmt.Errorf("failed to read max person id: %w", err)
	}
	maxOrgID, err := db.MaxOrganizationID()
	if err != nil {
		return nil, fmt.Errorf("failed to read max organization id: %w", err)
	}

	return &Context{
		db:            db,
		detector:      detector,
		dryRun:        dryRun,
		logger:        slog.Default().With("component", "resolver"),
		personsByName: make(map[string]*database.Person),
		orgsByName:    make(map[string]*database.Organization),
		nextPersonID:  maxPersonID + 1,
		nextOrgID:     maxOrgID + 1,
		personSlugs:   make(map[string]bool),
		orgSlugs:      make(map[string]bool),
	}, nil
}

// Detector возвращает детектор типа сущности, связанный с контекстом.
func (ctx *Context) Detector() *classification.Detector {
	return ctx.detector
}

// DryRun сообщает, работает ли контекст без записи в базу.
func (ctx *Context) DryRun() bool {
	return ctx.dryRun
}

// allocPersonID выделяет следующий суррогатный id человека.
func (ctx *Context) allocPersonID() int64 {
	id := ctx.nextPersonID
	ctx.nextPersonID++
	return id
}

// allocOrgID выделяет следующий суррогатный id организации.
func (ctx *Context) allocOrgID() int64 {
	id := ctx.nextOrgID
	ctx.nextOrgID++
	return id
}

// uniquePersonSlug строит слаг, свободный и в базе, и среди слагов,
// выделенных в этом запуске. Коллизия разрешается числовым суффиксом.
func (ctx *Context) uniquePersonSlug(base string) (string, error) {
	return ctx.uniqueSlug(base, ctx.personSlugs, ctx.db.PersonSlugExists)
}

func (ctx *Context) uniqueOrgSlug(base string) (string, error) {
	return ctx.uniqueSlug(base, ctx.orgSlugs, ctx.db.OrganizationSlugExists)
}

func (ctx *Context) uniqueSlug(base string, taken map[string]bool, existsInDB func(string) (bool, error)) (string, error) {
	if base == "" {
		base = "entity"
	}
	// Слаги в базе ограничены разумной длиной
	if runes := []rune(base); len(runes) > 80 {
		base = string(runes[:80])
	}

	candidate := base
	for suffix := 2; ; suffix++ {
		if !taken[candidate] {
			exists, err := existsInDB(candidate)
			if err != nil {
				return "", err
			}
			if !exists {
				taken[candidate] = true
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

// buildOrgPrefixIndex строит индекс нормальных форм существующих
// организаций для префиксного сопоставления (первые 30 символов).
func (ctx *Context) buildOrgPrefixIndex() error {
	if ctx.orgPrefixIndex != nil {
		return nil
	}

	orgs, err := ctx.db.AllOrganizations()
	if err != nil {
		return fmt.Errorf("failed to load organizations for prefix index: %w", err)
	}

	ctx.orgPrefixIndex = make(map[string]*database.Organization, len(orgs))
	for _, org := range orgs {
		prefix := orgNamePrefix(org.Name)
		if prefix == "" {
			continue
		}
		if _, exists := ctx.orgPrefixIndex[prefix]; !exists {
			ctx.orgPrefixIndex[prefix] = org
		}
	}
	return nil
}

// orgNamePrefix возвращает первые 30 символов поисковой формы названия.
func orgNamePrefix(name string) string {
	normalized := normalization.NormalizeOrgName(name)
	runes := []rune(normalized)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return string(runes)
}
