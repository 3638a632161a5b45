package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ipregistry/database"
)

const activeCardHTML = `<html><body><table>
<tr><td>Номер регистрации</td><td>RU12345</td></tr>
<tr><td>Статус</td><td>Действует</td></tr>
</table></body></html>`

const expiredCardHTML = `<html><body><table>
<tr><td>Статус</td><td>Прекратил действие</td></tr>
<tr><td>Дата прекращения действия</td><td>15.03.2021</td></tr>
</table></body></html>`

const blockStatusHTML = `<html><body>
<div id="StatusR">Патент действует</div>
</body></html>`

func TestParseStatusPageActive(t *testing.T) {
	status, err := ParseStatusPage(strings.NewReader(activeCardHTML))
	require.NoError(t, err)
	require.True(t, status.Actual)
	require.Nil(t, status.ExpirationDate)
}

func TestParseStatusPageExpired(t *testing.T) {
	status, err := ParseStatusPage(strings.NewReader(expiredCardHTML))
	require.NoError(t, err)
	require.False(t, status.Actual)
	require.NotNil(t, status.ExpirationDate)
	require.Equal(t, 2021, status.ExpirationDate.Year())
}

func TestParseStatusPageBlockFallback(t *testing.T) {
	status, err := ParseStatusPage(strings.NewReader(blockStatusHTML))
	require.NoError(t, err)
	require.True(t, status.Actual)
}

func TestParseStatusPageEmpty(t *testing.T) {
	status, err := ParseStatusPage(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)
	require.False(t, status.Actual)
	require.Nil(t, status.ExpirationDate)
}

func TestFetchStatus(t *testing.T) {
	var gotUA atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		if strings.HasSuffix(r.URL.Path, "RU12345") {
			w.Write([]byte(activeCardHTML))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	s := New(cfg)

	status, err := s.FetchStatus(context.Background(), "RU12345")
	require.NoError(t, err)
	require.True(t, status.Actual)
	require.Equal(t, "RU12345", status.RegistrationNumber)
	require.Equal(t, cfg.UserAgent, gotUA.Load())

	_, err = s.FetchStatus(context.Background(), "RU404")
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func newScraperDB(t *testing.T) *database.RegistryDB {
	t.Helper()
	db, err := database.NewRegistryDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertScraperObject(t *testing.T, db *database.RegistryDB, regNumber string, actual bool) *database.IPObject {
	t.Helper()
	_, err := db.InsertIPObjectsBulk([]*database.IPObject{
		{IPType: "invention", RegistrationNumber: regNumber, Name: "объект", Actual: actual},
	}, 10)
	require.NoError(t, err)

	objects, err := db.GetIPObjectsByRegNumbers("invention", []string{regNumber}, 10)
	require.NoError(t, err)
	return objects[regNumber]
}

func TestUpdateObjects(t *testing.T) {
	db := newScraperDB(t)
	obj := insertScraperObject(t, db, "RU12345", true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(expiredCardHTML))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	cfg.Jitter = 0
	s := New(cfg)

	stats, err := s.UpdateObjects(context.Background(), db, "invention", []string{"RU12345"}, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Requested)
	require.Equal(t, 1, stats.Updated)
	require.Zero(t, stats.Errors)

	objects, err := db.GetIPObjectsByRegNumbers("invention", []string{"RU12345"}, 10)
	require.NoError(t, err)
	updated := objects["RU12345"]
	require.Equal(t, obj.ID, updated.ID)
	require.False(t, updated.Actual)
	require.NotNil(t, updated.ExpirationDate)
}

func TestUpdateObjectsUnchanged(t *testing.T) {
	db := newScraperDB(t)
	insertScraperObject(t, db, "RU12345", true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(activeCardHTML))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	cfg.Jitter = 0
	s := New(cfg)

	stats, err := s.UpdateObjects(context.Background(), db, "invention", []string{"RU12345"}, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Unchanged)
	require.Zero(t, stats.Updated)
}

func TestUpdateObjectsRequestCeiling(t *testing.T) {
	db := newScraperDB(t)
	insertScraperObject(t, db, "RU1", true)
	insertScraperObject(t, db, "RU2", true)
	insertScraperObject(t, db, "RU3", true)

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(activeCardHTML))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	cfg.Jitter = 0
	cfg.MaxRequests = 2
	s := New(cfg)

	stats, err := s.UpdateObjects(context.Background(), db, "invention", []string{"RU1", "RU2", "RU3"}, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Requested)
	require.Equal(t, int64(2), requests.Load())
}

func TestUpdateObjectsErrorsAreCounted(t *testing.T) {
	db := newScraperDB(t)
	insertScraperObject(t, db, "RU1", true)
	insertScraperObject(t, db, "RU2", true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "RU1") {
			http.Error(w, "внутренняя ошибка", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(expiredCardHTML))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	cfg.Jitter = 0
	s := New(cfg)

	stats, err := s.UpdateObjects(context.Background(), db, "invention", []string{"RU1", "RU2"}, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Errors)
	require.Equal(t, 1, stats.Updated)
}

func TestUpdateObjectsDryRun(t *testing.T) {
	db := newScraperDB(t)
	insertScraperObject(t, db, "RU12345", true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(expiredCardHTML))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	cfg.Jitter = 0
	s := New(cfg)

	stats, err := s.UpdateObjects(context.Background(), db, "invention", []string{"RU12345"}, true)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Updated)

	objects, err := db.GetIPObjectsByRegNumbers("invention", []string{"RU12345"}, 10)
	require.NoError(t, err)
	require.True(t, objects["RU12345"].Actual, "dry run must not touch the database")
}

func TestUpdateObjectsSkipsUnknownNumbers(t *testing.T) {
	db := newScraperDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no requests expected for numbers missing from the database")
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL + "/card/"
	cfg.Delay = time.Millisecond
	cfg.Jitter = 0
	s := New(cfg)

	stats, err := s.UpdateObjects(context.Background(), db, "invention", []string{"НЕИЗВЕСТНЫЙ"}, false)
	require.NoError(t, err)
	require.Zero(t, stats.Requested)
}
