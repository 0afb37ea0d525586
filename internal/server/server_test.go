package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/scheduler"
	testingpkg "github.com/aristath/playground/internal/testing"
)

type signalJob struct {
	done chan struct{}
}

func (j *signalJob) Name() string { return "ledger_daily_snapshot" }

func (j *signalJob) Run() error {
	close(j.done)
	return nil
}

type pingModule struct{}

func (pingModule) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func newServer(t *testing.T, jobs ...scheduler.Job) *Server {
	t.Helper()
	db := testingpkg.NewTestDB(t, database.NameLedger)
	return New(Config{
		Log:       zerolog.Nop(),
		Port:      0,
		DevMode:   true,
		DataDir:   t.TempDir(),
		Databases: []*database.DB{db},
		Modules:   []RouteRegistrar{pingModule{}},
		Jobs:      jobs,
	})
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/health", "/api/health"} {
		rec, body := do(t, s, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", body["status"])
	}
}

func TestSystemStatus(t *testing.T) {
	s := newServer(t)
	rec, body := do(t, s, http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "healthy", body["status"])
	dbs, ok := body["databases"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", dbs["ledger"])
	assert.NotEmpty(t, body["go_version"])
}

func TestDatabaseStats(t *testing.T) {
	s := newServer(t)
	rec, body := do(t, s, http.MethodGet, "/api/system/databases")
	require.Equal(t, http.StatusOK, rec.Code)

	dbs, ok := body["databases"].([]interface{})
	require.True(t, ok)
	require.Len(t, dbs, 1)
	first := dbs[0].(map[string]interface{})
	assert.Equal(t, "ledger", first["name"])
	assert.Greater(t, first["page_size"], 0.0)
}

func TestModulesAreMounted(t *testing.T) {
	rec, _ := do(t, newServer(t), http.MethodGet, "/api/ping")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestJobs(t *testing.T) {
	job := &signalJob{done: make(chan struct{})}
	s := newServer(t, job)

	rec, body := do(t, s, http.MethodGet, "/api/jobs/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"ledger_daily_snapshot"}, body["jobs"])

	rec, _ = do(t, s, http.MethodPost, "/api/jobs/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = do(t, s, http.MethodPost, "/api/jobs/ledger_daily_snapshot")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "accepted", body["status"])

	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run")
	}
}
