package cli

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/faceaudit/faceaudit/internal/session"
)

// setupStatusTest stubs /api/status/{id} with a fixed response, redirects the
// session directory to a temp home, and points the command at the stub. It
// returns a store seeded with a tracked job.
func setupStatusTest(t *testing.T, code int, body string) *session.Store {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/api/status/{jobID}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	prevURL, prevCfg := serverURL, cfgFile
	serverURL, cfgFile = srv.URL, ""
	t.Cleanup(func() { serverURL, cfgFile = prevURL, prevCfg })

	store := session.NewStore(session.DefaultSessionFilePath())
	if err := store.Save(session.Record{JobID: "job-1", DisplayName: "photos.csv"}); err != nil {
		t.Fatal(err)
	}
	return store
}

func runStatus(t *testing.T) {
	t.Helper()
	cmd := newStatusCmd()
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestStatusFailedJobClearsSession(t *testing.T) {
	store := setupStatusTest(t, http.StatusOK, `{"status":"failed","error":"bad CSV"}`)

	runStatus(t)

	rec, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("Session record survived a failed job: %+v", rec)
	}
}

func TestStatusActiveJobKeepsSession(t *testing.T) {
	store := setupStatusTest(t, http.StatusOK,
		`{"status":"processing","processed":3,"rows_to_process":10}`)

	runStatus(t)

	rec, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.JobID != "job-1" {
		t.Errorf("Session record = %+v, want job-1 kept", rec)
	}
}

func TestStatusUnknownJobClearsSession(t *testing.T) {
	store := setupStatusTest(t, http.StatusNotFound, `{"error":"Job not found"}`)

	runStatus(t)

	rec, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("Session record survived an expired job: %+v", rec)
	}
}
