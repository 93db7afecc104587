package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ai4p/usagedash/internal/config"
	"github.com/ai4p/usagedash/internal/history"
)

type fakeRefresher struct {
	busy  bool
	calls chan string
}

func (f *fakeRefresher) Busy() bool { return f.busy }

func (f *fakeRefresher) Refresh(ctx context.Context, trigger string) (*history.Run, error) {
	if f.calls != nil {
		f.calls <- trigger
	}
	return &history.Run{Status: history.StatusOK}, nil
}

func testServer(t *testing.T, pipe Refresher, store *history.Store) (*Server, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.DataDir = t.TempDir()
	return New(cfg, pipe, store, nil), cfg
}

func TestDashboardRoute(t *testing.T) {
	s, cfg := testServer(t, &fakeRefresher{}, nil)
	if err := os.WriteFile(cfg.OutputPath(), []byte("<html>ai4p</html>"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "ai4p") {
		t.Errorf("body = %q", body)
	}
}

func TestDashboardNotPublished(t *testing.T) {
	s, _ := testServer(t, &fakeRefresher{}, nil)

	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestReportFileServing(t *testing.T) {
	s, cfg := testServer(t, &fakeRefresher{}, nil)
	if err := os.WriteFile(filepath.Join(cfg.Output.Dir, "rows.json"), []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Output.Dir, ".secret"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(s.router())
	defer ts.Close()

	cases := []struct {
		path string
		want int
	}{
		{"/rows.json", http.StatusOK},
		{"/missing.png", http.StatusNotFound},
		{"/.secret", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, err := http.Get(ts.URL + tc.path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, resp.StatusCode, tc.want)
		}
	}
}

func TestReportFileTraversal(t *testing.T) {
	s, cfg := testServer(t, &fakeRefresher{}, nil)
	outside := filepath.Join(filepath.Dir(cfg.Output.Dir), "outside.txt")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// Encoded separators must not escape the output dir.
	req := httptest.NewRequest("GET", "/..%2Foutside.txt", nil)
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("traversal request = %d, want 404", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t, &fakeRefresher{}, nil)

	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" {
		t.Errorf("Status = %q", health.Status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"), 10)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	now := time.Now()
	err = store.Record(context.Background(), &history.Run{
		Trigger:     history.TriggerCLI,
		Status:      history.StatusOK,
		StartedAt:   now.Add(-time.Minute),
		FinishedAt:  now,
		RowsMatched: 4,
		OrgUsage:    "88%",
	})
	if err != nil {
		t.Fatal(err)
	}

	s, cfg := testServer(t, &fakeRefresher{}, store)
	if err := os.WriteFile(cfg.OutputPath(), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Refreshing {
		t.Error("Refreshing should be false")
	}
	if status.Report == nil || status.Report.SizeBytes == 0 {
		t.Errorf("Report = %+v, want stat of the published file", status.Report)
	}
	if status.LastRun == nil || status.LastRun.Status != history.StatusOK {
		t.Errorf("LastRun = %+v", status.LastRun)
	}
	if status.LastSuccess == nil || status.LastSuccess.OrgUsage != "88%" {
		t.Errorf("LastSuccess = %+v", status.LastSuccess)
	}
	if status.NextRun != "" {
		t.Errorf("NextRun = %q, want empty without a scheduler", status.NextRun)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"), 10)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		err := store.Record(context.Background(), &history.Run{
			Trigger:    history.TriggerSchedule,
			Status:     history.StatusOK,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	s, _ := testServer(t, &fakeRefresher{}, store)
	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/history?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var runs []history.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Error("runs should be newest first")
	}
}

func TestRefreshConflict(t *testing.T) {
	s, _ := testServer(t, &fakeRefresher{busy: true}, nil)
	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestRefreshAccepted(t *testing.T) {
	pipe := &fakeRefresher{calls: make(chan string, 1)}
	s, _ := testServer(t, pipe, nil)
	ts := httptest.NewServer(s.router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	select {
	case trigger := <-pipe.calls:
		if trigger != history.TriggerAPI {
			t.Errorf("trigger = %q, want %q", trigger, history.TriggerAPI)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was never started")
	}
}

func TestLiveReloadOnPublish(t *testing.T) {
	s, cfg := testServer(t, &fakeRefresher{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)
	go s.watchOutput(ctx)
	time.Sleep(100 * time.Millisecond) // let the watcher attach

	ts := httptest.NewServer(s.router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(100 * time.Millisecond)

	// Publish the way the renderer does: write a temp file, then rename.
	tmp := filepath.Join(cfg.Output.Dir, "report.tmp")
	if err := os.WriteFile(tmp, []byte("<html>v2</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, cfg.OutputPath()); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "reload" {
		t.Errorf("message = %q, want reload", msg)
	}
}
