package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cron/overdue-alerts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("X-Cron-Token") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		if r.URL.Query().Get("mode") == "async" {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"accepted","result":"overdue-alerts digest queued"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","result":"Sent 2 of 2 overdue task alert emails","run_id":"r-1"}`))
	})
	mux.HandleFunc("/cron/inspection-reminders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"list trees: db down"}`))
	})
	mux.HandleFunc("/api/v1/digests/overdue-alerts/preview", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer staff-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		switch r.URL.Query().Get("format") {
		case "text":
			_, _ = w.Write([]byte("plain digest"))
		default:
			_, _ = w.Write([]byte(`{"report":"overdue-alerts","recipient":"sam@trees.test","subject":"[Tree Tracker] 3 overdue tasks need attention","total":3,"shown":1,"rows":[{"id":9,"zone":"Riverside","label":"Prune oak","level":"urgent","owner":"Unassigned","due_date":"2024-03-07","staleness":"3 days"}],"generated_at":"2024-03-10T08:00:00Z"}`))
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","version":"dev","db":"ok","cache":"disabled"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Trigger(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()

	res, err := NewTrackerClient(srv.URL+"/", "", "s3cret").Trigger(ctx, "overdue-alerts", false)
	require.NoError(t, err)
	assert.Equal(t, "Sent 2 of 2 overdue task alert emails", res.Result)
	assert.Equal(t, "r-1", res.RunID)

	res, err = NewTrackerClient(srv.URL, "", "s3cret").Trigger(ctx, "overdue-alerts", true)
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Status)

	_, err = NewTrackerClient(srv.URL, "", "wrong").Trigger(ctx, "overdue-alerts", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (401): Unauthorized")

	_, err = NewTrackerClient(srv.URL, "", "s3cret").Trigger(ctx, "inspection-reminders", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list trees: db down")
}

func TestClient_Preview(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	c := NewTrackerClient(srv.URL, "staff-token", "")

	p, err := c.Preview(ctx, "overdue-alerts")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, "Prune oak", p.Rows[0].Label)

	body, err := c.PreviewRaw(ctx, "overdue-alerts", "text")
	require.NoError(t, err)
	assert.Equal(t, "plain digest", body)

	_, err = NewTrackerClient(srv.URL, "", "").Preview(ctx, "overdue-alerts")
	assert.Error(t, err)
}

func TestPrintPreview_TruncationNote(t *testing.T) {
	var buf bytes.Buffer
	printPreview(&buf, PreviewResponse{Subject: "S", Total: 3, Shown: 1, Rows: []PreviewRow{{ID: 9, Label: "Prune oak"}}})
	assert.Contains(t, buf.String(), "Prune oak")
	assert.Contains(t, buf.String(), "Showing 1 of 3.")
}

func TestClient_Health(t *testing.T) {
	srv := newAPI(t)
	h, err := NewTrackerClient(srv.URL, "", "").Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "disabled", h.Cache)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "abcd****mnop", maskToken("abcdefghmnop"))
}

func TestTriggerCommand(t *testing.T) {
	srv := newAPI(t)
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--api-url", srv.URL, "--cron-token", "s3cret", "digest", "trigger", "overdue-alerts"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Sent 2 of 2 overdue task alert emails")
	assert.Contains(t, out.String(), "Run: r-1")
}
