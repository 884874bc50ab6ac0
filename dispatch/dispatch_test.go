package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/log"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

func newTestSink(t *testing.T, url string, retries int) (*WebhookSink, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.NewLogger(log.RunContext{RunID: "dispatch-test"}).WithOutput(&buf).Sugar()
	sink, err := New(Config{URL: url, Timeout: 2 * time.Second, Retries: retries}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sink, &buf
}

func TestHandleDeliversEnvelopeOnSuccess(t *testing.T) {
	var received Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, _ := newTestSink(t, srv.URL, 3)
	defer sink.Close()

	sink.Handle(types.Action{
		Kind: types.ActionPlaySound,
		Payload: types.PlaySoundPayload{
			Sound:    "bell",
			BlockKey: types.BlockKey("blk:1:1:1"),
		},
	})

	if received.Kind != types.ActionPlaySound {
		t.Errorf("Kind = %v, want %v", received.Kind, types.ActionPlaySound)
	}
}

func TestHandleRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, buf := newTestSink(t, srv.URL, 3)
	defer sink.Close()

	sink.Handle(types.Action{Kind: types.ActionEmitMetric, Payload: types.EmitMetricPayload{}})

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server received %d calls, want 3", got)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no warnings logged after eventual success, got %q", buf.String())
	}
}

func TestHandleDoesNotRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink, buf := newTestSink(t, srv.URL, 3)
	defer sink.Close()

	sink.Handle(types.Action{Kind: types.ActionError})

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server received %d calls, want 1 (no retry on 4xx)", got)
	}
	if buf.Len() == 0 {
		t.Error("expected a warning logged for the failed delivery")
	}
}

func TestHandleLogsAfterExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink, buf := newTestSink(t, srv.URL, 1)
	defer sink.Close()

	sink.Handle(types.Action{Kind: types.ActionSetRoundsDisplay})

	if buf.Len() == 0 {
		t.Error("expected a warning logged after exhausting retries")
	}
}

func TestNewRejectsEmptyURL(t *testing.T) {
	logger := log.NewLogger(log.RunContext{RunID: "x"}).Sugar()
	if _, err := New(Config{}, logger); err == nil {
		t.Fatal("expected an error for an empty URL")
	}
}
