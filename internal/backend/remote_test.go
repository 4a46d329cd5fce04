package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteContextSubmitAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs/v2":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]string{"id": "job-123"},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/v2/job-123":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]string{"status": "RUNNING"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	rc := NewRemoteContext(srv.URL, "token123")
	require.NoError(t, rc.Initialize(context.Background()))

	id, err := rc.SubmitJob(context.Background(), map[string]string{"name": "align"})
	require.NoError(t, err)
	assert.Equal(t, "job-123", id)

	state, err := rc.JobStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
}

func TestRemoteContextRetriesOn503ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"id": "job-ok"},
		})
	}))
	defer srv.Close()

	rc := NewRemoteContext(srv.URL, "")
	rc.retry.InitialInterval = 0

	id, err := rc.SubmitJob(context.Background(), map[string]string{"name": "align"})
	require.NoError(t, err)
	assert.Equal(t, "job-ok", id)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteContextGivesUpAfterRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rc := NewRemoteContext(srv.URL, "")
	rc.retry.InitialInterval = 0
	rc.retry.MaxRetries = 2

	_, err := rc.SubmitJob(context.Background(), map[string]string{"name": "align"})
	assert.Error(t, err)
}

func TestJobStatusUnrecognizedMapsToUndetermined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"status": "WEIRD_NEW_STATE"},
		})
	}))
	defer srv.Close()

	rc := NewRemoteContext(srv.URL, "")
	state, err := rc.JobStatus(context.Background(), "job-x")
	require.NoError(t, err)
	assert.Equal(t, StateUndetermined, state)
}
