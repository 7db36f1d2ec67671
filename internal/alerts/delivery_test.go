package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookDeliverer(t *testing.T) {
	var got webhookEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	user := uuid.New()
	d := NewWebhookDeliverer(srv.URL, time.Second)
	err := d.Deliver(context.Background(), user, "blocked", []byte(`{"reason":"spam"}`))
	require.NoError(t, err)

	assert.Equal(t, user, got.UserID)
	assert.Equal(t, "blocked", got.Event)
	assert.JSONEq(t, `{"reason":"spam"}`, string(got.Payload))
}

func TestWebhookDeliverer_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhookDeliverer(srv.URL, time.Second).Deliver(context.Background(), uuid.New(), "warned", []byte(`{}`))
	assert.ErrorContains(t, err, "503")
}

func TestWebhookDeliverer_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewWebhookDeliverer(srv.URL, time.Minute).Deliver(ctx, uuid.New(), "warned", []byte(`{}`))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
