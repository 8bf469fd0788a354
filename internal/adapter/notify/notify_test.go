package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/neptunehub/campus-errand-engine/internal/config"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.Config {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	cfg.AppEnv = "test"
	cfg.NotifyWebhookURL = url
	return cfg
}

func TestNotify_SingleRecipientShape(t *testing.T) {
	var received singleRecipientPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(testConfig(srv.URL), slog.Default())
	userID := domain.NewObjectID()
	n.Notify(t.Context(), domain.Notification{
		UserID:  userID,
		Message: "your errand was assigned",
		Data:    map[string]any{"errandId": "abc"},
	})

	assert.Equal(t, userID.String(), received.UserID)
	assert.Equal(t, "your errand was assigned", received.Message)
}

func TestNotify_BroadcastShape(t *testing.T) {
	var received broadcastPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(testConfig(srv.URL), slog.Default())
	a, b := domain.NewObjectID(), domain.NewObjectID()
	n.Notify(t.Context(), domain.Notification{
		RecipientUserIDs: []domain.ObjectID{a, b},
		MessageKey:       "match_timed_out_penalty",
	})

	assert.Equal(t, "match_timed_out_penalty", received.MessageKey)
	assert.ElementsMatch(t, []string{a.String(), b.String()}, received.RecipientUserIDs)
}

func TestNotify_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(testConfig(srv.URL), slog.Default())
	n.Notify(t.Context(), domain.Notification{UserID: domain.NewObjectID(), Message: "hi"})

	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestNotify_DoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(testConfig(srv.URL), slog.Default())
	n.Notify(t.Context(), domain.Notification{UserID: domain.NewObjectID(), Message: "hi"})

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestNotify_NoWebhookConfiguredIsNoOp(t *testing.T) {
	n := New(testConfig(""), slog.Default())
	n.Notify(t.Context(), domain.Notification{UserID: domain.NewObjectID(), Message: "hi"})
}
