package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intelwatch/internal/retry"
)

func TestSendPostsCollaboratorContract(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	err := c.Send(context.Background(), Request{
		Recipient:      "pm@example.com",
		Topic:          "email security",
		FocusAreas:     []string{"phishing"},
		DeliveryFormat: "email",
		Report:         "the report body",
	})
	require.NoError(t, err)
	assert.Equal(t, "pm@example.com", got.Recipient)
	assert.Equal(t, "email security", got.Topic)
	assert.Equal(t, []string{"phishing"}, got.FocusAreas)
	assert.Equal(t, "email", got.DeliveryFormat)
	assert.Equal(t, "the report body", got.Report)
}

func TestSendRetriesTransientFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	c.retryCfg = retry.Config{MaxAttempts: 3, Delay: time.Millisecond}

	err := c.Send(context.Background(), Request{Recipient: "pm@example.com", Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestSendFailsAfterBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	c.retryCfg = retry.Config{MaxAttempts: 2, Delay: time.Millisecond}

	err := c.Send(context.Background(), Request{Recipient: "pm@example.com", Topic: "t"})
	assert.Error(t, err)
}

func TestSendUnconfigured(t *testing.T) {
	c := NewClient("", time.Second)
	err := c.Send(context.Background(), Request{Recipient: "x", Topic: "t"})
	assert.Error(t, err)
}
