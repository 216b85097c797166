package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodevhq/autodev/internal/config"
)

func TestNewDispatcherOnlyRegistersConfiguredChannels(t *testing.T) {
	d := NewDispatcher(config.NotifyConfig{})
	assert.False(t, d.IsAnyConfigured())

	d = NewDispatcher(config.NotifyConfig{Slack: config.SlackNotifyConfig{WebhookURL: "https://hooks.example.com/x"}})
	assert.True(t, d.IsAnyConfigured())
	require.Len(t, d.channels, 1)
	assert.Equal(t, "slack", d.channels[0].Name())
}

func TestNotifySendsToEveryConfiguredChannel(t *testing.T) {
	var slackHits, webhookHits int
	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slackHits++
		w.WriteHeader(http.StatusOK)
	}))
	defer slackSrv.Close()
	webhookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHits++
		w.WriteHeader(http.StatusOK)
	}))
	defer webhookSrv.Close()

	d := NewDispatcher(config.NotifyConfig{
		Slack:   config.SlackNotifyConfig{WebhookURL: slackSrv.URL},
		Webhook: config.WebhookNotifyConfig{URL: webhookSrv.URL},
	})

	d.Notify(context.Background(), Event{Type: "sweep_completed", Title: "done", Body: "ok", RepoName: "org/repo"})

	assert.Equal(t, 1, slackHits)
	assert.Equal(t, 1, webhookHits)
}

func TestNotifySwallowsChannelErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(config.NotifyConfig{Webhook: config.WebhookNotifyConfig{URL: srv.URL}})

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Type: "task_failed"})
	})
}

func TestWebhookSignsPayloadWhenSecretConfigured(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Autodev-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL, Secret: "shh"})
	require.NoError(t, ch.Send(context.Background(), Event{Type: "iteration_ceiling", Title: "t", Body: "b"}))

	mac := hmac.New(sha256.New, []byte("shh"))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, gotSig)
}

func TestWebhookOmitsSignatureWithoutSecret(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Autodev-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL})
	require.NoError(t, ch.Send(context.Background(), Event{Type: "task_failed"}))
	assert.Empty(t, gotSig)
}

func TestWebhookReturnsErrorOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL})
	err := ch.Send(context.Background(), Event{Type: "task_failed"})
	assert.Error(t, err)
}
