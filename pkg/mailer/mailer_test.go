package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResendSenderPostsEmail(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	sender, err := NewResendSender("re_test", "Council <no-reply@council.local>", nil).WithBaseURL(srv.URL + "/")
	require.NoError(t, err)

	id, err := sender.Send(context.Background(), Message{
		To:      []string{"council@example.org"},
		Subject: "Contact: hello",
		Text:    "hi",
		ReplyTo: "visitor@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)
	assert.Equal(t, "Contact: hello", body["subject"])
	assert.Equal(t, "Council <no-reply@council.local>", body["from"])
}

func TestResendSenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	sender, err := NewResendSender("re_test", "bad", nil).WithBaseURL(srv.URL + "/")
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "x", Text: "y"})
	assert.Error(t, err)
}

func TestLogSenderLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	id, err := sender.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "hello"})
	require.NoError(t, err)
	assert.Empty(t, id)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].ContextMap()["subject"])
}
