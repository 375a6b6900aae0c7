package distribute

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/quotefunnel/quotefunnel/internal/store"
)

func TestNotify_SendsMessage(t *testing.T) {
	var gotPath string
	var body map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.Telegram{BotToken: "bot123", ChatID: "42"}, nil)
	n.baseURL = srv.URL

	n.NotifyLead(context.Background(), &store.Lead{
		FirstName: "John", LastName: "Doe", ZipCode: "19101",
		Email: "john@example.com", Phone: "5551234567",
	})

	if gotPath != "/botbot123/sendMessage" {
		t.Errorf("got path %s", gotPath)
	}
	if body["chat_id"] != "42" {
		t.Errorf("got chat_id %s, want 42", body["chat_id"])
	}
	if body["parse_mode"] != "HTML" {
		t.Errorf("got parse_mode %s", body["parse_mode"])
	}
	if !strings.Contains(body["text"], "John Doe") || !strings.Contains(body["text"], "19101") {
		t.Errorf("message text missing lead details: %s", body["text"])
	}
}

func TestNotify_NoopWithoutCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewNotifier(config.Telegram{}, nil)
	n.baseURL = srv.URL

	n.Notify(context.Background(), "Title", "content")
	if called {
		t.Error("notifier must be a no-op without credentials")
	}
}

func TestNotifyExpressLead(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(config.Telegram{BotToken: "bot123", ChatID: "42"}, nil)
	n.baseURL = srv.URL

	n.NotifyExpressLead(context.Background(), &store.ExpressLead{
		Email: "quick@example.com", Phone: "5559876543",
	})

	if !strings.Contains(body["text"], "quick@example.com") {
		t.Errorf("message text missing express lead details: %s", body["text"])
	}
}
