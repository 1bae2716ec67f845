package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendPostsRelayPayload(t *testing.T) {
	var got relayPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(SenderOptions{
		WebhookURL: srv.URL,
		From:       "reviewer@example.com",
	})
	err := s.Send(context.Background(), Message{
		To:      []string{"author@example.com"},
		CC:      []string{"rev1@example.com", "rev2@example.com"},
		Subject: "AI Code Review - PR #42",
		Body:    "<html></html>",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got.To != "author@example.com" {
		t.Errorf("to = %q", got.To)
	}
	if got.CC != "rev1@example.com,rev2@example.com" {
		t.Errorf("cc = %q", got.CC)
	}
	if got.From != "reviewer@example.com" {
		t.Errorf("from = %q", got.From)
	}
	if got.Subject != "AI Code Review - PR #42" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.MailBody != "<html></html>" {
		t.Errorf("mailbody = %q", got.MailBody)
	}
}

func TestSendOptOutDropsWithoutDelivering(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewSender(SenderOptions{WebhookURL: srv.URL, OptOut: true})
	err := s.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"})
	if !errors.Is(err, ErrOptedOut) {
		t.Fatalf("err = %v, want ErrOptedOut", err)
	}
	if called {
		t.Error("opt-out Send must not hit the relay")
	}
}

func TestSendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay down", http.StatusBadGateway)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		s    *Sender
		msg  Message
	}{
		{"no webhook url", NewSender(SenderOptions{}), Message{To: []string{"a@example.com"}}},
		{"no recipients", NewSender(SenderOptions{WebhookURL: srv.URL}), Message{}},
		{"relay non-2xx", NewSender(SenderOptions{WebhookURL: srv.URL}), Message{To: []string{"a@example.com"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.s.Send(context.Background(), tt.msg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
