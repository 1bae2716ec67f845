// Package mail delivers review results through an HTTP email relay.
// The relay accepts a JSON payload and handles SMTP on our behalf, so
// the daemon never speaks SMTP directly.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrOptedOut reports that email delivery is disabled by configuration.
// The message was accepted and dropped, so callers must record it as
// not sent.
var ErrOptedOut = errors.New("mail: delivery opted out")

// Message is a single outbound email.
type Message struct {
	To      []string
	CC      []string
	Subject string
	Body    string
}

// Sender posts messages to an email webhook relay. The zero value is
// not usable; construct with NewSender.
type Sender struct {
	webhookURL string
	from       string
	optOut     bool
	httpClient *http.Client
}

// SenderOptions configures a Sender.
type SenderOptions struct {
	WebhookURL string
	From       string
	OptOut     bool
	Timeout    time.Duration
}

// NewSender returns a Sender. When opts.OptOut is set the sender
// accepts messages and drops them, logging instead of delivering.
func NewSender(opts SenderOptions) *Sender {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Sender{
		webhookURL: opts.WebhookURL,
		from:       opts.From,
		optOut:     opts.OptOut,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type relayPayload struct {
	To       string `json:"to"`
	CC       string `json:"cc"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	MailBody string `json:"mailbody"`
}

// Send delivers msg through the relay. When opt-out is active the
// message is logged and dropped, and Send returns ErrOptedOut so the
// caller can book the email as not sent.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s.optOut {
		log.Printf("mail: opted out, dropping email to=%s subject=%q",
			strings.Join(msg.To, ","), msg.Subject)
		return ErrOptedOut
	}
	if s.webhookURL == "" {
		return fmt.Errorf("mail: no webhook URL configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}

	payload := relayPayload{
		To:       strings.Join(msg.To, ","),
		CC:       strings.Join(msg.CC, ","),
		From:     s.from,
		Subject:  msg.Subject,
		MailBody: msg.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email relay returned status %d", resp.StatusCode)
	}
	return nil
}
