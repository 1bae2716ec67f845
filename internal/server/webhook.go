package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/engine"
)

const maxWebhookBody = 1 << 20 // 1 MiB

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large (max 1MB)")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	if s.cfg.WebhookSecret != "" {
		if !verifySignature(body, r.Header.Get("X-Hub-Signature-256"), s.cfg.WebhookSecret) {
			writeError(w, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
	}

	event, err := engine.ParseWebhookEvent(body)
	if err != nil {
		engine.LogFailure(s.db, engine.StageWebhookParsing, err, engine.FailureContext{
			EventType: "webhook",
			Payload:   string(body),
		})
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	// Bitbucket sends a test event when the webhook is configured
	if event.Test {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "webhook test received",
		})
		return
	}

	// Events we do not review are acknowledged without ever reaching
	// the pipeline.
	if !engine.IsPullRequestEvent(event.EventKey) && event.EventKey != engine.EventRefsChanged {
		log.Printf("ignoring webhook event %q", event.EventKey)
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"event":  event.EventKey,
		})
		return
	}

	// Acknowledge immediately; the review runs in the background. The
	// delivery ID ties the response to the log lines the background run
	// produces.
	deliveryID := uuid.NewString()
	log.Printf("Webhook %s accepted: %s", deliveryID, event.EventKey)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.engine.ProcessWebhookEvent(event, body)
		log.Printf("Webhook %s processed", deliveryID)
	}()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "accepted",
		"event":       event.EventKey,
		"delivery_id": deliveryID,
	})
}

// verifySignature checks an X-Hub-Signature-256 header against the
// request body using constant-time comparison.
func verifySignature(body []byte, header, secret string) bool {
	sig := strings.TrimPrefix(header, "sha256=")
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}
