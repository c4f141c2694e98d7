// Package mailer queues and delivers transactional email through a
// persistent outbox so notification delivery survives restarts.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/platform/id"
)

// Status tracks an outbox message through delivery.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// MaxAttempts is how many deliveries are tried before a message is
// marked failed for good.
const MaxAttempts = 5

// Message is one queued email.
type Message struct {
	ID            string
	Recipient     string
	Subject       string
	Body          string
	DedupeKey     string
	Status        Status
	AttemptCount  int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewMessage builds a pending outbox message due immediately.
func NewMessage(recipient string, email Email, dedupeKey string, now time.Time) (Message, error) {
	messageID, err := id.NewID()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}
	now = now.UTC()
	return Message{
		ID:            messageID,
		Recipient:     recipient,
		Subject:       email.Subject,
		Body:          email.Body,
		DedupeKey:     dedupeKey,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// RetryBackoff returns the delay before the given attempt is retried.
// Attempts back off exponentially from one minute.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Minute
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	const maxDelay = 30 * time.Minute
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// Store persists the outbox.
type Store interface {
	// EnqueueMessage inserts a pending message. Messages with a dedupe
	// key already present are silently dropped.
	EnqueueMessage(ctx context.Context, message Message) error
	// ClaimDueMessages returns up to limit pending messages whose next
	// attempt time has passed, ordered oldest first.
	ClaimDueMessages(ctx context.Context, now time.Time, limit int) ([]Message, error)
	MarkMessageSent(ctx context.Context, messageID string, at time.Time) error
	// MarkMessageFailed records a delivery failure. The message stays
	// pending with the given retry time until MaxAttempts is reached,
	// after which it is marked failed.
	MarkMessageFailed(ctx context.Context, messageID string, attemptCount int, nextAttemptAt time.Time, lastError string) error
	// OutboxStatistics reports per-status counts.
	OutboxStatistics(ctx context.Context) (Statistics, error)
}

// Statistics summarizes the outbox state.
type Statistics struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
}
