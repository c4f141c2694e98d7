package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	now := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	email := Email{Subject: "Welcome", Body: "Hello"}
	msg, err := NewMessage("student@example.com", email, "welcome:2025CS0001", now)
	if err != nil {
		t.Fatalf("NewMessage() = %v", err)
	}
	if msg.ID == "" {
		t.Fatal("message ID not generated")
	}
	if msg.Status != StatusPending {
		t.Fatalf("Status = %s, want %s", msg.Status, StatusPending)
	}
	if !msg.NextAttemptAt.Equal(now) {
		t.Fatalf("NextAttemptAt = %v, want %v", msg.NextAttemptAt, now)
	}
}

func TestRetryBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{5, 16 * time.Minute},
		{6, 30 * time.Minute},
		{10, 30 * time.Minute},
		{0, time.Minute},
	}
	for _, tc := range cases {
		if got := RetryBackoff(tc.attempt); got != tc.want {
			t.Fatalf("RetryBackoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	if got := FormatRupees(45000); got != "₹45,000" {
		t.Fatalf("FormatRupees(45000) = %q, want %q", got, "₹45,000")
	}
	if got := FormatRupees(50); got != "₹50" {
		t.Fatalf("FormatRupees(50) = %q, want %q", got, "₹50")
	}
}

func TestWelcomeEmail(t *testing.T) {
	email, err := WelcomeEmail("Priya Sharma", "2025CS0001", "B.Tech Computer Science", "temp0001")
	if err != nil {
		t.Fatalf("WelcomeEmail() = %v", err)
	}
	if !strings.Contains(email.Subject, "2025CS0001") {
		t.Fatalf("Subject = %q, missing roll number", email.Subject)
	}
	for _, want := range []string{"Priya Sharma", "2025CS0001", "temp0001", "change your password"} {
		if !strings.Contains(email.Body, want) {
			t.Fatalf("Body missing %q:\n%s", want, email.Body)
		}
	}
}

func TestFeeReminderEmail(t *testing.T) {
	due := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	email, err := FeeReminderEmail("Priya Sharma", "tuition", 45000, 500, due)
	if err != nil {
		t.Fatalf("FeeReminderEmail() = %v", err)
	}
	for _, want := range []string{"₹45,000", "₹500", "15 Aug 2025"} {
		if !strings.Contains(email.Body, want) {
			t.Fatalf("Body missing %q:\n%s", want, email.Body)
		}
	}

	noLate, err := FeeReminderEmail("Priya Sharma", "tuition", 45000, 0, due)
	if err != nil {
		t.Fatalf("FeeReminderEmail() = %v", err)
	}
	if strings.Contains(noLate.Body, "late fee") {
		t.Fatalf("Body mentions late fee without one:\n%s", noLate.Body)
	}
}

func TestPaymentReceiptEmail(t *testing.T) {
	paid := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	email, err := PaymentReceiptEmail("Priya Sharma", "RCP20250800042", "upi", 45000, paid)
	if err != nil {
		t.Fatalf("PaymentReceiptEmail() = %v", err)
	}
	if !strings.Contains(email.Subject, "RCP20250800042") {
		t.Fatalf("Subject = %q, missing receipt number", email.Subject)
	}
	if !strings.Contains(email.Body, "₹45,000") {
		t.Fatalf("Body missing amount:\n%s", email.Body)
	}
}

type fakeOutboxStore struct {
	mu     sync.Mutex
	due    []Message
	sent   []string
	failed []string
}

func (f *fakeOutboxStore) EnqueueMessage(ctx context.Context, message Message) error {
	return nil
}

func (f *fakeOutboxStore) ClaimDueMessages(ctx context.Context, now time.Time, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	due := f.due
	f.due = nil
	return due, nil
}

func (f *fakeOutboxStore) MarkMessageSent(ctx context.Context, messageID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, messageID)
	return nil
}

func (f *fakeOutboxStore) MarkMessageFailed(ctx context.Context, messageID string, attemptCount int, nextAttemptAt time.Time, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, messageID)
	return nil
}

func (f *fakeOutboxStore) OutboxStatistics(ctx context.Context) (Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Statistics{
		Pending: int64(len(f.due)),
		Sent:    int64(len(f.sent)),
		Failed:  int64(len(f.failed)),
	}, nil
}

type fakeSender struct {
	failFor map[string]bool
}

func (f fakeSender) Send(ctx context.Context, message Message) error {
	if f.failFor[message.ID] {
		return errors.New("connection refused")
	}
	return nil
}

func TestDispatchDue(t *testing.T) {
	now := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeOutboxStore{due: []Message{
		{ID: "msg-ok", Recipient: "a@example.com"},
		{ID: "msg-bad", Recipient: "b@example.com"},
	}}
	sender := fakeSender{failFor: map[string]bool{"msg-bad": true}}
	dispatcher := NewDispatcher(store, sender, func() time.Time { return now })

	if err := dispatcher.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue() = %v", err)
	}
	if len(store.sent) != 1 || store.sent[0] != "msg-ok" {
		t.Fatalf("sent = %v, want [msg-ok]", store.sent)
	}
	if len(store.failed) != 1 || store.failed[0] != "msg-bad" {
		t.Fatalf("failed = %v, want [msg-bad]", store.failed)
	}
}
