package mailer

import (
	"context"
	"log"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/platform/timeouts"
)

const (
	dispatchInterval = 30 * time.Second
	dispatchBatch    = 20
)

// Dispatcher drains the outbox on an interval, delivering due messages
// through the sender and scheduling retries for failures.
type Dispatcher struct {
	store  Store
	sender Sender
	now    func() time.Time
}

// NewDispatcher builds a dispatcher. A nil now defaults to time.Now.
func NewDispatcher(store Store, sender Sender, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{store: store, sender: sender, now: now}
}

// Run processes the outbox until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()
	for {
		if err := d.DispatchDue(ctx); err != nil && ctx.Err() == nil {
			log.Printf("mail dispatch: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchDue delivers one batch of due messages.
func (d *Dispatcher) DispatchDue(ctx context.Context) error {
	now := d.now().UTC()
	due, err := d.store.ClaimDueMessages(ctx, now, dispatchBatch)
	if err != nil {
		return err
	}
	for _, msg := range due {
		d.deliver(ctx, msg)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, timeouts.MailSend)
	err := d.sender.Send(sendCtx, msg)
	cancel()

	now := d.now().UTC()
	if err == nil {
		if err := d.store.MarkMessageSent(ctx, msg.ID, now); err != nil {
			log.Printf("mark message %s sent: %v", msg.ID, err)
		}
		return
	}

	attempt := msg.AttemptCount + 1
	next := now.Add(RetryBackoff(attempt))
	log.Printf("deliver message %s (attempt %d): %v", msg.ID, attempt, err)
	if err := d.store.MarkMessageFailed(ctx, msg.ID, attempt, next, err.Error()); err != nil {
		log.Printf("mark message %s failed: %v", msg.ID, err)
	}
}
