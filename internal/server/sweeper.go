package server

import (
	"context"
	"strconv"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
)

// sweepInterval paces the background maintenance pass.
const sweepInterval = time.Hour

// RunMaintenance periodically marks overdue fees, accrues late fees, and
// purges expired token revocations until the context is cancelled.
func (s *Server) RunMaintenance(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOverdueFees(ctx); err != nil {
				s.logger.Printf("overdue fee sweep: %v", err)
			}
			purged, err := s.stores.Revocations.PurgeExpiredRevocations(ctx, s.now().UTC())
			if err != nil {
				s.logger.Printf("purge revocations: %v", err)
			} else if purged > 0 {
				s.logger.Printf("purged %d expired token revocations", purged)
			}
		}
	}
}

// SweepOverdueFees flips past-due pending fees to overdue, recomputes
// their late fees, and queues a reminder the first time a fee turns
// overdue.
func (s *Server) SweepOverdueFees(ctx context.Context) error {
	now := s.now().UTC()
	due, err := s.stores.Fees.ListOverdueFees(ctx, now)
	if err != nil {
		return err
	}
	for _, fee := range due {
		lateFee := fee.CalculateLateFee(now)
		turnedOverdue := fee.Status == fees.StatusPending
		if !turnedOverdue && fee.LateFee == lateFee {
			continue
		}
		fee.Status = fees.StatusOverdue
		fee.LateFee = lateFee
		fee.UpdatedOn = now
		stored, err := s.stores.Fees.PutFee(ctx, fee)
		if err != nil {
			return err
		}
		if !turnedOverdue {
			continue
		}
		student, err := s.stores.Students.GetStudent(ctx, stored.StudentID)
		if err != nil {
			s.logger.Printf("overdue reminder for fee %d: %v", stored.ID, err)
			continue
		}
		s.enqueueMail(ctx, student.Email,
			"fee-overdue-"+strconv.FormatInt(stored.ID, 10),
			func() (mailer.Email, error) {
				return mailer.FeeReminderEmail(student.Name, string(stored.Type), stored.Amount, stored.LateFee, stored.DueDate)
			})
	}
	return nil
}
