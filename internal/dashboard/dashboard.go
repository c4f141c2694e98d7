// Package dashboard aggregates cross-module statistics and pushes live
// events to connected admin clients.
package dashboard

import (
	"context"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/hostel"
	"github.com/Anuraj-dev/student-erp/internal/library"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// Summary is the admin dashboard snapshot.
type Summary struct {
	Students    students.Statistics   `json:"students"`
	Admissions  admissions.Statistics `json:"admissions"`
	Fees        fees.Statistics       `json:"fees"`
	Library     library.Statistics    `json:"library"`
	Hostels     hostel.OccupancyStats `json:"hostels"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// StudentSummary is the student-facing snapshot, scoped to one student.
type StudentSummary struct {
	PendingFees  []fees.Fee      `json:"pending_fees"`
	TotalDue     int64           `json:"total_due"`
	ActiveLoans  []library.Issue `json:"active_loans"`
	OverdueLoans int             `json:"overdue_loans"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Stores is the set of read models the dashboard draws from.
type Stores struct {
	Students   students.Store
	Admissions admissions.Store
	Fees       fees.Store
	Library    library.Store
	Hostels    hostel.Store
}

// Service builds dashboard snapshots.
type Service struct {
	stores Stores
	now    func() time.Time
}

// NewService builds a dashboard service. A nil now defaults to time.Now.
func NewService(stores Stores, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{stores: stores, now: now}
}

// AdminSummary assembles the cross-module snapshot for staff users.
func (s *Service) AdminSummary(ctx context.Context) (Summary, error) {
	now := s.now().UTC()
	summary := Summary{GeneratedAt: now}

	var err error
	if summary.Students, err = s.stores.Students.GetStudentStatistics(ctx); err != nil {
		return Summary{}, err
	}
	if summary.Admissions, err = s.stores.Admissions.GetAdmissionStatistics(ctx); err != nil {
		return Summary{}, err
	}
	if summary.Fees, err = s.stores.Fees.GetFeeStatistics(ctx, now); err != nil {
		return Summary{}, err
	}
	if summary.Library, err = s.stores.Library.GetLibraryStatistics(ctx, now); err != nil {
		return Summary{}, err
	}
	hostels, err := s.stores.Hostels.ListHostels(ctx, "", false)
	if err != nil {
		return Summary{}, err
	}
	summary.Hostels = hostel.ComputeOccupancyStats(hostels)
	return summary, nil
}

// StudentSummaryFor assembles the snapshot scoped to one student.
func (s *Service) StudentSummaryFor(ctx context.Context, rollNo string) (StudentSummary, error) {
	now := s.now().UTC()
	summary := StudentSummary{GeneratedAt: now}

	dues, err := s.stores.Fees.ListFees(ctx, fees.ListFilter{StudentID: rollNo, Status: fees.StatusPending})
	if err != nil {
		return StudentSummary{}, err
	}
	summary.PendingFees = dues
	for _, f := range dues {
		summary.TotalDue += f.TotalAmount()
	}

	loans, err := s.stores.Library.ListStudentIssues(ctx, rollNo, true)
	if err != nil {
		return StudentSummary{}, err
	}
	summary.ActiveLoans = loans
	for _, loan := range loans {
		if loan.IsOverdue(now) {
			summary.OverdueLoans++
		}
	}
	return summary, nil
}
