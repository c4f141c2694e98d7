// Package hostel manages accommodation blocks and bed allocation.
package hostel

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// ErrNotFound indicates a requested hostel is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "hostel not found")

// Kind distinguishes who a hostel houses.
type Kind string

const (
	KindBoys  Kind = "Boys"
	KindGirls Kind = "Girls"
	KindMixed Kind = "Mixed"
)

// Valid reports whether the kind value is recognized.
func (k Kind) Valid() bool {
	switch k {
	case KindBoys, KindGirls, KindMixed:
		return true
	}
	return false
}

// Accepts reports whether the hostel kind houses students of the gender.
func (k Kind) Accepts(gender students.Gender) bool {
	switch k {
	case KindMixed:
		return true
	case KindBoys:
		return gender == students.GenderMale
	case KindGirls:
		return gender == students.GenderFemale
	}
	return false
}

// Hostel is one accommodation block.
type Hostel struct {
	ID              int64
	Name            string
	Kind            Kind
	WardenName      string
	WardenPhone     string
	TotalBeds       int
	OccupiedBeds    int
	Address         string
	Facilities      string
	MessFacility    bool
	WifiAvailable   bool
	MonthlyRent     int64 // rupees
	SecurityDeposit int64 // rupees
	IsActive        bool
	CreatedOn       time.Time
	UpdatedOn       time.Time
}

// AvailableBeds is the count of unoccupied beds.
func (h Hostel) AvailableBeds() int {
	return h.TotalBeds - h.OccupiedBeds
}

// HasAvailableBeds reports whether a bed can be allocated.
func (h Hostel) HasAvailableBeds() bool {
	return h.AvailableBeds() > 0
}

// OccupancyPercentage is the occupied share of beds, 0 when empty capacity.
func (h Hostel) OccupancyPercentage() float64 {
	if h.TotalBeds == 0 {
		return 0
	}
	return float64(h.OccupiedBeds) / float64(h.TotalBeds) * 100
}

// Validate checks hostel fields before persistence.
func (h Hostel) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return apperrors.New(apperrors.CodeHostelInvalid, "name is required")
	}
	if !h.Kind.Valid() {
		return apperrors.New(apperrors.CodeHostelInvalid, "hostel type is invalid")
	}
	if h.TotalBeds < 1 {
		return apperrors.New(apperrors.CodeHostelInvalid, "total beds must be positive")
	}
	if h.OccupiedBeds < 0 || h.OccupiedBeds > h.TotalBeds {
		return apperrors.New(apperrors.CodeHostelInvalid, "occupied beds out of range")
	}
	if h.MonthlyRent < 0 || h.SecurityDeposit < 0 {
		return apperrors.New(apperrors.CodeHostelInvalid, "rent and deposit cannot be negative")
	}
	return nil
}

// AllocateBed increments occupancy, failing when the hostel is full.
func (h *Hostel) AllocateBed() error {
	if !h.HasAvailableBeds() {
		return apperrors.New(apperrors.CodeHostelNoBeds, "no beds available")
	}
	h.OccupiedBeds++
	return nil
}

// VacateBed decrements occupancy, failing when no beds are occupied.
func (h *Hostel) VacateBed() error {
	if h.OccupiedBeds <= 0 {
		return apperrors.New(apperrors.CodeHostelInvalid, "no occupied beds to vacate")
	}
	h.OccupiedBeds--
	return nil
}

// OccupancyStats aggregates occupancy across active hostels.
type OccupancyStats struct {
	TotalHostels        int
	TotalBeds           int
	TotalOccupied       int
	TotalAvailable      int
	OccupancyPercentage float64
}

// ComputeOccupancyStats folds per-hostel numbers into a single summary.
func ComputeOccupancyStats(hostels []Hostel) OccupancyStats {
	stats := OccupancyStats{TotalHostels: len(hostels)}
	for _, h := range hostels {
		stats.TotalBeds += h.TotalBeds
		stats.TotalOccupied += h.OccupiedBeds
	}
	stats.TotalAvailable = stats.TotalBeds - stats.TotalOccupied
	if stats.TotalBeds > 0 {
		stats.OccupancyPercentage = float64(stats.TotalOccupied) / float64(stats.TotalBeds) * 100
	}
	return stats
}

// Store persists hostels.
type Store interface {
	PutHostel(ctx context.Context, hostel Hostel) (Hostel, error)
	GetHostel(ctx context.Context, id int64) (Hostel, error)
	GetHostelByName(ctx context.Context, name string) (Hostel, error)
	// ListHostels returns active hostels, optionally only those with free
	// beds matching the given gender. Gender is ignored when empty.
	ListHostels(ctx context.Context, gender students.Gender, availableOnly bool) ([]Hostel, error)
}
