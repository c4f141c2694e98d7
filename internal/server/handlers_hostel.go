package server

import (
	"net/http"
	"strings"

	"github.com/Anuraj-dev/student-erp/internal/dashboard"
	"github.com/Anuraj-dev/student-erp/internal/hostel"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

func (s *Server) handleHostelList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	gender := students.Gender(query.Get("gender"))
	availableOnly := query.Get("available_only") == "true"

	ctx, cancel := s.requestContext(r)
	defer cancel()
	hostels, err := s.stores.Hostels.ListHostels(ctx, gender, availableOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]hostelViewBody, 0, len(hostels))
	for _, h := range hostels {
		out = append(out, hostelView(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{"hostels": out})
}

func (s *Server) handleHostelCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Kind            string `json:"kind"`
		WardenName      string `json:"warden_name"`
		WardenPhone     string `json:"warden_phone"`
		TotalBeds       int    `json:"total_beds"`
		Address         string `json:"address"`
		Facilities      string `json:"facilities"`
		MessFacility    bool   `json:"mess_facility"`
		WifiAvailable   bool   `json:"wifi_available"`
		MonthlyRent     int64  `json:"monthly_rent"`
		SecurityDeposit int64  `json:"security_deposit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	h := hostel.Hostel{
		Name:            req.Name,
		Kind:            hostel.Kind(req.Kind),
		WardenName:      req.WardenName,
		WardenPhone:     req.WardenPhone,
		TotalBeds:       req.TotalBeds,
		Address:         req.Address,
		Facilities:      req.Facilities,
		MessFacility:    req.MessFacility,
		WifiAvailable:   req.WifiAvailable,
		MonthlyRent:     req.MonthlyRent,
		SecurityDeposit: req.SecurityDeposit,
		IsActive:        true,
		CreatedOn:       now,
		UpdatedOn:       now,
	}
	if err := h.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	stored, err := s.stores.Hostels.PutHostel(ctx, h)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hostelView(stored))
}

type allocationRequest struct {
	StudentID  string `json:"student_id"`
	RoomNumber string `json:"room_number"`
}

func (s *Server) handleHostelAllocate(w http.ResponseWriter, r *http.Request) {
	hostelID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req allocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, strings.ToUpper(strings.TrimSpace(req.StudentID)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !student.IsActive {
		s.writeError(w, r, apperrors.New(apperrors.CodeStudentInactive, "student is inactive"))
		return
	}
	if student.HostelID != nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeHostelAlreadyAllocated, "student already has a hostel bed"))
		return
	}
	h, err := s.stores.Hostels.GetHostel(ctx, hostelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !h.Kind.Accepts(student.Gender) {
		s.writeError(w, r, apperrors.New(apperrors.CodeHostelGenderMismatch, "hostel does not accept the student's gender"))
		return
	}
	if err := h.AllocateBed(); err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	h.UpdatedOn = now
	if _, err := s.stores.Hostels.PutHostel(ctx, h); err != nil {
		s.writeError(w, r, err)
		return
	}
	student.HostelID = &h.ID
	student.RoomNumber = req.RoomNumber
	student.UpdatedOn = now
	if err := s.stores.Students.PutStudent(ctx, student); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.enqueueMail(ctx, student.Email, "hostel-"+student.RollNo, func() (mailer.Email, error) {
		return mailer.HostelAllocationEmail(student.Name, h.Name, req.RoomNumber, h.MonthlyRent)
	})
	s.hub.Broadcast(dashboard.NewEvent(dashboard.EventHostelAllocated, s.now(), map[string]any{
		"hostel_id":  h.ID,
		"student_id": student.RollNo,
	}))
	writeJSON(w, http.StatusOK, map[string]any{
		"student": studentView(student),
		"hostel":  hostelView(h),
	})
}

func (s *Server) handleHostelVacate(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, strings.ToUpper(strings.TrimSpace(req.StudentID)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if student.HostelID == nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeHostelNotAllocated, "student has no hostel bed"))
		return
	}
	h, err := s.stores.Hostels.GetHostel(ctx, *student.HostelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := h.VacateBed(); err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	h.UpdatedOn = now
	if _, err := s.stores.Hostels.PutHostel(ctx, h); err != nil {
		s.writeError(w, r, err)
		return
	}
	student.HostelID = nil
	student.RoomNumber = ""
	student.UpdatedOn = now
	if err := s.stores.Students.PutStudent(ctx, student); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"student": studentView(student),
		"hostel":  hostelView(h),
	})
}

func (s *Server) handleHostelOccupancy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	hostels, err := s.stores.Hostels.ListHostels(ctx, "", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats := hostel.ComputeOccupancyStats(hostels)
	out := make([]hostelViewBody, 0, len(hostels))
	for _, h := range hostels {
		out = append(out, hostelView(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hostels": out,
		"summary": map[string]any{
			"total_hostels":        stats.TotalHostels,
			"total_beds":           stats.TotalBeds,
			"total_occupied":       stats.TotalOccupied,
			"total_available":      stats.TotalAvailable,
			"occupancy_percentage": stats.OccupancyPercentage,
		},
	})
}
