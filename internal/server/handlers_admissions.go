package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/dashboard"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

type applyRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	DateOfBirth       string `json:"date_of_birth"` // YYYY-MM-DD
	Gender            string `json:"gender"`
	Address           string `json:"address"`
	City              string `json:"city"`
	State             string `json:"state"`
	Pincode           string `json:"pincode"`
	FatherName        string `json:"father_name"`
	MotherName        string `json:"mother_name"`
	GuardianName      string `json:"guardian_name"`
	GuardianPhone     string `json:"guardian_phone"`
	GuardianEmail     string `json:"guardian_email"`
	EmergencyContact  string `json:"emergency_contact"`
	MedicalConditions string `json:"medical_conditions"`
	PreviousEducation string `json:"previous_education"`
	CourseID          int64  `json:"course_id"`
	TenthPercentage   int    `json:"tenth_percentage"`
	TwelfthPercentage int    `json:"twelfth_percentage"`
	EntranceExamScore int    `json:"entrance_exam_score"`
	Password          string `json:"password"`
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.New(apperrors.CodeBadRequest, "date must be YYYY-MM-DD")
	}
	return parsed, nil
}

func (s *Server) handleAdmissionApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := auth.ValidatePasswordPolicy(req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	application := admissions.Application{
		Name:              req.Name,
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             req.Phone,
		DateOfBirth:       dob,
		Gender:            students.Gender(req.Gender),
		Address:           req.Address,
		City:              req.City,
		State:             req.State,
		Pincode:           req.Pincode,
		FatherName:        req.FatherName,
		MotherName:        req.MotherName,
		GuardianName:      req.GuardianName,
		GuardianPhone:     req.GuardianPhone,
		GuardianEmail:     req.GuardianEmail,
		EmergencyContact:  req.EmergencyContact,
		MedicalConditions: req.MedicalConditions,
		PreviousEducation: req.PreviousEducation,
		CourseID:          req.CourseID,
		TenthPercentage:   req.TenthPercentage,
		TwelfthPercentage: req.TwelfthPercentage,
		EntranceExamScore: req.EntranceExamScore,
		PasswordHash:      passwordHash,
		Status:            admissions.StatusSubmitted,
		GeneratedBy:       admissions.GeneratedByStudent,
		DocumentsRequired: admissions.DefaultRequiredDocuments,
		DocumentsVerified: map[string]bool{},
		ApplicationDate:   now,
		UpdatedOn:         now,
	}
	if err := application.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := application.CheckEligibility(now); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	course, err := s.stores.Courses.GetCourse(ctx, application.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !course.IsActive {
		s.writeError(w, r, apperrors.New(apperrors.CodeCourseInactive, "course is not accepting applications"))
		return
	}
	serial, err := s.stores.Admissions.NextApplicationSerial(ctx, now.Year())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	application.ApplicationID = admissions.FormatApplicationID(now.Year(), serial)

	stored, err := s.stores.Admissions.PutApplication(ctx, application)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.enqueueMail(ctx, stored.Email, "admission-submitted-"+stored.ApplicationID, func() (mailer.Email, error) {
		return mailer.AdmissionStatusEmail(stored.Name, stored.ApplicationID, string(stored.Status), "Application received")
	})
	s.hub.Broadcast(dashboard.NewEvent(dashboard.EventAdmissionSubmitted, s.now(), map[string]any{
		"application_id": stored.ApplicationID,
		"course_id":      stored.CourseID,
	}))
	writeJSON(w, http.StatusCreated, applicationView(stored))
}

// handleAdmissionStatusLookup lets applicants check progress with their
// application id and the password they registered with.
func (s *Server) handleAdmissionStatusLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicationID string `json:"application_id"`
		Password      string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	application, err := s.stores.Admissions.GetApplication(ctx, strings.ToUpper(strings.TrimSpace(req.ApplicationID)))
	if err != nil || !auth.CheckPassword(application.PasswordHash, req.Password) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid application id or password"))
		return
	}
	writeJSON(w, http.StatusOK, applicationView(application))
}

func (s *Server) handleAdmissionList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := admissions.ListFilter{
		Status:    admissions.Status(query.Get("status")),
		PageToken: query.Get("page_token"),
	}
	if v := query.Get("course_id"); v != "" {
		filter.CourseID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("page_size"); v != "" {
		filter.PageSize, _ = strconv.Atoi(v)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	page, err := s.stores.Admissions.ListApplications(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]applicationViewBody, 0, len(page.Applications))
	for _, application := range page.Applications {
		out = append(out, applicationView(application))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applications":    out,
		"next_page_token": page.NextPageToken,
	})
}

func (s *Server) handleAdmissionGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	application, err := s.stores.Admissions.GetApplication(ctx, strings.ToUpper(r.PathValue("applicationID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationView(application))
}

type decisionRequest struct {
	Status          string `json:"status"`
	Remarks         string `json:"remarks"`
	RejectionReason string `json:"rejection_reason"`
}

func (s *Server) handleAdmissionDecide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	next := admissions.Status(req.Status)

	ctx, cancel := s.requestContext(r)
	defer cancel()
	application, err := s.stores.Admissions.GetApplication(ctx, strings.ToUpper(r.PathValue("applicationID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := application.CanTransition(next); err != nil {
		s.writeError(w, r, err)
		return
	}
	if next == admissions.StatusDeclined && strings.TrimSpace(req.RejectionReason) == "" {
		s.writeError(w, r, apperrors.New(apperrors.CodeAdmissionInvalidDecision, "a rejection reason is required"))
		return
	}

	now := s.now().UTC()
	application.Status = next
	application.Remarks = req.Remarks
	application.RejectionReason = req.RejectionReason
	application.UpdatedOn = now
	if next.Decided() {
		application.ProcessedOn = &now
	}
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if member, err := s.stores.Staff.GetStaffByEmployeeID(ctx, principal.Subject); err == nil {
		application.StaffID = &member.ID
	}

	var tempPassword string
	if next == admissions.StatusApproved {
		student, password, err := s.enrollApplicant(ctx, &application, now)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		application.StudentID = student.RollNo
		tempPassword = password
	}

	stored, err := s.stores.Admissions.PutApplication(ctx, application)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.notifyDecision(ctx, stored, tempPassword)
	if next.Decided() {
		s.hub.Broadcast(dashboard.NewEvent(dashboard.EventAdmissionDecided, s.now(), map[string]any{
			"application_id": stored.ApplicationID,
			"status":         string(stored.Status),
			"student_id":     stored.StudentID,
		}))
	}
	writeJSON(w, http.StatusOK, applicationView(stored))
}

// enrollApplicant converts an approved application into a student record
// with a freshly assigned roll number and a temporary password.
func (s *Server) enrollApplicant(ctx context.Context, application *admissions.Application, now time.Time) (students.Student, string, error) {
	course, err := s.stores.Courses.GetCourse(ctx, application.CourseID)
	if err != nil {
		return students.Student{}, "", err
	}
	enrolled, err := s.stores.Courses.CountEnrollment(ctx, course.ID)
	if err != nil {
		return students.Student{}, "", err
	}
	if enrolled >= course.TotalSeats {
		return students.Student{}, "", apperrors.New(apperrors.CodeCourseSeatsFull, "no seats available in the course")
	}

	serial, err := s.stores.Students.NextRollSerial(ctx, course.ID, now.Year())
	if err != nil {
		return students.Student{}, "", err
	}
	password := application.TemporaryPassword()
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return students.Student{}, "", err
	}

	student := students.Student{
		RollNo:          students.FormatRollNo(now.Year(), course.CourseCode, serial),
		Name:            application.Name,
		Email:           application.Email,
		Phone:           application.Phone,
		DateOfBirth:     application.DateOfBirth,
		Gender:          application.Gender,
		Address:         application.Address,
		City:            application.City,
		State:           application.State,
		Pincode:         application.Pincode,
		FatherName:      application.FatherName,
		MotherName:      application.MotherName,
		GuardianPhone:   application.GuardianPhone,
		GuardianEmail:   application.GuardianEmail,
		CourseID:        course.ID,
		AdmissionYear:   now.Year(),
		CurrentSemester: 1,
		PasswordHash:    passwordHash,
		IsActive:        true,
		RegisteredOn:    now,
		UpdatedOn:       now,
	}
	if err := s.stores.Students.PutStudent(ctx, student); err != nil {
		return students.Student{}, "", err
	}
	return student, password, nil
}

// notifyDecision queues the status email, including first-login
// credentials on approval.
func (s *Server) notifyDecision(ctx context.Context, application admissions.Application, tempPassword string) {
	dedupe := "admission-" + string(application.Status) + "-" + application.ApplicationID
	if application.Status == admissions.StatusApproved {
		s.enqueueMail(ctx, application.Email, dedupe, func() (mailer.Email, error) {
			course, err := s.stores.Courses.GetCourse(ctx, application.CourseID)
			if err != nil {
				return mailer.Email{}, err
			}
			return mailer.WelcomeEmail(application.Name, application.StudentID, course.DisplayName(), tempPassword)
		})
		return
	}
	s.enqueueMail(ctx, application.Email, dedupe, func() (mailer.Email, error) {
		remarks := application.Remarks
		if application.Status == admissions.StatusDeclined {
			remarks = application.RejectionReason
		}
		return mailer.AdmissionStatusEmail(application.Name, application.ApplicationID, string(application.Status), remarks)
	})
}

func (s *Server) handleAdmissionVerifyDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Verified map[string]bool `json:"verified"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	application, err := s.stores.Admissions.GetApplication(ctx, strings.ToUpper(r.PathValue("applicationID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	required := make(map[string]bool, len(application.DocumentsRequired))
	for _, doc := range application.DocumentsRequired {
		required[doc] = true
	}
	if application.DocumentsVerified == nil {
		application.DocumentsVerified = map[string]bool{}
	}
	for doc, ok := range req.Verified {
		if !required[doc] {
			s.writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "unknown document: "+doc))
			return
		}
		application.DocumentsVerified[doc] = ok
	}
	application.UpdatedOn = s.now().UTC()

	stored, err := s.stores.Admissions.PutApplication(ctx, application)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationView(stored))
}

func (s *Server) handleAdmissionStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	stats, err := s.stores.Admissions.GetAdmissionStatistics(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":           stats.Total,
		"by_status":       stats.ByStatus,
		"conversion_rate": stats.ConversionRate,
	})
}

// enqueueMail renders and stores an outbox message. Mail problems are
// logged rather than failing the request that triggered them.
func (s *Server) enqueueMail(ctx context.Context, recipient, dedupeKey string, build func() (mailer.Email, error)) {
	email, err := build()
	if err != nil {
		s.logger.Printf("render mail %s: %v", dedupeKey, err)
		return
	}
	message, err := mailer.NewMessage(recipient, email, dedupeKey, s.now().UTC())
	if err != nil {
		s.logger.Printf("build mail %s: %v", dedupeKey, err)
		return
	}
	if err := s.stores.Outbox.EnqueueMessage(ctx, message); err != nil {
		s.logger.Printf("enqueue mail %s: %v", dedupeKey, err)
	}
}
