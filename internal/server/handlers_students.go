package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/documents"
	"github.com/Anuraj-dev/student-erp/internal/exams"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// pathRollNo reads and normalizes the roll number path segment.
func pathRollNo(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.PathValue("rollNo")))
}

// canViewStudent reports whether the principal may read the record.
// Students see only themselves; staff and faculty see everyone.
func canViewStudent(principal requestctx.Principal, rollNo string) bool {
	if principal.Role == string(auth.RoleStudent) {
		return principal.Subject == rollNo
	}
	return true
}

func (s *Server) handleStudentList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := students.ListFilter{
		Query:           query.Get("q"),
		IncludeInactive: query.Get("include_inactive") == "true",
		PageToken:       query.Get("page_token"),
	}
	if v := query.Get("course_id"); v != "" {
		filter.CourseID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("admission_year"); v != "" {
		filter.AdmissionYear, _ = strconv.Atoi(v)
	}
	if v := query.Get("hostel_id"); v != "" {
		filter.HostelID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("page_size"); v != "" {
		filter.PageSize, _ = strconv.Atoi(v)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	page, err := s.stores.Students.ListStudents(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]studentViewBody, 0, len(page.Students))
	for _, student := range page.Students {
		out = append(out, studentView(student))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"students":        out,
		"next_page_token": page.NextPageToken,
	})
}

func (s *Server) handleStudentGet(w http.ResponseWriter, r *http.Request) {
	rollNo := pathRollNo(r)
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, rollNo) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, rollNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	course, err := s.stores.Courses.GetCourse(ctx, student.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	progress := student.AcademicProgress(course.DurationYears)
	writeJSON(w, http.StatusOK, map[string]any{
		"student": studentView(student),
		"course":  courseView(course),
		"progress": map[string]any{
			"current_semester":    progress.CurrentSemester,
			"total_semesters":     progress.TotalSemesters,
			"progress_percentage": progress.ProgressPercentage,
			"years_completed":     progress.YearsCompleted,
			"is_final_year":       progress.IsFinalYear,
		},
	})
}

func (s *Server) handleStudentUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone         string `json:"phone"`
		Address       string `json:"address"`
		City          string `json:"city"`
		State         string `json:"state"`
		Pincode       string `json:"pincode"`
		GuardianPhone string `json:"guardian_phone"`
		GuardianEmail string `json:"guardian_email"`
		RoomNumber    string `json:"room_number"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, pathRollNo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Phone != "" {
		student.Phone = req.Phone
	}
	if req.Address != "" {
		student.Address = req.Address
	}
	if req.City != "" {
		student.City = req.City
	}
	if req.State != "" {
		student.State = req.State
	}
	if req.Pincode != "" {
		student.Pincode = req.Pincode
	}
	if req.GuardianPhone != "" {
		student.GuardianPhone = req.GuardianPhone
	}
	if req.GuardianEmail != "" {
		student.GuardianEmail = req.GuardianEmail
	}
	if req.RoomNumber != "" {
		student.RoomNumber = req.RoomNumber
	}
	student.UpdatedOn = s.now().UTC()

	if err := student.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.stores.Students.PutStudent(ctx, student); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentView(student))
}

// handleStudentDeactivate retires a student record. Records are never
// deleted; history must stay resolvable.
func (s *Server) handleStudentDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, pathRollNo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !student.IsActive {
		s.writeError(w, r, apperrors.New(apperrors.CodeStudentInactive, "student is already inactive"))
		return
	}
	student.IsActive = false
	student.UpdatedOn = s.now().UTC()
	if err := s.stores.Students.PutStudent(ctx, student); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentView(student))
}

func (s *Server) handleStudentPromote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, pathRollNo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !student.IsActive {
		s.writeError(w, r, apperrors.New(apperrors.CodeStudentInactive, "student is inactive"))
		return
	}
	course, err := s.stores.Courses.GetCourse(ctx, student.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if student.CurrentSemester >= course.TotalSemesters() {
		s.writeError(w, r, apperrors.New(apperrors.CodeStudentFinalSemester, "student is in the final semester"))
		return
	}
	student.CurrentSemester++
	student.UpdatedOn = s.now().UTC()
	if err := s.stores.Students.PutStudent(ctx, student); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, studentView(student))
}

func (s *Server) handleStudentStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	stats, err := s.stores.Students.GetStudentStatistics(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_active":    stats.TotalActive,
		"total_inactive":  stats.TotalInactive,
		"by_course":       stats.ByCourse,
		"by_year":         stats.ByYear,
		"by_gender":       stats.ByGender,
		"hostel_dwellers": stats.HostelDwellers,
	})
}

func (s *Server) handleStudentFees(w http.ResponseWriter, r *http.Request) {
	rollNo := pathRollNo(r)
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, rollNo) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	filter := fees.ListFilter{StudentID: rollNo}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = fees.Status(status)
	}
	records, err := s.stores.Fees.ListFees(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var pending int64
	for _, fee := range records {
		if fee.Status == fees.StatusPending || fee.Status == fees.StatusOverdue {
			pending += fee.TotalAmount()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fees":      feeViews(records),
		"total_due": pending,
	})
}

func (s *Server) handleStudentLibrary(w http.ResponseWriter, r *http.Request) {
	rollNo := pathRollNo(r)
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, rollNo) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	activeOnly := r.URL.Query().Get("active_only") == "true"
	issues, err := s.stores.Library.ListStudentIssues(ctx, rollNo, activeOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issueViews(issues, s.now())})
}

func (s *Server) handleStudentResults(w http.ResponseWriter, r *http.Request) {
	rollNo := pathRollNo(r)
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, rollNo) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	results, err := s.stores.Exams.ListStudentResults(ctx, rollNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	declared := declaredResults(results, principal)
	summaries := exams.Summarize(declared)
	out := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, map[string]any{
			"semester":        summary.Semester,
			"results":         resultViews(summary.Results),
			"sgpa":            summary.SGPA,
			"total_marks":     summary.TotalMarks,
			"marks_scored":    summary.MarksScored,
			"subjects_passed": summary.SubjectsPassed,
			"subjects_failed": summary.SubjectsFailed,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"semesters": out,
		"cgpa":      exams.GPA(declared),
	})
}

// declaredResults hides undeclared entries from students. Staff see the
// full ledger.
func declaredResults(results []exams.Result, principal requestctx.Principal) []exams.Result {
	if principal.Role != string(auth.RoleStudent) {
		return results
	}
	out := make([]exams.Result, 0, len(results))
	for _, result := range results {
		if result.Declared {
			out = append(out, result)
		}
	}
	return out
}

func (s *Server) handleStudentTranscript(w http.ResponseWriter, r *http.Request) {
	rollNo := pathRollNo(r)
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, rollNo) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, rollNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	course, err := s.stores.Courses.GetCourse(ctx, student.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.stores.Exams.ListStudentResults(ctx, rollNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	declared := declaredResults(results, principal)
	pdf, err := documents.TranscriptPDF(student, course, exams.Summarize(declared), exams.GPA(declared))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePDF(w, "transcript-"+rollNo+".pdf", pdf)
}

func (s *Server) handleStudentIDCard(w http.ResponseWriter, r *http.Request) {
	rollNo := pathRollNo(r)
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, rollNo) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	student, err := s.stores.Students.GetStudent(ctx, rollNo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	course, err := s.stores.Courses.GetCourse(ctx, student.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pdf, err := documents.StudentIDCardPDF(student, course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writePDF(w, "id-card-"+rollNo+".pdf", pdf)
}
