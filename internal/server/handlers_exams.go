package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Anuraj-dev/student-erp/internal/exams"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
)

type resultRequest struct {
	StudentID     string `json:"student_id"`
	Semester      int    `json:"semester"`
	ExamType      string `json:"exam_type"`
	SubjectCode   string `json:"subject_code"`
	SubjectName   string `json:"subject_name"`
	MaxMarks      int    `json:"max_marks"`
	MarksObtained int    `json:"marks_obtained"`
	InternalMarks int    `json:"internal_marks"`
	ExternalMarks int    `json:"external_marks"`
	IsAbsent      bool   `json:"is_absent"`
	IsMalpractice bool   `json:"is_malpractice"`
	Remarks       string `json:"remarks"`
}

func (r resultRequest) marks() exams.Marks {
	return exams.Marks{
		Obtained: r.MarksObtained,
		Internal: r.InternalMarks,
		External: r.ExternalMarks,
	}
}

func (s *Server) handleResultDeclare(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	examType := exams.Type(req.ExamType)
	if !examType.Valid() {
		s.writeError(w, r, apperrors.New(apperrors.CodeExamInvalid, "exam type is invalid"))
		return
	}
	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))
	subjectCode := strings.ToUpper(strings.TrimSpace(req.SubjectCode))

	ctx, cancel := s.requestContext(r)
	defer cancel()
	if _, err := s.stores.Students.GetStudent(ctx, studentID); err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	result, err := s.stores.Exams.GetStudentResult(ctx, studentID, subjectCode, req.Semester, examType)
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		result = exams.Result{
			StudentID:   studentID,
			Semester:    req.Semester,
			ExamType:    examType,
			SubjectCode: subjectCode,
			SubjectName: req.SubjectName,
			MaxMarks:    req.MaxMarks,
			Remarks:     req.Remarks,
			CreatedOn:   now,
			UpdatedOn:   now,
		}
	default:
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if err := result.Declare(req.marks(), req.IsAbsent, req.IsMalpractice, principal.Subject, now); err != nil {
		s.writeError(w, r, err)
		return
	}
	stored, err := s.stores.Exams.PutResult(ctx, result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resultView(stored))
}

func (s *Server) handleResultUpdate(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	examType := exams.Type(req.ExamType)
	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))
	subjectCode := strings.ToUpper(strings.TrimSpace(req.SubjectCode))

	ctx, cancel := s.requestContext(r)
	defer cancel()
	result, err := s.stores.Exams.GetStudentResult(ctx, studentID, subjectCode, req.Semester, examType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if err := result.Update(req.marks(), req.IsAbsent, req.IsMalpractice, principal.Subject, s.now().UTC()); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Remarks != "" {
		result.Remarks = req.Remarks
	}
	stored, err := s.stores.Exams.PutResult(ctx, result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultView(stored))
}

func (s *Server) handleClassPerformance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	subjectCode := strings.ToUpper(strings.TrimSpace(query.Get("subject_code")))
	if subjectCode == "" {
		s.writeError(w, r, apperrors.New(apperrors.CodeBadRequest, "subject_code is required"))
		return
	}
	declared := true
	filter := exams.ListFilter{
		SubjectCode: subjectCode,
		ExamType:    exams.Type(query.Get("exam_type")),
		Declared:    &declared,
	}
	if v := query.Get("course_id"); v != "" {
		filter.CourseID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("semester"); v != "" {
		filter.Semester, _ = strconv.Atoi(v)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	results, err := s.stores.Exams.ListResults(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	perf := exams.ComputeClassPerformance(subjectCode, results)
	writeJSON(w, http.StatusOK, map[string]any{
		"subject":        perf.Subject,
		"total_students": perf.TotalStudents,
		"appeared":       perf.Appeared,
		"passed":         perf.Passed,
		"pass_rate":      perf.PassRate,
		"average_marks":  perf.AverageMarks,
		"highest_marks":  perf.HighestMarks,
		"lowest_marks":   perf.LowestMarks,
	})
}
