package server

import (
	"net/http"
	"strconv"

	"github.com/Anuraj-dev/student-erp/internal/courses"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

type courseRequest struct {
	ProgramLevel    string `json:"program_level"`
	DegreeName      string `json:"degree_name"`
	CourseName      string `json:"course_name"`
	CourseCode      string `json:"course_code"`
	DurationYears   int    `json:"duration_years"`
	Description     string `json:"description"`
	FeesPerSemester int64  `json:"fees_per_semester"`
	TotalSeats      int    `json:"total_seats"`
	IsActive        *bool  `json:"is_active"`
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.CodeBadRequest, "invalid "+name)
	}
	return id, nil
}

func (s *Server) handleCourseList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	list, err := s.stores.Courses.ListCourses(ctx, activeOnly)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]enrollmentViewBody, 0, len(list))
	for _, course := range list {
		enrolled, err := s.stores.Courses.CountEnrollment(ctx, course.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, enrollmentView(courses.Enrollment{Course: course, Enrolled: enrolled}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

func (s *Server) handleCourseGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	course, err := s.stores.Courses.GetCourse(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	enrolled, err := s.stores.Courses.CountEnrollment(ctx, course.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentView(courses.Enrollment{Course: course, Enrolled: enrolled}))
}

func (s *Server) handleCourseCreate(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now().UTC()
	course := courses.Course{
		ProgramLevel:    req.ProgramLevel,
		DegreeName:      req.DegreeName,
		CourseName:      req.CourseName,
		CourseCode:      req.CourseCode,
		DurationYears:   req.DurationYears,
		Description:     req.Description,
		FeesPerSemester: req.FeesPerSemester,
		TotalSeats:      req.TotalSeats,
		IsActive:        true,
		CreatedOn:       now,
		UpdatedOn:       now,
	}
	if err := course.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	stored, err := s.stores.Courses.PutCourse(ctx, course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, courseView(stored))
}

func (s *Server) handleCourseUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req courseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	course, err := s.stores.Courses.GetCourse(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.ProgramLevel != "" {
		course.ProgramLevel = req.ProgramLevel
	}
	if req.DegreeName != "" {
		course.DegreeName = req.DegreeName
	}
	if req.CourseName != "" {
		course.CourseName = req.CourseName
	}
	if req.Description != "" {
		course.Description = req.Description
	}
	if req.DurationYears > 0 {
		course.DurationYears = req.DurationYears
	}
	if req.FeesPerSemester > 0 {
		course.FeesPerSemester = req.FeesPerSemester
	}
	if req.TotalSeats > 0 {
		course.TotalSeats = req.TotalSeats
	}
	if req.IsActive != nil {
		course.IsActive = *req.IsActive
	}
	course.UpdatedOn = s.now().UTC()

	if err := course.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	stored, err := s.stores.Courses.PutCourse(ctx, course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courseView(stored))
}
