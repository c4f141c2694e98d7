// Package exams records exam results and computes grades and GPA.
package exams

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

// ErrNotFound indicates a requested exam record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "exam result not found")

// PassPercentage is the minimum percentage to pass a subject.
const PassPercentage = 40.0

// Type categorizes an examination.
type Type string

const (
	TypeInternal      Type = "internal"
	TypeSemester      Type = "semester"
	TypeFinal         Type = "final"
	TypeSupplementary Type = "supplementary"
)

// Valid reports whether the exam type is recognized.
func (t Type) Valid() bool {
	switch t {
	case TypeInternal, TypeSemester, TypeFinal, TypeSupplementary:
		return true
	}
	return false
}

// Grade is a letter grade on a 10-point scale.
type Grade string

const (
	GradeO  Grade = "O"  // outstanding, >= 90%
	GradeAP Grade = "A+" // >= 80%
	GradeA  Grade = "A"  // >= 70%
	GradeBP Grade = "B+" // >= 60%
	GradeB  Grade = "B"  // >= 55%
	GradeC  Grade = "C"  // >= 50%
	GradeP  Grade = "P"  // pass, >= 40%
	GradeF  Grade = "F"  // fail
	GradeAB Grade = "AB" // absent
	GradeMP Grade = "MP" // malpractice
)

// GradeFor maps a percentage to its letter grade.
func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 90:
		return GradeO
	case percentage >= 80:
		return GradeAP
	case percentage >= 70:
		return GradeA
	case percentage >= 60:
		return GradeBP
	case percentage >= 55:
		return GradeB
	case percentage >= 50:
		return GradeC
	case percentage >= PassPercentage:
		return GradeP
	default:
		return GradeF
	}
}

// Points is the grade point value used for GPA computation.
func (g Grade) Points() float64 {
	switch g {
	case GradeO:
		return 10
	case GradeAP:
		return 9
	case GradeA:
		return 8
	case GradeBP:
		return 7
	case GradeB:
		return 6
	case GradeC:
		return 5
	case GradeP:
		return 4
	default:
		return 0
	}
}

// Counted reports whether the grade participates in GPA averages.
// Absence and malpractice are excluded rather than averaged as zero.
func (g Grade) Counted() bool {
	return g != GradeAB && g != GradeMP
}

// Result is one student's marks in one subject of one exam.
type Result struct {
	ID            int64
	StudentID     string // roll number
	Semester      int
	ExamType      Type
	SubjectCode   string
	SubjectName   string
	MaxMarks      int
	MarksObtained *int // nil until declared
	InternalMarks int
	ExternalMarks int
	Grade         Grade
	IsAbsent      bool
	IsMalpractice bool
	Declared      bool
	DeclaredBy    string // employee ID
	DeclaredOn    *time.Time
	Remarks       string
	CreatedOn     time.Time
	UpdatedOn     time.Time
}

// Percentage is the marks share of the maximum, 0 before declaration.
func (r Result) Percentage() float64 {
	if r.MarksObtained == nil || r.MaxMarks == 0 {
		return 0
	}
	return float64(*r.MarksObtained) / float64(r.MaxMarks) * 100
}

// Passed reports whether the declared result meets the pass mark.
func (r Result) Passed() bool {
	if !r.Declared || r.IsAbsent || r.IsMalpractice {
		return false
	}
	return r.Percentage() >= PassPercentage
}

// Validate checks result fields before persistence.
func (r Result) Validate() error {
	if strings.TrimSpace(r.StudentID) == "" {
		return apperrors.New(apperrors.CodeExamInvalid, "student is required")
	}
	if r.Semester < 1 {
		return apperrors.New(apperrors.CodeExamInvalid, "semester must be positive")
	}
	if !r.ExamType.Valid() {
		return apperrors.New(apperrors.CodeExamInvalid, "exam type is invalid")
	}
	if strings.TrimSpace(r.SubjectCode) == "" || strings.TrimSpace(r.SubjectName) == "" {
		return apperrors.New(apperrors.CodeExamInvalid, "subject is required")
	}
	if r.MaxMarks < 1 {
		return apperrors.New(apperrors.CodeExamInvalid, "max marks must be positive")
	}
	return nil
}

// Marks is a declared score with its internal assessment and external
// examination components.
type Marks struct {
	Obtained int
	Internal int
	External int
}

// withDerivedExternal fills the external component from the total when
// marks are entered as total plus internal only.
func (m Marks) withDerivedExternal() Marks {
	if m.External == 0 {
		m.External = m.Obtained - m.Internal
	}
	return m
}

// Declare records marks for the result and assigns the grade. Absent and
// malpractice declarations ignore the marks and record the special grade.
func (r *Result) Declare(marks Marks, absent, malpractice bool, by string, now time.Time) error {
	if r.Declared {
		return apperrors.New(apperrors.CodeExamResultDeclared, "result already declared")
	}
	return r.record(marks, absent, malpractice, by, now)
}

// Update revises an already declared result, keeping the declaration audit.
func (r *Result) Update(marks Marks, absent, malpractice bool, by string, now time.Time) error {
	if !r.Declared {
		return apperrors.New(apperrors.CodeExamResultNotDeclared, "result not declared")
	}
	return r.record(marks, absent, malpractice, by, now)
}

func (r *Result) record(marks Marks, absent, malpractice bool, by string, now time.Time) error {
	switch {
	case malpractice:
		r.Grade = GradeMP
		zero := 0
		r.MarksObtained = &zero
		r.InternalMarks = 0
		r.ExternalMarks = 0
	case absent:
		r.Grade = GradeAB
		zero := 0
		r.MarksObtained = &zero
		r.InternalMarks = 0
		r.ExternalMarks = 0
	default:
		marks = marks.withDerivedExternal()
		if marks.Obtained < 0 || marks.Obtained > r.MaxMarks {
			return apperrors.New(apperrors.CodeExamMarksOutOfRange, "marks out of range")
		}
		if marks.Internal < 0 || marks.External < 0 || marks.Internal+marks.External != marks.Obtained {
			return apperrors.New(apperrors.CodeExamMarksOutOfRange, "marks split does not sum to total")
		}
		obtained := marks.Obtained
		r.MarksObtained = &obtained
		r.InternalMarks = marks.Internal
		r.ExternalMarks = marks.External
		r.Grade = GradeFor(float64(obtained) / float64(r.MaxMarks) * 100)
	}
	r.IsAbsent = absent
	r.IsMalpractice = malpractice
	r.Declared = true
	r.DeclaredBy = by
	r.DeclaredOn = &now
	r.UpdatedOn = now
	return nil
}

// GPA averages the grade points of declared, counted results. Absences
// and malpractice entries are skipped; an empty input yields 0.
func GPA(results []Result) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if !r.Declared || !r.Grade.Counted() {
			continue
		}
		sum += r.Grade.Points()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SemesterSummary is the per-semester report card view.
type SemesterSummary struct {
	Semester       int
	Results        []Result
	SGPA           float64
	TotalMarks     int
	MarksScored    int
	SubjectsPassed int
	SubjectsFailed int
}

// Summarize groups results by semester and computes SGPA per group.
// The returned slice is ordered by semester.
func Summarize(results []Result) []SemesterSummary {
	bySem := map[int][]Result{}
	maxSem := 0
	for _, r := range results {
		bySem[r.Semester] = append(bySem[r.Semester], r)
		if r.Semester > maxSem {
			maxSem = r.Semester
		}
	}
	var out []SemesterSummary
	for sem := 1; sem <= maxSem; sem++ {
		group, ok := bySem[sem]
		if !ok {
			continue
		}
		s := SemesterSummary{Semester: sem, Results: group, SGPA: GPA(group)}
		for _, r := range group {
			if !r.Declared {
				continue
			}
			s.TotalMarks += r.MaxMarks
			if r.MarksObtained != nil {
				s.MarksScored += *r.MarksObtained
			}
			if r.Passed() {
				s.SubjectsPassed++
			} else {
				s.SubjectsFailed++
			}
		}
		out = append(out, s)
	}
	return out
}

// ClassPerformance aggregates declared results for a course cohort.
type ClassPerformance struct {
	Subject       string
	TotalStudents int
	Appeared      int
	Passed        int
	PassRate      float64
	AverageMarks  float64
	HighestMarks  int
	LowestMarks   int
}

// ComputeClassPerformance folds one subject's declared results into a
// cohort summary. Absent and malpractice entries count toward the total
// but not toward appeared.
func ComputeClassPerformance(subject string, results []Result) ClassPerformance {
	p := ClassPerformance{Subject: subject, TotalStudents: len(results), LowestMarks: -1}
	var sum int
	for _, r := range results {
		if !r.Declared || r.IsAbsent || r.IsMalpractice || r.MarksObtained == nil {
			continue
		}
		marks := *r.MarksObtained
		p.Appeared++
		sum += marks
		if r.Passed() {
			p.Passed++
		}
		if marks > p.HighestMarks {
			p.HighestMarks = marks
		}
		if p.LowestMarks < 0 || marks < p.LowestMarks {
			p.LowestMarks = marks
		}
	}
	if p.LowestMarks < 0 {
		p.LowestMarks = 0
	}
	if p.Appeared > 0 {
		p.PassRate = float64(p.Passed) / float64(p.Appeared) * 100
		p.AverageMarks = float64(sum) / float64(p.Appeared)
	}
	return p
}

// ListFilter narrows result queries.
type ListFilter struct {
	StudentID   string
	CourseID    int64
	Semester    int
	ExamType    Type
	SubjectCode string
	Declared    *bool
}

// Store persists exam results.
type Store interface {
	PutResult(ctx context.Context, result Result) (Result, error)
	GetResult(ctx context.Context, id int64) (Result, error)
	// GetStudentResult returns the result for one student, subject,
	// semester and exam type, or ErrNotFound.
	GetStudentResult(ctx context.Context, studentID, subjectCode string, semester int, examType Type) (Result, error)
	ListResults(ctx context.Context, filter ListFilter) ([]Result, error)
	// ListStudentResults returns all results for a student ordered by
	// semester then subject.
	ListStudentResults(ctx context.Context, studentID string) ([]Result, error)
}
