package exams

import (
	"testing"
	"time"

	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
)

func TestGradeFor(t *testing.T) {
	cases := []struct {
		percentage float64
		want       Grade
	}{
		{95, GradeO},
		{90, GradeO},
		{89.9, GradeAP},
		{80, GradeAP},
		{75, GradeA},
		{65, GradeBP},
		{60, GradeBP},
		{59.9, GradeB},
		{55, GradeB},
		{54.9, GradeC},
		{52, GradeC},
		{50, GradeC},
		{49.9, GradeP},
		{42, GradeP},
		{40, GradeP},
		{39.9, GradeF},
		{0, GradeF},
	}
	for _, tc := range cases {
		if got := GradeFor(tc.percentage); got != tc.want {
			t.Fatalf("GradeFor(%v) = %s, want %s", tc.percentage, got, tc.want)
		}
	}
}

func TestGradePoints(t *testing.T) {
	cases := []struct {
		grade Grade
		want  float64
	}{
		{GradeO, 10}, {GradeAP, 9}, {GradeA, 8}, {GradeBP, 7},
		{GradeB, 6}, {GradeC, 5}, {GradeP, 4},
		{GradeF, 0}, {GradeAB, 0}, {GradeMP, 0},
	}
	for _, tc := range cases {
		if got := tc.grade.Points(); got != tc.want {
			t.Fatalf("%s.Points() = %v, want %v", tc.grade, got, tc.want)
		}
	}
}

func declaredResult(t *testing.T, marks, max int) Result {
	t.Helper()
	r := Result{
		StudentID:   "2025CS0001",
		Semester:    1,
		ExamType:    TypeSemester,
		SubjectCode: "CS101",
		SubjectName: "Programming Fundamentals",
		MaxMarks:    max,
	}
	if err := r.Declare(Marks{Obtained: marks}, false, false, "2024FAC0001", time.Now()); err != nil {
		t.Fatalf("Declare() = %v", err)
	}
	return r
}

func TestDeclare(t *testing.T) {
	r := declaredResult(t, 85, 100)
	if r.Grade != GradeAP {
		t.Fatalf("Grade = %s, want %s", r.Grade, GradeAP)
	}
	if !r.Passed() {
		t.Fatal("Passed() = false, want true")
	}
	if r.DeclaredBy != "2024FAC0001" || r.DeclaredOn == nil {
		t.Fatal("declaration audit fields not recorded")
	}

	err := r.Declare(Marks{Obtained: 90}, false, false, "2024FAC0001", time.Now())
	if apperrors.CodeOf(err) != apperrors.CodeExamResultDeclared {
		t.Fatalf("second Declare code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeExamResultDeclared)
	}
}

func TestDeclareMarksSplit(t *testing.T) {
	r := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 100}
	if err := r.Declare(Marks{Obtained: 80, Internal: 30, External: 50}, false, false, "2024FAC0001", time.Now()); err != nil {
		t.Fatalf("Declare() = %v", err)
	}
	if r.InternalMarks != 30 || r.ExternalMarks != 50 {
		t.Fatalf("split = %d/%d, want 30/50", r.InternalMarks, r.ExternalMarks)
	}

	// External derives from the total when only internal is entered.
	derived := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS102", SubjectName: "Data Structures", MaxMarks: 100}
	if err := derived.Declare(Marks{Obtained: 72, Internal: 25}, false, false, "2024FAC0001", time.Now()); err != nil {
		t.Fatalf("Declare() = %v", err)
	}
	if derived.ExternalMarks != 47 {
		t.Fatalf("derived external = %d, want 47", derived.ExternalMarks)
	}

	mismatch := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS103", SubjectName: "Algorithms", MaxMarks: 100}
	err := mismatch.Declare(Marks{Obtained: 60, Internal: 20, External: 50}, false, false, "2024FAC0001", time.Now())
	if apperrors.CodeOf(err) != apperrors.CodeExamMarksOutOfRange {
		t.Fatalf("mismatched split code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeExamMarksOutOfRange)
	}

	absent := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS104", SubjectName: "Databases", MaxMarks: 100}
	if err := absent.Declare(Marks{Obtained: 40, Internal: 40}, true, false, "2024FAC0001", time.Now()); err != nil {
		t.Fatalf("Declare() = %v", err)
	}
	if absent.InternalMarks != 0 || absent.ExternalMarks != 0 {
		t.Fatalf("absent split = %d/%d, want 0/0", absent.InternalMarks, absent.ExternalMarks)
	}
}

func TestDeclareMarksOutOfRange(t *testing.T) {
	r := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 100}
	for _, marks := range []int{-1, 101} {
		err := r.Declare(Marks{Obtained: marks}, false, false, "2024FAC0001", time.Now())
		if apperrors.CodeOf(err) != apperrors.CodeExamMarksOutOfRange {
			t.Fatalf("Declare(%d) code = %s, want %s", marks, apperrors.CodeOf(err), apperrors.CodeExamMarksOutOfRange)
		}
	}
	if r.Declared {
		t.Fatal("Declared set after failed declaration")
	}
}

func TestDeclareAbsentAndMalpractice(t *testing.T) {
	r := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 100}
	if err := r.Declare(Marks{Obtained: 0}, true, false, "2024FAC0001", time.Now()); err != nil {
		t.Fatalf("Declare absent = %v", err)
	}
	if r.Grade != GradeAB {
		t.Fatalf("Grade = %s, want %s", r.Grade, GradeAB)
	}
	if r.Passed() {
		t.Fatal("absent result reported as passed")
	}

	m := Result{StudentID: "2025CS0002", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 100}
	if err := m.Declare(Marks{Obtained: 60}, false, true, "2024FAC0001", time.Now()); err != nil {
		t.Fatalf("Declare malpractice = %v", err)
	}
	if m.Grade != GradeMP {
		t.Fatalf("Grade = %s, want %s", m.Grade, GradeMP)
	}
	if m.MarksObtained == nil || *m.MarksObtained != 0 {
		t.Fatal("malpractice marks not zeroed")
	}
}

func TestUpdateRequiresDeclaration(t *testing.T) {
	r := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 100}
	err := r.Update(Marks{Obtained: 50}, false, false, "2024FAC0001", time.Now())
	if apperrors.CodeOf(err) != apperrors.CodeExamResultNotDeclared {
		t.Fatalf("Update code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeExamResultNotDeclared)
	}

	declared := declaredResult(t, 38, 100)
	if declared.Passed() {
		t.Fatal("38% reported as passed")
	}
	if err := declared.Update(Marks{Obtained: 52}, false, false, "2024FAC0002", time.Now()); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	if declared.Grade != GradeC || !declared.Passed() {
		t.Fatalf("after update grade = %s passed = %v", declared.Grade, declared.Passed())
	}
}

func TestGPAExcludesAbsences(t *testing.T) {
	now := time.Now()
	declare := func(marks int, absent bool) Result {
		r := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "X", SubjectName: "X", MaxMarks: 100}
		if err := r.Declare(Marks{Obtained: marks}, absent, false, "2024FAC0001", now); err != nil {
			t.Fatalf("Declare() = %v", err)
		}
		return r
	}
	results := []Result{
		declare(92, false), // O = 10
		declare(72, false), // A = 8
		declare(0, true),   // AB, excluded
	}
	if got := GPA(results); got != 9 {
		t.Fatalf("GPA = %v, want 9", got)
	}
	if got := GPA(nil); got != 0 {
		t.Fatalf("GPA(nil) = %v, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	declare := func(sem, marks int) Result {
		r := Result{StudentID: "2025CS0001", Semester: sem, ExamType: TypeSemester, SubjectCode: "X", SubjectName: "X", MaxMarks: 100}
		if err := r.Declare(Marks{Obtained: marks}, false, false, "2024FAC0001", now); err != nil {
			t.Fatalf("Declare() = %v", err)
		}
		return r
	}
	summaries := Summarize([]Result{
		declare(1, 90),
		declare(1, 30),
		declare(2, 60),
	})
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	first := summaries[0]
	if first.Semester != 1 || first.SubjectsPassed != 1 || first.SubjectsFailed != 1 {
		t.Fatalf("semester 1 summary = %+v", first)
	}
	if first.SGPA != 5 { // (10 + 0) / 2
		t.Fatalf("semester 1 SGPA = %v, want 5", first.SGPA)
	}
	if first.TotalMarks != 200 || first.MarksScored != 120 {
		t.Fatalf("semester 1 marks = %d/%d", first.MarksScored, first.TotalMarks)
	}
	if summaries[1].Semester != 2 {
		t.Fatalf("second summary semester = %d, want 2", summaries[1].Semester)
	}
}

func TestComputeClassPerformance(t *testing.T) {
	now := time.Now()
	declare := func(marks int, absent bool) Result {
		r := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeSemester, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 100}
		if err := r.Declare(Marks{Obtained: marks}, absent, false, "2024FAC0001", now); err != nil {
			t.Fatalf("Declare() = %v", err)
		}
		return r
	}
	perf := ComputeClassPerformance("CS101", []Result{
		declare(80, false),
		declare(20, false),
		declare(0, true),
	})
	if perf.TotalStudents != 3 || perf.Appeared != 2 {
		t.Fatalf("students = %d appeared = %d", perf.TotalStudents, perf.Appeared)
	}
	if perf.Passed != 1 || perf.PassRate != 50 {
		t.Fatalf("passed = %d rate = %v", perf.Passed, perf.PassRate)
	}
	if perf.HighestMarks != 80 || perf.LowestMarks != 20 || perf.AverageMarks != 50 {
		t.Fatalf("marks = high %d low %d avg %v", perf.HighestMarks, perf.LowestMarks, perf.AverageMarks)
	}

	empty := ComputeClassPerformance("CS101", nil)
	if empty.LowestMarks != 0 || empty.PassRate != 0 {
		t.Fatalf("empty performance = %+v", empty)
	}
}

func TestResultValidate(t *testing.T) {
	valid := Result{StudentID: "2025CS0001", Semester: 1, ExamType: TypeInternal, SubjectCode: "CS101", SubjectName: "Programming", MaxMarks: 50}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	cases := []struct {
		name   string
		mutate func(*Result)
	}{
		{"missing student", func(r *Result) { r.StudentID = "" }},
		{"zero semester", func(r *Result) { r.Semester = 0 }},
		{"bad type", func(r *Result) { r.ExamType = "quiz" }},
		{"missing subject", func(r *Result) { r.SubjectCode = "" }},
		{"zero max marks", func(r *Result) { r.MaxMarks = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			if apperrors.CodeOf(r.Validate()) != apperrors.CodeExamInvalid {
				t.Fatalf("code = %s, want %s", apperrors.CodeOf(r.Validate()), apperrors.CodeExamInvalid)
			}
		})
	}
}
