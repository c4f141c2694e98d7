package server

import (
	"time"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
	"github.com/Anuraj-dev/student-erp/internal/courses"
	"github.com/Anuraj-dev/student-erp/internal/exams"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/hostel"
	"github.com/Anuraj-dev/student-erp/internal/library"
	"github.com/Anuraj-dev/student-erp/internal/staff"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// View types shape API responses. Password hashes and other internal
// fields never leave the server.

type courseViewBody struct {
	ID              int64  `json:"id"`
	ProgramLevel    string `json:"program_level"`
	DegreeName      string `json:"degree_name"`
	CourseName      string `json:"course_name"`
	CourseCode      string `json:"course_code"`
	DisplayName     string `json:"display_name"`
	DurationYears   int    `json:"duration_years"`
	Description     string `json:"description,omitempty"`
	FeesPerSemester int64  `json:"fees_per_semester"`
	TotalSeats      int    `json:"total_seats"`
	IsActive        bool   `json:"is_active"`
}

type enrollmentViewBody struct {
	courseViewBody
	Enrolled              int  `json:"enrolled"`
	AvailableSeats        int  `json:"available_seats"`
	AcceptingApplications bool `json:"accepting_applications"`
}

func courseView(c courses.Course) courseViewBody {
	return courseViewBody{
		ID:              c.ID,
		ProgramLevel:    c.ProgramLevel,
		DegreeName:      c.DegreeName,
		CourseName:      c.CourseName,
		CourseCode:      c.CourseCode,
		DisplayName:     c.DisplayName(),
		DurationYears:   c.DurationYears,
		Description:     c.Description,
		FeesPerSemester: c.FeesPerSemester,
		TotalSeats:      c.TotalSeats,
		IsActive:        c.IsActive,
	}
}

func enrollmentView(e courses.Enrollment) enrollmentViewBody {
	return enrollmentViewBody{
		courseViewBody:        courseView(e.Course),
		Enrolled:              e.Enrolled,
		AvailableSeats:        e.AvailableSeats(),
		AcceptingApplications: e.AcceptingApplications(),
	}
}

type studentViewBody struct {
	RollNo          string     `json:"roll_no"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	DateOfBirth     time.Time  `json:"date_of_birth"`
	Gender          string     `json:"gender"`
	Address         string     `json:"address,omitempty"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	Pincode         string     `json:"pincode,omitempty"`
	FatherName      string     `json:"father_name,omitempty"`
	MotherName      string     `json:"mother_name,omitempty"`
	GuardianPhone   string     `json:"guardian_phone,omitempty"`
	GuardianEmail   string     `json:"guardian_email,omitempty"`
	CourseID        int64      `json:"course_id"`
	AdmissionYear   int        `json:"admission_year"`
	CurrentSemester int        `json:"current_semester"`
	HostelID        *int64     `json:"hostel_id,omitempty"`
	RoomNumber      string     `json:"room_number,omitempty"`
	IsActive        bool       `json:"is_active"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	RegisteredOn    time.Time  `json:"registered_on"`
}

func studentView(s students.Student) studentViewBody {
	return studentViewBody{
		RollNo:          s.RollNo,
		Name:            s.Name,
		Email:           s.Email,
		Phone:           s.Phone,
		DateOfBirth:     s.DateOfBirth,
		Gender:          string(s.Gender),
		Address:         s.Address,
		City:            s.City,
		State:           s.State,
		Pincode:         s.Pincode,
		FatherName:      s.FatherName,
		MotherName:      s.MotherName,
		GuardianPhone:   s.GuardianPhone,
		GuardianEmail:   s.GuardianEmail,
		CourseID:        s.CourseID,
		AdmissionYear:   s.AdmissionYear,
		CurrentSemester: s.CurrentSemester,
		HostelID:        s.HostelID,
		RoomNumber:      s.RoomNumber,
		IsActive:        s.IsActive,
		LastLogin:       s.LastLogin,
		RegisteredOn:    s.RegisteredOn,
	}
}

type staffViewBody struct {
	ID            int64      `json:"id"`
	EmployeeID    string     `json:"employee_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Role          string     `json:"role"`
	Department    string     `json:"department,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	DateOfJoining time.Time  `json:"date_of_joining"`
}

func staffView(m staff.Member) staffViewBody {
	return staffViewBody{
		ID:            m.ID,
		EmployeeID:    m.EmployeeID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		Role:          string(m.Role),
		Department:    m.Department,
		IsActive:      m.IsActive,
		LastLogin:     m.LastLogin,
		DateOfJoining: m.DateOfJoining,
	}
}

type applicationViewBody struct {
	ApplicationID     string          `json:"application_id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	DateOfBirth       time.Time       `json:"date_of_birth"`
	Gender            string          `json:"gender"`
	CourseID          int64           `json:"course_id"`
	TenthPercentage   int             `json:"tenth_percentage"`
	TwelfthPercentage int             `json:"twelfth_percentage"`
	EntranceExamScore int             `json:"entrance_exam_score,omitempty"`
	Status            string          `json:"status"`
	StudentID         string          `json:"student_id,omitempty"`
	Remarks           string          `json:"remarks,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	ProcessedOn       *time.Time      `json:"processed_on,omitempty"`
	DocumentsRequired []string        `json:"documents_required"`
	DocumentsVerified map[string]bool `json:"documents_verified,omitempty"`
	ApplicationDate   time.Time       `json:"application_date"`
}

func applicationView(a admissions.Application) applicationViewBody {
	return applicationViewBody{
		ApplicationID:     a.ApplicationID,
		Name:              a.Name,
		Email:             a.Email,
		Phone:             a.Phone,
		DateOfBirth:       a.DateOfBirth,
		Gender:            string(a.Gender),
		CourseID:          a.CourseID,
		TenthPercentage:   a.TenthPercentage,
		TwelfthPercentage: a.TwelfthPercentage,
		EntranceExamScore: a.EntranceExamScore,
		Status:            string(a.Status),
		StudentID:         a.StudentID,
		Remarks:           a.Remarks,
		RejectionReason:   a.RejectionReason,
		ProcessedOn:       a.ProcessedOn,
		DocumentsRequired: a.DocumentsRequired,
		DocumentsVerified: a.DocumentsVerified,
		ApplicationDate:   a.ApplicationDate,
	}
}

type feeViewBody struct {
	ID            int64      `json:"id"`
	StudentID     string     `json:"student_id"`
	Type          string     `json:"type"`
	Amount        int64      `json:"amount"`
	LateFee       int64      `json:"late_fee,omitempty"`
	Discount      int64      `json:"discount,omitempty"`
	TotalAmount   int64      `json:"total_amount"`
	Semester      int        `json:"semester"`
	AcademicYear  string     `json:"academic_year"`
	Status        string     `json:"status"`
	DueDate       time.Time  `json:"due_date"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	Method        string     `json:"method,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ReceiptNumber string     `json:"receipt_number,omitempty"`
	Description   string     `json:"description,omitempty"`
}

func feeView(f fees.Fee) feeViewBody {
	return feeViewBody{
		ID:            f.ID,
		StudentID:     f.StudentID,
		Type:          string(f.Type),
		Amount:        f.Amount,
		LateFee:       f.LateFee,
		Discount:      f.Discount,
		TotalAmount:   f.TotalAmount(),
		Semester:      f.Semester,
		AcademicYear:  f.AcademicYear,
		Status:        string(f.Status),
		DueDate:       f.DueDate,
		PaymentDate:   f.PaymentDate,
		Method:        string(f.Method),
		TransactionID: f.TransactionID,
		ReceiptNumber: f.ReceiptNumber,
		Description:   f.Description,
	}
}

func feeViews(records []fees.Fee) []feeViewBody {
	out := make([]feeViewBody, 0, len(records))
	for _, f := range records {
		out = append(out, feeView(f))
	}
	return out
}

type bookViewBody struct {
	BookID          string `json:"book_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Category        string `json:"category,omitempty"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	ShelfLocation   string `json:"shelf_location,omitempty"`
	Condition       string `json:"condition,omitempty"`
	IsActive        bool   `json:"is_active"`
}

func bookView(b library.Book) bookViewBody {
	return bookViewBody{
		BookID:          b.BookID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		Category:        b.Category,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		ShelfLocation:   b.ShelfLocation,
		Condition:       b.Condition,
		IsActive:        b.IsActive,
	}
}

type issueViewBody struct {
	ID           int64      `json:"id"`
	BookID       string     `json:"book_id"`
	StudentID    string     `json:"student_id"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	LateFee      int64      `json:"late_fee,omitempty"`
	DamageFee    int64      `json:"damage_fee,omitempty"`
	RenewedCount int        `json:"renewed_count"`
	Overdue      bool       `json:"overdue"`
}

func issueView(i library.Issue, now time.Time) issueViewBody {
	return issueViewBody{
		ID:           i.ID,
		BookID:       i.BookID,
		StudentID:    i.StudentID,
		IssueDate:    i.IssueDate,
		DueDate:      i.DueDate,
		ReturnDate:   i.ReturnDate,
		LateFee:      i.LateFee,
		DamageFee:    i.DamageFee,
		RenewedCount: i.RenewedCount,
		Overdue:      i.IsOverdue(now),
	}
}

func issueViews(issues []library.Issue, now time.Time) []issueViewBody {
	out := make([]issueViewBody, 0, len(issues))
	for _, i := range issues {
		out = append(out, issueView(i, now))
	}
	return out
}

type hostelViewBody struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Kind                string  `json:"kind"`
	WardenName          string  `json:"warden_name,omitempty"`
	WardenPhone         string  `json:"warden_phone,omitempty"`
	TotalBeds           int     `json:"total_beds"`
	OccupiedBeds        int     `json:"occupied_beds"`
	AvailableBeds       int     `json:"available_beds"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
	MonthlyRent         int64   `json:"monthly_rent"`
	SecurityDeposit     int64   `json:"security_deposit"`
	MessFacility        bool    `json:"mess_facility"`
	WifiAvailable       bool    `json:"wifi_available"`
	IsActive            bool    `json:"is_active"`
}

func hostelView(h hostel.Hostel) hostelViewBody {
	return hostelViewBody{
		ID:                  h.ID,
		Name:                h.Name,
		Kind:                string(h.Kind),
		WardenName:          h.WardenName,
		WardenPhone:         h.WardenPhone,
		TotalBeds:           h.TotalBeds,
		OccupiedBeds:        h.OccupiedBeds,
		AvailableBeds:       h.AvailableBeds(),
		OccupancyPercentage: h.OccupancyPercentage(),
		MonthlyRent:         h.MonthlyRent,
		SecurityDeposit:     h.SecurityDeposit,
		MessFacility:        h.MessFacility,
		WifiAvailable:       h.WifiAvailable,
		IsActive:            h.IsActive,
	}
}

type resultViewBody struct {
	ID            int64      `json:"id"`
	StudentID     string     `json:"student_id"`
	Semester      int        `json:"semester"`
	ExamType      string     `json:"exam_type"`
	SubjectCode   string     `json:"subject_code"`
	SubjectName   string     `json:"subject_name"`
	MaxMarks      int        `json:"max_marks"`
	MarksObtained *int       `json:"marks_obtained,omitempty"`
	InternalMarks int        `json:"internal_marks"`
	ExternalMarks int        `json:"external_marks"`
	Percentage    float64    `json:"percentage"`
	Grade         string     `json:"grade,omitempty"`
	GradePoints   float64    `json:"grade_points"`
	IsAbsent      bool       `json:"is_absent,omitempty"`
	IsMalpractice bool       `json:"is_malpractice,omitempty"`
	Declared      bool       `json:"declared"`
	DeclaredOn    *time.Time `json:"declared_on,omitempty"`
}

func resultView(r exams.Result) resultViewBody {
	return resultViewBody{
		ID:            r.ID,
		StudentID:     r.StudentID,
		Semester:      r.Semester,
		ExamType:      string(r.ExamType),
		SubjectCode:   r.SubjectCode,
		SubjectName:   r.SubjectName,
		MaxMarks:      r.MaxMarks,
		MarksObtained: r.MarksObtained,
		InternalMarks: r.InternalMarks,
		ExternalMarks: r.ExternalMarks,
		Percentage:    r.Percentage(),
		Grade:         string(r.Grade),
		GradePoints:   r.Grade.Points(),
		IsAbsent:      r.IsAbsent,
		IsMalpractice: r.IsMalpractice,
		Declared:      r.Declared,
		DeclaredOn:    r.DeclaredOn,
	}
}

func resultViews(results []exams.Result) []resultViewBody {
	out := make([]resultViewBody, 0, len(results))
	for _, r := range results {
		out = append(out, resultView(r))
	}
	return out
}
