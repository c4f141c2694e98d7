package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/library"
)

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	return e.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword}).AccessToken
}

func TestFeeDemandAndPayment(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)

	status, resp := env.request(t, http.MethodPost, "/api/v1/fees/demand", token, map[string]any{
		"course_id": course.ID,
		"semester":  1,
		"type":      "tuition",
	})
	if status != http.StatusOK {
		t.Fatalf("demand status = %d, error = %+v", status, resp.Error)
	}
	var demand struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	if err := json.Unmarshal(resp.Data, &demand); err != nil {
		t.Fatalf("decode demand: %v", err)
	}
	if demand.Created != 1 || demand.Skipped != 0 {
		t.Fatalf("demand = %+v", demand)
	}

	// A rerun skips the existing demand instead of duplicating it.
	_, resp = env.request(t, http.MethodPost, "/api/v1/fees/demand", token, map[string]any{
		"course_id": course.ID,
		"semester":  1,
		"type":      "tuition",
	})
	if err := json.Unmarshal(resp.Data, &demand); err != nil {
		t.Fatalf("decode rerun: %v", err)
	}
	if demand.Created != 0 || demand.Skipped != 1 {
		t.Fatalf("rerun demand = %+v", demand)
	}

	records, err := env.store.ListFees(context.Background(), fees.ListFilter{StudentID: "2025CS0001"})
	if err != nil {
		t.Fatalf("list fees: %v", err)
	}
	if len(records) != 1 || records[0].Amount != course.FeesPerSemester {
		t.Fatalf("fees = %+v", records)
	}
	feeID := strconv.FormatInt(records[0].ID, 10)

	status, resp = env.request(t, http.MethodPost, "/api/v1/fees/"+feeID+"/pay", token, map[string]string{
		"method":         "online",
		"transaction_id": "TXN-1001",
	})
	if status != http.StatusOK {
		t.Fatalf("pay status = %d, error = %+v", status, resp.Error)
	}
	var paid feeViewBody
	if err := json.Unmarshal(resp.Data, &paid); err != nil {
		t.Fatalf("decode paid fee: %v", err)
	}
	if paid.Status != "paid" || !strings.HasPrefix(paid.ReceiptNumber, "RCP") {
		t.Fatalf("paid fee = %+v", paid)
	}

	// Paying twice is refused.
	status, resp = env.request(t, http.MethodPost, "/api/v1/fees/"+feeID+"/pay", token, map[string]string{
		"method":         "online",
		"transaction_id": "TXN-1002",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("repay status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if resp.Error == nil || resp.Error.Code != "FEE_NOT_PENDING" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestFeeReceiptPDFDownload(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)

	env.request(t, http.MethodPost, "/api/v1/fees/demand", token, map[string]any{
		"course_id": course.ID, "semester": 1, "type": "tuition",
	})
	records, err := env.store.ListFees(context.Background(), fees.ListFilter{StudentID: "2025CS0001"})
	if err != nil || len(records) != 1 {
		t.Fatalf("list fees: %v (%d records)", err, len(records))
	}
	feeID := strconv.FormatInt(records[0].ID, 10)
	_, resp := env.request(t, http.MethodPost, "/api/v1/fees/"+feeID+"/pay", token, map[string]string{
		"method": "cash", "transaction_id": "TXN-2001",
	})
	var paid feeViewBody
	if err := json.Unmarshal(resp.Data, &paid); err != nil {
		t.Fatalf("decode paid fee: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/fees/receipt/"+paid.ReceiptNumber, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	httpResp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("download receipt: %v", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("receipt status = %d", httpResp.StatusCode)
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	if !strings.HasPrefix(string(body), "%PDF-") {
		t.Fatal("receipt is not a PDF document")
	}
}

func TestStudentIDCardDownload(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	pair := env.login(t, map[string]string{"roll_no": "2025CS0001", "password": testPassword})

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/students/2025CS0001/id-card", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	httpResp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("download id card: %v", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("id card status = %d", httpResp.StatusCode)
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		t.Fatalf("read id card: %v", err)
	}
	if !strings.HasPrefix(string(body), "%PDF-") {
		t.Fatal("id card is not a PDF document")
	}
}

func seedPaidFee(t *testing.T, env *testEnv, rollNo, txn, receipt string) fees.Fee {
	t.Helper()
	paidOn := env.now.AddDate(0, 0, -1)
	fee, err := env.store.PutFee(context.Background(), fees.Fee{
		StudentID:     rollNo,
		Type:          fees.TypeTuition,
		Amount:        45000,
		Semester:      1,
		AcademicYear:  "2025-26",
		Status:        fees.StatusPaid,
		PaymentDate:   &paidOn,
		Method:        fees.MethodOnline,
		TransactionID: txn,
		ReceiptNumber: receipt,
		DueDate:       env.now,
		CreatedOn:     env.now.AddDate(0, -1, 0),
		UpdatedOn:     paidOn,
	})
	if err != nil {
		t.Fatalf("seed paid fee: %v", err)
	}
	return fee
}

func TestFeeCollectionReportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)
	seedPaidFee(t, env, "2025CS0001", "TXN5001", "RCP20260300001")

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/fees/report", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	httpResp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("download report: %v", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", httpResp.StatusCode)
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	rows, err := csv.NewReader(httpResp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header and one record", len(rows))
	}
	if rows[1][0] != "RCP20260300001" || rows[1][1] != "2025CS0001" {
		t.Fatalf("record = %v", rows[1])
	}
}

type brokenResponseWriter struct {
	header http.Header
}

func (w *brokenResponseWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *brokenResponseWriter) WriteHeader(int) {}

func (w *brokenResponseWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestFeeReportLogsWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)
	seedPaidFee(t, env, "2025CS0001", "TXN5001", "RCP20260300001")

	var logged bytes.Buffer
	srv := New(Stores{
		Courses:     env.store,
		Students:    env.store,
		Staff:       env.store,
		Admissions:  env.store,
		Fees:        env.store,
		Library:     env.store,
		Hostels:     env.store,
		Exams:       env.store,
		Revocations: env.store,
		Outbox:      env.store,
	}, auth.TokenConfig{
		Secret: []byte("test-secret"),
		Issuer: "student-erp",
		Now:    func() time.Time { return env.now },
	}, log.New(&logged, "", 0))
	t.Cleanup(srv.Hub().Close)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fees/report", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	srv.Handler().ServeHTTP(&brokenResponseWriter{}, req)

	if !strings.Contains(logged.String(), "write csv report") {
		t.Fatalf("expected write failure in log, got %q", logged.String())
	}
}

func TestOverdueSweepAccruesLateFees(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")

	// Due 10 days before the server's fixed clock.
	fee, err := env.store.PutFee(context.Background(), fees.Fee{
		StudentID:    "2025CS0001",
		Type:         fees.TypeTuition,
		Amount:       40000,
		Semester:     1,
		AcademicYear: "2025-26",
		Status:       fees.StatusPending,
		DueDate:      env.now.AddDate(0, 0, -10),
		CreatedOn:    env.now.AddDate(0, -1, 0),
		UpdatedOn:    env.now.AddDate(0, -1, 0),
	})
	if err != nil {
		t.Fatalf("seed fee: %v", err)
	}

	if err := env.server.SweepOverdueFees(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	swept, err := env.store.GetFee(context.Background(), fee.ID)
	if err != nil {
		t.Fatalf("get fee: %v", err)
	}
	if swept.Status != fees.StatusOverdue {
		t.Fatalf("status = %q, want overdue", swept.Status)
	}
	if want := int64(10 * 50); swept.LateFee != want {
		t.Fatalf("late fee = %d, want %d", swept.LateFee, want)
	}

	// The reminder is queued once, not on every sweep.
	if err := env.server.SweepOverdueFees(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	messages, err := env.store.ClaimDueMessages(context.Background(), env.now.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("claim outbox: %v", err)
	}
	var reminders int
	for _, msg := range messages {
		if strings.HasPrefix(msg.DedupeKey, "fee-overdue-") {
			reminders++
		}
	}
	if reminders != 1 {
		t.Fatalf("reminders = %d, want 1", reminders)
	}
}

func seedBook(t *testing.T, env *testEnv, token string) bookViewBody {
	t.Helper()
	status, resp := env.request(t, http.MethodPost, "/api/v1/library/books", token, map[string]any{
		"title":        "The Go Programming Language",
		"author":       "Donovan and Kernighan",
		"isbn":         "9780134190440",
		"category":     "Programming",
		"total_copies": 2,
	})
	if status != http.StatusCreated {
		t.Fatalf("create book status = %d, error = %+v", status, resp.Error)
	}
	var book bookViewBody
	if err := json.Unmarshal(resp.Data, &book); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	return book
}

func TestLibraryIssueAndReturn(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)
	book := seedBook(t, env, token)
	if !strings.HasPrefix(book.BookID, "LB") {
		t.Fatalf("book id = %q", book.BookID)
	}

	status, resp := env.request(t, http.MethodPost, "/api/v1/library/issue", token, map[string]string{
		"book_id":    book.BookID,
		"student_id": "2025CS0001",
	})
	if status != http.StatusCreated {
		t.Fatalf("issue status = %d, error = %+v", status, resp.Error)
	}
	var issued issueViewBody
	if err := json.Unmarshal(resp.Data, &issued); err != nil {
		t.Fatalf("decode issue: %v", err)
	}
	if want := env.now.AddDate(0, 0, library.LoanDays); !issued.DueDate.Equal(want) {
		t.Fatalf("due date = %v, want %v", issued.DueDate, want)
	}

	// The same copy cannot be issued to the same student twice.
	status, resp = env.request(t, http.MethodPost, "/api/v1/library/issue", token, map[string]string{
		"book_id":    book.BookID,
		"student_id": "2025CS0001",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate issue status = %d, want %d", status, http.StatusConflict)
	}
	if resp.Error == nil || resp.Error.Code != "LIBRARY_ALREADY_ISSUED" {
		t.Fatalf("error = %+v", resp.Error)
	}

	status, resp = env.request(t, http.MethodPost, "/api/v1/library/return", token, map[string]string{
		"book_id":    book.BookID,
		"student_id": "2025CS0001",
	})
	if status != http.StatusOK {
		t.Fatalf("return status = %d, error = %+v", status, resp.Error)
	}
	var returned issueViewBody
	if err := json.Unmarshal(resp.Data, &returned); err != nil {
		t.Fatalf("decode return: %v", err)
	}
	if returned.ReturnDate == nil || returned.LateFee != 0 {
		t.Fatalf("returned = %+v", returned)
	}

	got, err := env.store.GetBook(context.Background(), book.BookID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.AvailableCopies != 2 {
		t.Fatalf("available copies = %d, want 2", got.AvailableCopies)
	}
}

func TestLibraryLoanLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)

	for i := 0; i < library.MaxActiveLoans; i++ {
		book := seedBook(t, env, token)
		status, resp := env.request(t, http.MethodPost, "/api/v1/library/issue", token, map[string]string{
			"book_id":    book.BookID,
			"student_id": "2025CS0001",
		})
		if status != http.StatusCreated {
			t.Fatalf("issue %d status = %d, error = %+v", i, status, resp.Error)
		}
	}

	book := seedBook(t, env, token)
	status, resp := env.request(t, http.MethodPost, "/api/v1/library/issue", token, map[string]string{
		"book_id":    book.BookID,
		"student_id": "2025CS0001",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if resp.Error == nil || resp.Error.Code != "LIBRARY_LOAN_LIMIT" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestHostelAllocationFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)

	status, resp := env.request(t, http.MethodPost, "/api/v1/hostels", token, map[string]any{
		"name":         "Aryabhatta House",
		"kind":         "Boys",
		"warden_name":  "R. Sharma",
		"total_beds":   2,
		"monthly_rent": 3500,
	})
	if status != http.StatusCreated {
		t.Fatalf("create hostel status = %d, error = %+v", status, resp.Error)
	}
	var created hostelViewBody
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode hostel: %v", err)
	}
	hostelPath := "/api/v1/hostels/" + strconv.FormatInt(created.ID, 10)

	status, resp = env.request(t, http.MethodPost, hostelPath+"/allocate", token, map[string]string{
		"student_id":  "2025CS0001",
		"room_number": "A-101",
	})
	if status != http.StatusOK {
		t.Fatalf("allocate status = %d, error = %+v", status, resp.Error)
	}
	var allocation struct {
		Student studentViewBody `json:"student"`
		Hostel  hostelViewBody  `json:"hostel"`
	}
	if err := json.Unmarshal(resp.Data, &allocation); err != nil {
		t.Fatalf("decode allocation: %v", err)
	}
	if allocation.Hostel.OccupiedBeds != 1 || allocation.Student.RoomNumber != "A-101" {
		t.Fatalf("allocation = %+v", allocation)
	}

	// A second allocation for the same student is refused.
	status, resp = env.request(t, http.MethodPost, hostelPath+"/allocate", token, map[string]string{
		"student_id": "2025CS0001",
	})
	if status != http.StatusConflict {
		t.Fatalf("re-allocate status = %d, want %d", status, http.StatusConflict)
	}
	if resp.Error == nil || resp.Error.Code != "HOSTEL_ALREADY_ALLOCATED" {
		t.Fatalf("error = %+v", resp.Error)
	}

	status, resp = env.request(t, http.MethodPost, "/api/v1/hostels/vacate", token, map[string]string{
		"student_id": "2025CS0001",
	})
	if status != http.StatusOK {
		t.Fatalf("vacate status = %d, error = %+v", status, resp.Error)
	}
	var vacated struct {
		Student studentViewBody `json:"student"`
		Hostel  hostelViewBody  `json:"hostel"`
	}
	if err := json.Unmarshal(resp.Data, &vacated); err != nil {
		t.Fatalf("decode vacate: %v", err)
	}
	if vacated.Hostel.OccupiedBeds != 0 || vacated.Student.HostelID != nil {
		t.Fatalf("vacated = %+v", vacated)
	}
}

func TestHostelGenderMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001") // male
	token := env.adminToken(t)

	_, resp := env.request(t, http.MethodPost, "/api/v1/hostels", token, map[string]any{
		"name":       "Sarojini House",
		"kind":       "Girls",
		"total_beds": 10,
	})
	var created hostelViewBody
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode hostel: %v", err)
	}

	status, resp := env.request(t, http.MethodPost, "/api/v1/hostels/"+strconv.FormatInt(created.ID, 10)+"/allocate", token, map[string]string{
		"student_id": "2025CS0001",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if resp.Error == nil || resp.Error.Code != "HOSTEL_GENDER_MISMATCH" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestResultDeclarationAndStudentView(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)

	status, resp := env.request(t, http.MethodPost, "/api/v1/exams/results", token, map[string]any{
		"student_id":     "2025CS0001",
		"semester":       1,
		"exam_type":      "semester",
		"subject_code":   "CS101",
		"subject_name":   "Programming Fundamentals",
		"max_marks":      100,
		"marks_obtained": 92,
		"internal_marks": 28,
		"external_marks": 64,
	})
	if status != http.StatusCreated {
		t.Fatalf("declare status = %d, error = %+v", status, resp.Error)
	}
	var declared resultViewBody
	if err := json.Unmarshal(resp.Data, &declared); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if declared.Grade != "O" || declared.GradePoints != 10 {
		t.Fatalf("result = %+v", declared)
	}
	if declared.InternalMarks != 28 || declared.ExternalMarks != 64 {
		t.Fatalf("marks split = %d/%d, want 28/64", declared.InternalMarks, declared.ExternalMarks)
	}

	// Declaring the same subject again is refused.
	status, resp = env.request(t, http.MethodPost, "/api/v1/exams/results", token, map[string]any{
		"student_id":     "2025CS0001",
		"semester":       1,
		"exam_type":      "semester",
		"subject_code":   "CS101",
		"subject_name":   "Programming Fundamentals",
		"max_marks":      100,
		"marks_obtained": 95,
	})
	if status != http.StatusConflict {
		t.Fatalf("redeclare status = %d, want %d", status, http.StatusConflict)
	}

	pair := env.login(t, map[string]string{"roll_no": "2025CS0001", "password": testPassword})
	status, resp = env.request(t, http.MethodGet, "/api/v1/students/2025CS0001/results", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("results status = %d, error = %+v", status, resp.Error)
	}
	var report struct {
		Semesters []struct {
			Semester int     `json:"semester"`
			SGPA     float64 `json:"sgpa"`
		} `json:"semesters"`
		CGPA float64 `json:"cgpa"`
	}
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Semesters) != 1 || report.Semesters[0].SGPA != 10 || report.CGPA != 10 {
		t.Fatalf("report = %+v", report)
	}
}

func TestDashboardSummaryByRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	token := env.adminToken(t)

	status, resp := env.request(t, http.MethodGet, "/api/v1/dashboard/summary", token, nil)
	if status != http.StatusOK {
		t.Fatalf("admin summary status = %d, error = %+v", status, resp.Error)
	}
	var admin struct {
		Students struct {
			TotalActive int64
		} `json:"students"`
	}
	if err := json.Unmarshal(resp.Data, &admin); err != nil {
		t.Fatalf("decode admin summary: %v", err)
	}
	if admin.Students.TotalActive != 1 {
		t.Fatalf("total active = %d, want 1", admin.Students.TotalActive)
	}

	pair := env.login(t, map[string]string{"roll_no": "2025CS0001", "password": testPassword})
	status, resp = env.request(t, http.MethodGet, "/api/v1/dashboard/summary", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("student summary status = %d, error = %+v", status, resp.Error)
	}
	var student struct {
		TotalDue int64 `json:"total_due"`
	}
	if err := json.Unmarshal(resp.Data, &student); err != nil {
		t.Fatalf("decode student summary: %v", err)
	}
	if student.TotalDue != 0 {
		t.Fatalf("total due = %d, want 0", student.TotalDue)
	}
}
