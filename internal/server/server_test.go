package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/courses"
	"github.com/Anuraj-dev/student-erp/internal/staff"
	"github.com/Anuraj-dev/student-erp/internal/storage/sqlite"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

const testPassword = "Sup3r$ecret"

type testEnv struct {
	server *Server
	store  *sqlite.Store
	ts     *httptest.Server
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "erp.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	srv := New(Stores{
		Courses:     store,
		Students:    store,
		Staff:       store,
		Admissions:  store,
		Fees:        store,
		Library:     store,
		Hostels:     store,
		Exams:       store,
		Revocations: store,
		Outbox:      store,
	}, auth.TokenConfig{
		Secret: []byte("test-secret"),
		Issuer: "student-erp",
		Now:    func() time.Time { return now },
	}, log.New(io.Discard, "", 0))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Hub().Close)
	return &testEnv{server: srv, store: store, ts: ts, now: now}
}

func (e *testEnv) seedCourse(t *testing.T) courses.Course {
	t.Helper()
	course, err := e.store.PutCourse(context.Background(), courses.Course{
		ProgramLevel:    "B.Tech",
		DegreeName:      "Bachelor of Technology",
		CourseName:      "Computer Science",
		CourseCode:      "CS",
		DurationYears:   4,
		FeesPerSemester: 45000,
		TotalSeats:      60,
		IsActive:        true,
		CreatedOn:       e.now,
		UpdatedOn:       e.now,
	})
	if err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func (e *testEnv) seedAdmin(t *testing.T) staff.Member {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	member, err := e.store.PutStaff(context.Background(), staff.Member{
		Name:          "Asha Verma",
		Email:         "asha@example.edu",
		Phone:         "9000000001",
		PasswordHash:  hash,
		Role:          staff.RoleAdmin,
		Department:    "Administration",
		EmployeeID:    "2020ADM0001",
		IsActive:      true,
		DateOfJoining: e.now.AddDate(-6, 0, 0),
		RegisteredOn:  e.now,
		UpdatedOn:     e.now,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return member
}

func (e *testEnv) seedStudent(t *testing.T, course courses.Course, rollNo string) students.Student {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	student := students.Student{
		RollNo:          rollNo,
		Name:            "Ravi Kumar",
		Email:           strings.ToLower(rollNo) + "@example.edu",
		Phone:           "9000000002",
		DateOfBirth:     time.Date(2006, 5, 12, 0, 0, 0, 0, time.UTC),
		Gender:          students.GenderMale,
		CourseID:        course.ID,
		AdmissionYear:   2025,
		CurrentSemester: 1,
		PasswordHash:    hash,
		IsActive:        true,
		RegisteredOn:    e.now,
		UpdatedOn:       e.now,
	}
	if err := e.store.PutStudent(context.Background(), student); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return student
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func (e *testEnv) login(t *testing.T, body any) tokenPair {
	t.Helper()
	status, resp := e.request(t, http.MethodPost, "/api/v1/auth/login", "", body)
	if status != http.StatusOK {
		t.Fatalf("login status = %d, error = %+v", status, resp.Error)
	}
	var pair tokenPair
	if err := json.Unmarshal(resp.Data, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	return pair
}

func TestStaffLoginAndProfile(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})
	if pair.Role != "admin" || pair.Subject != "2020ADM0001" {
		t.Fatalf("token pair = %+v", pair)
	}

	status, resp := env.request(t, http.MethodGet, "/api/v1/auth/profile", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("profile status = %d, error = %+v", status, resp.Error)
	}
	var profile staffViewBody
	if err := json.Unmarshal(resp.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Email != "asha@example.edu" || profile.Role != "admin" {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	status, resp := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "asha@example.edu",
		"password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_INVALID_CREDENTIALS" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	body := map[string]string{"email": "asha@example.edu", "password": "wrong-password"}
	for i := 0; i < auth.MaxLoginAttempts; i++ {
		status, _ := env.request(t, http.MethodPost, "/api/v1/auth/login", "", body)
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i, status)
		}
	}

	// Even the correct password is refused while locked.
	status, resp := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "asha@example.edu",
		"password": testPassword,
	})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", status, http.StatusForbidden)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_ACCOUNT_LOCKED" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})

	if status, resp := env.request(t, http.MethodPost, "/api/v1/auth/logout", pair.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("logout status = %d, error = %+v", status, resp.Error)
	}
	status, resp := env.request(t, http.MethodGet, "/api/v1/auth/profile", pair.AccessToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_TOKEN_REVOKED" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestProfileRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	status, resp := env.request(t, http.MethodGet, "/api/v1/auth/profile", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_TOKEN_INVALID" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestStudentCannotListStudents(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")

	pair := env.login(t, map[string]string{"roll_no": "2025CS0001", "password": testPassword})
	status, resp := env.request(t, http.MethodGet, "/api/v1/students", pair.AccessToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", status, http.StatusForbidden)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_FORBIDDEN" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestChangePasswordRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})

	status, resp := env.request(t, http.MethodPost, "/api/v1/auth/change-password", pair.AccessToken, map[string]string{
		"current_password": testPassword,
		"new_password":     "N3w!Password",
	})
	if status != http.StatusOK {
		t.Fatalf("change password status = %d, error = %+v", status, resp.Error)
	}

	env.login(t, map[string]string{"email": "asha@example.edu", "password": "N3w!Password"})
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})

	status, resp := env.request(t, http.MethodPost, "/api/v1/auth/change-password", pair.AccessToken, map[string]string{
		"current_password": testPassword,
		"new_password":     "short",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_WEAK_PASSWORD" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})

	status, resp := env.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh status = %d, error = %+v", status, resp.Error)
	}
	var refreshed tokenPair
	if err := json.Unmarshal(resp.Data, &refreshed); err != nil {
		t.Fatalf("decode refreshed pair: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a fresh access token")
	}

	if status, _ := env.request(t, http.MethodGet, "/api/v1/auth/profile", refreshed.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("profile with refreshed token status = %d", status)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})

	status, resp := env.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.AccessToken,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if resp.Error == nil || resp.Error.Code != "AUTH_TOKEN_INVALID" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestRateLimiterFixedWindow(t *testing.T) {
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, func() time.Time { return current })

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other clients are counted separately")
	}

	current = current.Add(time.Minute)
	if !rl.allow("10.0.0.1") {
		t.Fatal("window reset should admit the client again")
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.ts.Client().Get(env.ts.URL + "/up")
	if err != nil {
		t.Fatalf("get /up: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
}

func TestCourseListIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.seedCourse(t)

	status, resp := env.request(t, http.MethodGet, "/api/v1/courses", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", status, resp.Error)
	}
	var data struct {
		Courses []enrollmentViewBody `json:"courses"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode courses: %v", err)
	}
	if len(data.Courses) != 1 {
		t.Fatalf("courses = %d, want 1", len(data.Courses))
	}
	got := data.Courses[0]
	if got.DisplayName != "B.Tech in Computer Science" || got.AvailableSeats != 60 {
		t.Fatalf("course = %+v", got)
	}
}

func TestCourseCreateRequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	pair := env.login(t, map[string]string{"roll_no": "2025CS0001", "password": testPassword})

	status, _ := env.request(t, http.MethodPost, "/api/v1/courses", pair.AccessToken, map[string]any{
		"program_level": "M.Tech",
		"degree_name":   "Master of Technology",
		"course_name":   "Data Science",
		"course_code":   "DS",
	})
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestStudentSelfViewScoping(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	env.seedStudent(t, course, "2025CS0002")
	pair := env.login(t, map[string]string{"roll_no": "2025CS0001", "password": testPassword})

	if status, resp := env.request(t, http.MethodGet, "/api/v1/students/2025CS0001", pair.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("self view status = %d, error = %+v", status, resp.Error)
	}
	status, _ := env.request(t, http.MethodGet, "/api/v1/students/2025CS0002", pair.AccessToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("peer view status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestStudentPromotion(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)
	env.seedStudent(t, course, "2025CS0001")
	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})

	status, resp := env.request(t, http.MethodPost, "/api/v1/students/2025CS0001/promote", pair.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("promote status = %d, error = %+v", status, resp.Error)
	}
	var view studentViewBody
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode student: %v", err)
	}
	if view.CurrentSemester != 2 {
		t.Fatalf("current semester = %d, want 2", view.CurrentSemester)
	}
}

func TestAdmissionApplyApproveEnrolls(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)

	status, resp := env.request(t, http.MethodPost, "/api/v1/admissions/apply", "", map[string]any{
		"name":               "Priya Singh",
		"email":              "priya@example.com",
		"phone":              "9000000003",
		"date_of_birth":      "2007-06-15",
		"gender":             "Female",
		"course_id":          course.ID,
		"tenth_percentage":   88,
		"twelfth_percentage": 82,
		"password":           "Appl1cant$",
	})
	if status != http.StatusCreated {
		t.Fatalf("apply status = %d, error = %+v", status, resp.Error)
	}
	var application applicationViewBody
	if err := json.Unmarshal(resp.Data, &application); err != nil {
		t.Fatalf("decode application: %v", err)
	}
	wantPrefix := fmt.Sprintf("ADM%d", env.now.Year())
	if !strings.HasPrefix(application.ApplicationID, wantPrefix) {
		t.Fatalf("application id = %q, want prefix %q", application.ApplicationID, wantPrefix)
	}

	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})
	status, resp = env.request(t, http.MethodPost, "/api/v1/admissions/"+application.ApplicationID+"/decide", pair.AccessToken, map[string]string{
		"status":  "approved",
		"remarks": "Strong academics",
	})
	if status != http.StatusOK {
		t.Fatalf("decide status = %d, error = %+v", status, resp.Error)
	}
	var decided applicationViewBody
	if err := json.Unmarshal(resp.Data, &decided); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if decided.Status != "approved" {
		t.Fatalf("status = %q, want approved", decided.Status)
	}
	wantRoll := fmt.Sprintf("%dCS0001", env.now.Year())
	if decided.StudentID != wantRoll {
		t.Fatalf("student id = %q, want %q", decided.StudentID, wantRoll)
	}

	student, err := env.store.GetStudent(context.Background(), wantRoll)
	if err != nil {
		t.Fatalf("get enrolled student: %v", err)
	}
	if student.CourseID != course.ID || student.CurrentSemester != 1 {
		t.Fatalf("student = %+v", student)
	}

	// Approval queues the welcome mail alongside the submission notice.
	messages, err := env.store.ClaimDueMessages(context.Background(), env.now.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("claim outbox: %v", err)
	}
	var foundWelcome bool
	for _, msg := range messages {
		if strings.HasPrefix(msg.DedupeKey, "admission-approved-") {
			foundWelcome = true
		}
	}
	if !foundWelcome {
		t.Fatalf("no welcome mail among %d messages", len(messages))
	}

	// Decided applications are immutable.
	status, resp = env.request(t, http.MethodPost, "/api/v1/admissions/"+application.ApplicationID+"/decide", pair.AccessToken, map[string]string{
		"status": "declined", "rejection_reason": "changed mind",
	})
	if status != http.StatusConflict {
		t.Fatalf("re-decide status = %d, want %d", status, http.StatusConflict)
	}
	if resp.Error == nil || resp.Error.Code != "ADMISSION_ALREADY_DECIDED" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestAdmissionRejectsIneligibleApplicant(t *testing.T) {
	env := newTestEnv(t)
	course := env.seedCourse(t)

	status, resp := env.request(t, http.MethodPost, "/api/v1/admissions/apply", "", map[string]any{
		"name":               "Too Young",
		"email":              "young@example.com",
		"phone":              "9000000004",
		"date_of_birth":      "2015-01-01",
		"gender":             "Male",
		"course_id":          course.ID,
		"tenth_percentage":   90,
		"twelfth_percentage": 90,
		"password":           "Appl1cant$",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if resp.Error == nil || resp.Error.Code != "ADMISSION_NOT_ELIGIBLE" {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestDeclineRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	course := env.seedCourse(t)

	_, resp := env.request(t, http.MethodPost, "/api/v1/admissions/apply", "", map[string]any{
		"name":               "Priya Singh",
		"email":              "priya@example.com",
		"phone":              "9000000003",
		"date_of_birth":      "2007-06-15",
		"gender":             "Female",
		"course_id":          course.ID,
		"tenth_percentage":   88,
		"twelfth_percentage": 82,
		"password":           "Appl1cant$",
	})
	var application applicationViewBody
	if err := json.Unmarshal(resp.Data, &application); err != nil {
		t.Fatalf("decode application: %v", err)
	}

	pair := env.login(t, map[string]string{"email": "asha@example.edu", "password": testPassword})
	status, resp := env.request(t, http.MethodPost, "/api/v1/admissions/"+application.ApplicationID+"/decide", pair.AccessToken, map[string]string{
		"status": "declined",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if resp.Error == nil || resp.Error.Code != "ADMISSION_INVALID_DECISION" {
		t.Fatalf("error = %+v", resp.Error)
	}
}
