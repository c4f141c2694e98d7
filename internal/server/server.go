// Package server exposes the ERP HTTP JSON API.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/courses"
	"github.com/Anuraj-dev/student-erp/internal/dashboard"
	"github.com/Anuraj-dev/student-erp/internal/exams"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/hostel"
	"github.com/Anuraj-dev/student-erp/internal/library"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
	"github.com/Anuraj-dev/student-erp/internal/platform/timeouts"
	"github.com/Anuraj-dev/student-erp/internal/staff"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// Stores bundles every persistence interface the API depends on. The
// sqlite store satisfies all of them; tests substitute fakes per field.
type Stores struct {
	Courses     courses.Store
	Students    students.Store
	Staff       staff.Store
	Admissions  admissions.Store
	Fees        fees.Store
	Library     library.Store
	Hostels     hostel.Store
	Exams       exams.Store
	Revocations auth.RevocationStore
	Outbox      mailer.Store
}

// Server routes API requests to the domain packages.
type Server struct {
	stores    Stores
	tokens    auth.TokenConfig
	limiter   *auth.LoginLimiter
	dashboard *dashboard.Service
	hub       *dashboard.Hub
	rate      *rateLimiter
	logger    *log.Logger
	now       func() time.Time
	upgrader  websocket.Upgrader
}

// New builds a server around the given stores and token configuration.
func New(stores Stores, tokens auth.TokenConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "server: ", log.LstdFlags)
	}
	now := tokens.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		stores:  stores,
		tokens:  tokens,
		limiter: auth.NewLoginLimiter(now),
		dashboard: dashboard.NewService(dashboard.Stores{
			Students:   stores.Students,
			Admissions: stores.Admissions,
			Fees:       stores.Fees,
			Library:    stores.Library,
			Hostels:    stores.Hostels,
		}, now),
		hub:    dashboard.NewHub(),
		rate:   newRateLimiter(defaultRateLimit, defaultRateWindow, now),
		logger: logger,
		now:    now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Hub exposes the live-update hub so payment and admission handlers in
// tests can observe broadcasts.
func (s *Server) Hub() *dashboard.Hub {
	return s.hub
}

// Handler returns the fully routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return withSecurityHeaders(s.rate.middleware(mux))
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc(http.MethodGet+" /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Public endpoints.
	mux.HandleFunc(http.MethodPost+" /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc(http.MethodPost+" /api/v1/auth/refresh", s.handleRefresh)
	mux.HandleFunc(http.MethodPost+" /api/v1/admissions/apply", s.handleAdmissionApply)
	mux.HandleFunc(http.MethodPost+" /api/v1/admissions/status", s.handleAdmissionStatusLookup)
	mux.HandleFunc(http.MethodGet+" /api/v1/courses", s.handleCourseList)
	mux.HandleFunc(http.MethodGet+" /api/v1/courses/{id}", s.handleCourseGet)

	// Authenticated endpoints.
	mux.HandleFunc(http.MethodPost+" /api/v1/auth/logout", s.auth(s.handleLogout))
	mux.HandleFunc(http.MethodGet+" /api/v1/auth/profile", s.auth(s.handleProfile))
	mux.HandleFunc(http.MethodPost+" /api/v1/auth/change-password", s.auth(s.handleChangePassword))

	mux.HandleFunc(http.MethodPost+" /api/v1/courses", s.staffOnly(s.handleCourseCreate))
	mux.HandleFunc(http.MethodPut+" /api/v1/courses/{id}", s.staffOnly(s.handleCourseUpdate))

	mux.HandleFunc(http.MethodGet+" /api/v1/students", s.staffOnly(s.handleStudentList))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/statistics", s.staffOnly(s.handleStudentStatistics))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/{rollNo}", s.auth(s.handleStudentGet))
	mux.HandleFunc(http.MethodPut+" /api/v1/students/{rollNo}", s.staffOnly(s.handleStudentUpdate))
	mux.HandleFunc(http.MethodPost+" /api/v1/students/{rollNo}/deactivate", s.staffOnly(s.handleStudentDeactivate))
	mux.HandleFunc(http.MethodPost+" /api/v1/students/{rollNo}/promote", s.staffOnly(s.handleStudentPromote))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/{rollNo}/fees", s.auth(s.handleStudentFees))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/{rollNo}/library", s.auth(s.handleStudentLibrary))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/{rollNo}/results", s.auth(s.handleStudentResults))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/{rollNo}/transcript", s.auth(s.handleStudentTranscript))
	mux.HandleFunc(http.MethodGet+" /api/v1/students/{rollNo}/id-card", s.auth(s.handleStudentIDCard))

	mux.HandleFunc(http.MethodGet+" /api/v1/admissions", s.staffOnly(s.handleAdmissionList))
	mux.HandleFunc(http.MethodGet+" /api/v1/admissions/statistics", s.staffOnly(s.handleAdmissionStatistics))
	mux.HandleFunc(http.MethodGet+" /api/v1/admissions/{applicationID}", s.staffOnly(s.handleAdmissionGet))
	mux.HandleFunc(http.MethodPost+" /api/v1/admissions/{applicationID}/decide", s.staffOnly(s.handleAdmissionDecide))
	mux.HandleFunc(http.MethodPost+" /api/v1/admissions/{applicationID}/documents", s.staffOnly(s.handleAdmissionVerifyDocuments))

	mux.HandleFunc(http.MethodPost+" /api/v1/fees/demand", s.staffOnly(s.handleFeeDemand))
	mux.HandleFunc(http.MethodGet+" /api/v1/fees/overdue", s.staffOnly(s.handleFeeOverdueList))
	mux.HandleFunc(http.MethodGet+" /api/v1/fees/statistics", s.staffOnly(s.handleFeeStatistics))
	mux.HandleFunc(http.MethodGet+" /api/v1/fees/report", s.staffOnly(s.handleFeeReport))
	mux.HandleFunc(http.MethodGet+" /api/v1/fees/receipt/{receiptNumber}", s.auth(s.handleFeeReceipt))
	mux.HandleFunc(http.MethodGet+" /api/v1/fees/{id}", s.auth(s.handleFeeGet))
	mux.HandleFunc(http.MethodPost+" /api/v1/fees/{id}/pay", s.auth(s.handleFeePay))

	mux.HandleFunc(http.MethodGet+" /api/v1/library/books", s.auth(s.handleBookSearch))
	mux.HandleFunc(http.MethodPost+" /api/v1/library/books", s.staffOnly(s.handleBookCreate))
	mux.HandleFunc(http.MethodGet+" /api/v1/library/books/{bookID}", s.auth(s.handleBookGet))
	mux.HandleFunc(http.MethodPut+" /api/v1/library/books/{bookID}", s.staffOnly(s.handleBookUpdate))
	mux.HandleFunc(http.MethodGet+" /api/v1/library/categories", s.auth(s.handleBookCategories))
	mux.HandleFunc(http.MethodPost+" /api/v1/library/issue", s.staffOnly(s.handleBookIssue))
	mux.HandleFunc(http.MethodPost+" /api/v1/library/return", s.staffOnly(s.handleBookReturn))
	mux.HandleFunc(http.MethodPost+" /api/v1/library/renew", s.auth(s.handleBookRenew))
	mux.HandleFunc(http.MethodGet+" /api/v1/library/overdue", s.staffOnly(s.handleLibraryOverdue))
	mux.HandleFunc(http.MethodGet+" /api/v1/library/statistics", s.staffOnly(s.handleLibraryStatistics))

	mux.HandleFunc(http.MethodGet+" /api/v1/hostels", s.auth(s.handleHostelList))
	mux.HandleFunc(http.MethodPost+" /api/v1/hostels", s.adminOnly(s.handleHostelCreate))
	mux.HandleFunc(http.MethodGet+" /api/v1/hostels/occupancy", s.staffOnly(s.handleHostelOccupancy))
	mux.HandleFunc(http.MethodPost+" /api/v1/hostels/{id}/allocate", s.staffOnly(s.handleHostelAllocate))
	mux.HandleFunc(http.MethodPost+" /api/v1/hostels/vacate", s.staffOnly(s.handleHostelVacate))

	mux.HandleFunc(http.MethodPost+" /api/v1/exams/results", s.facultyOnly(s.handleResultDeclare))
	mux.HandleFunc(http.MethodPut+" /api/v1/exams/results", s.facultyOnly(s.handleResultUpdate))
	mux.HandleFunc(http.MethodGet+" /api/v1/exams/performance", s.staffOnly(s.handleClassPerformance))

	mux.HandleFunc(http.MethodGet+" /api/v1/dashboard/summary", s.auth(s.handleDashboardSummary))
	mux.HandleFunc(http.MethodGet+" /api/v1/dashboard/live", s.auth(s.handleDashboardLive))

	mux.HandleFunc(http.MethodGet+" /api/v1/notifications/statistics", s.adminOnly(s.handleNotificationStatistics))
}

// requestContext attaches the shared per-request deadline.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeouts.Request)
}
