package server

import (
	"net/http"
	"strings"

	"github.com/Anuraj-dev/student-erp/internal/dashboard"
	"github.com/Anuraj-dev/student-erp/internal/library"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
)

type bookRequest struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publication_year"`
	Category        string `json:"category"`
	TotalCopies     int    `json:"total_copies"`
	ShelfLocation   string `json:"shelf_location"`
	Condition       string `json:"condition"`
	IsActive        *bool  `json:"is_active"`
}

func (s *Server) handleBookSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := library.SearchFilter{
		Query:         query.Get("q"),
		Category:      query.Get("category"),
		AvailableOnly: query.Get("available_only") == "true",
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	books, err := s.stores.Library.SearchBooks(ctx, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]bookViewBody, 0, len(books))
	for _, book := range books {
		out = append(out, bookView(book))
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": out})
}

func (s *Server) handleBookGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	book, err := s.stores.Library.GetBook(ctx, strings.ToUpper(r.PathValue("bookID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookView(book))
}

func (s *Server) handleBookCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	categories, err := s.stores.Library.ListCategories(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleBookCreate(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	serial, err := s.stores.Library.NextBookSerial(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now().UTC()
	condition := req.Condition
	if condition == "" {
		condition = "Good"
	}
	book := library.Book{
		BookID:          library.FormatBookID(serial),
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		Category:        req.Category,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		ShelfLocation:   req.ShelfLocation,
		Condition:       condition,
		IsActive:        true,
		AddedOn:         now,
		UpdatedOn:       now,
	}
	if err := book.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.stores.Library.PutBook(ctx, book); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookView(book))
}

func (s *Server) handleBookUpdate(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	book, err := s.stores.Library.GetBook(ctx, strings.ToUpper(r.PathValue("bookID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Title != "" {
		book.Title = req.Title
	}
	if req.Author != "" {
		book.Author = req.Author
	}
	if req.ISBN != "" {
		book.ISBN = req.ISBN
	}
	if req.Publisher != "" {
		book.Publisher = req.Publisher
	}
	if req.PublicationYear > 0 {
		book.PublicationYear = req.PublicationYear
	}
	if req.Category != "" {
		book.Category = req.Category
	}
	if req.TotalCopies > 0 {
		// Adjust the available pool by the copy delta, never below zero.
		delta := req.TotalCopies - book.TotalCopies
		book.TotalCopies = req.TotalCopies
		book.AvailableCopies += delta
		if book.AvailableCopies < 0 {
			book.AvailableCopies = 0
		}
	}
	if req.ShelfLocation != "" {
		book.ShelfLocation = req.ShelfLocation
	}
	if req.Condition != "" {
		book.Condition = req.Condition
	}
	if req.IsActive != nil {
		book.IsActive = *req.IsActive
	}
	book.UpdatedOn = s.now().UTC()

	if err := book.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.stores.Library.PutBook(ctx, book); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookView(book))
}

type circulationRequest struct {
	BookID    string `json:"book_id"`
	StudentID string `json:"student_id"`
	DamageFee int64  `json:"damage_fee,omitempty"`
	Remarks   string `json:"remarks,omitempty"`
}

func (s *Server) handleBookIssue(w http.ResponseWriter, r *http.Request) {
	var req circulationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bookID := strings.ToUpper(strings.TrimSpace(req.BookID))
	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))

	ctx, cancel := s.requestContext(r)
	defer cancel()
	book, err := s.stores.Library.GetBook(ctx, bookID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !book.Available() {
		s.writeError(w, r, apperrors.New(apperrors.CodeLibraryBookUnavailable, "no copies available"))
		return
	}
	student, err := s.stores.Students.GetStudent(ctx, studentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !student.IsActive {
		s.writeError(w, r, apperrors.New(apperrors.CodeStudentInactive, "student is inactive"))
		return
	}
	if _, err := s.stores.Library.GetOpenIssue(ctx, bookID, studentID); err == nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeLibraryAlreadyIssued, "student already holds this book"))
		return
	} else if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		s.writeError(w, r, err)
		return
	}
	open, err := s.stores.Library.CountOpenIssues(ctx, studentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if open >= library.MaxActiveLoans {
		s.writeError(w, r, apperrors.New(apperrors.CodeLibraryLoanLimit, "loan limit reached"))
		return
	}

	now := s.now().UTC()
	issue := library.Issue{
		BookID:    bookID,
		StudentID: studentID,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, library.LoanDays),
		Remarks:   req.Remarks,
	}
	stored, err := s.stores.Library.PutIssue(ctx, issue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	book.AvailableCopies--
	book.UpdatedOn = now
	if err := s.stores.Library.PutBook(ctx, book); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Broadcast(dashboard.NewEvent(dashboard.EventBookIssued, s.now(), map[string]any{
		"book_id":    bookID,
		"student_id": studentID,
	}))
	writeJSON(w, http.StatusCreated, issueView(stored, now))
}

func (s *Server) handleBookReturn(w http.ResponseWriter, r *http.Request) {
	var req circulationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bookID := strings.ToUpper(strings.TrimSpace(req.BookID))
	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))

	ctx, cancel := s.requestContext(r)
	defer cancel()
	issue, err := s.stores.Library.GetOpenIssue(ctx, bookID, studentID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			s.writeError(w, r, apperrors.New(apperrors.CodeLibraryNotIssued, "no open loan for this book and student"))
			return
		}
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	issue.ReturnDate = &now
	issue.LateFee = issue.ReturnLateFee(now)
	issue.DamageFee = req.DamageFee
	if req.Remarks != "" {
		issue.Remarks = req.Remarks
	}
	stored, err := s.stores.Library.PutIssue(ctx, issue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	book, err := s.stores.Library.GetBook(ctx, bookID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if book.AvailableCopies < book.TotalCopies {
		book.AvailableCopies++
		book.UpdatedOn = now
		if err := s.stores.Library.PutBook(ctx, book); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, issueView(stored, now))
}

func (s *Server) handleBookRenew(w http.ResponseWriter, r *http.Request) {
	var req circulationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bookID := strings.ToUpper(strings.TrimSpace(req.BookID))
	studentID := strings.ToUpper(strings.TrimSpace(req.StudentID))

	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if !canViewStudent(principal, studentID) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	issue, err := s.stores.Library.GetOpenIssue(ctx, bookID, studentID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			s.writeError(w, r, apperrors.New(apperrors.CodeLibraryNotIssued, "no open loan for this book and student"))
			return
		}
		s.writeError(w, r, err)
		return
	}

	now := s.now().UTC()
	if err := issue.Renew(now); err != nil {
		s.writeError(w, r, err)
		return
	}
	stored, err := s.stores.Library.PutIssue(ctx, issue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(stored, now))
}

func (s *Server) handleLibraryOverdue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	now := s.now().UTC()
	issues, err := s.stores.Library.ListOverdueIssues(ctx, now)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issueViews(issues, now)})
}

func (s *Server) handleLibraryStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	stats, err := s.stores.Library.GetLibraryStatistics(ctx, s.now().UTC())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_books":     stats.TotalBooks,
		"available_books": stats.AvailableBooks,
		"total_issues":    stats.TotalIssues,
		"active_issues":   stats.ActiveIssues,
		"overdue_issues":  stats.OverdueIssues,
		"monthly_issues":  stats.MonthlyIssues,
		"monthly_returns": stats.MonthlyReturns,
	})
}
