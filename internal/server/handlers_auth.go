package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
	"github.com/Anuraj-dev/student-erp/internal/staff"
)

type loginRequest struct {
	Email    string `json:"email,omitempty"`
	RollNo   string `json:"roll_no,omitempty"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Role         string    `json:"role"`
	Subject      string    `json:"subject"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// credentials resolves a login request against staff or student records.
// Staff sign in by email, students by roll number.
func (s *Server) credentials(r *http.Request, req loginRequest) (subject string, role auth.Role, hash string, active bool, err error) {
	ctx := r.Context()
	switch {
	case req.RollNo != "":
		student, lookupErr := s.stores.Students.GetStudent(ctx, strings.ToUpper(strings.TrimSpace(req.RollNo)))
		if lookupErr != nil {
			return "", "", "", false, lookupErr
		}
		return student.RollNo, auth.RoleStudent, student.PasswordHash, student.IsActive, nil
	case req.Email != "":
		member, lookupErr := s.stores.Staff.GetStaffByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if lookupErr != nil {
			return "", "", "", false, lookupErr
		}
		role := auth.RoleStaff
		switch member.Role {
		case staff.RoleAdmin:
			role = auth.RoleAdmin
		case staff.RoleFaculty:
			role = auth.RoleFaculty
		}
		return member.EmployeeID, role, member.PasswordHash, member.IsActive, nil
	default:
		return "", "", "", false, apperrors.New(apperrors.CodeBadRequest, "email or roll_no is required")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	key := req.Email + req.RollNo
	if s.limiter.Locked(key) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthAccountLocked, "too many failed attempts, try again later"))
		return
	}

	subject, role, hash, active, err := s.credentials(r, req)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			s.limiter.RecordFailure(key)
			s.writeError(w, r, apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid credentials"))
			return
		}
		s.writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(hash, req.Password) {
		s.limiter.RecordFailure(key)
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid credentials"))
		return
	}
	if !active {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthAccountInactive, "account is inactive"))
		return
	}
	s.limiter.Reset(key)

	pair, err := s.issueTokenPair(subject, role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.recordLogin(r, subject, role)
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) issueTokenPair(subject string, role auth.Role) (tokenPair, error) {
	access, claims, err := auth.IssueToken(subject, role, auth.TokenUseAccess, s.tokens)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, _, err := auth.IssueToken(subject, role, auth.TokenUseRefresh, s.tokens)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Role:         string(role),
		Subject:      subject,
		ExpiresAt:    claims.ExpiresAt,
	}, nil
}

// recordLogin stamps LastLogin on the backing record. Failure to record
// is logged, not surfaced; the login already succeeded.
func (s *Server) recordLogin(r *http.Request, subject string, role auth.Role) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	now := s.now().UTC()
	if role == auth.RoleStudent {
		student, err := s.stores.Students.GetStudent(ctx, subject)
		if err == nil {
			student.LastLogin = &now
			err = s.stores.Students.PutStudent(ctx, student)
		}
		if err != nil {
			s.logger.Printf("record student login %s: %v", subject, err)
		}
		return
	}
	member, err := s.stores.Staff.GetStaffByEmployeeID(ctx, subject)
	if err == nil {
		member.LastLogin = &now
		_, err = s.stores.Staff.PutStaff(ctx, member)
	}
	if err != nil {
		s.logger.Printf("record staff login %s: %v", subject, err)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	claims, err := auth.ValidateToken(req.RefreshToken, auth.TokenUseRefresh, s.tokens)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	revoked, err := s.stores.Revocations.IsTokenRevoked(r.Context(), claims.TokenID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if revoked {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthTokenRevoked, "token has been revoked"))
		return
	}

	access, accessClaims, err := auth.IssueToken(claims.Subject, claims.Role, auth.TokenUseAccess, s.tokens)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPair{
		AccessToken:  access,
		RefreshToken: req.RefreshToken,
		TokenType:    "Bearer",
		Role:         string(claims.Role),
		Subject:      claims.Subject,
		ExpiresAt:    accessClaims.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	ctx, cancel := s.requestContext(r)
	defer cancel()
	// The access token carries its own expiry; revocations past that
	// point are purged by the maintenance sweep.
	expiresAt := s.now().Add(auth.AccessTokenTTL)
	if err := s.stores.Revocations.RevokeToken(ctx, principal.TokenID, expiresAt); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if principal.Role == string(auth.RoleStudent) {
		student, err := s.stores.Students.GetStudent(ctx, principal.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, studentView(student))
		return
	}
	member, err := s.stores.Staff.GetStaffByEmployeeID(ctx, principal.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, staffView(member))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := auth.ValidatePasswordPolicy(req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	principal, _ := requestctx.PrincipalFromContext(r.Context())
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if principal.Role == string(auth.RoleStudent) {
		student, err := s.stores.Students.GetStudent(ctx, principal.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.rotatePassword(req.CurrentPassword, req.NewPassword, &student.PasswordHash); err != nil {
			s.writeError(w, r, err)
			return
		}
		student.UpdatedOn = s.now().UTC()
		if err := s.stores.Students.PutStudent(ctx, student); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		member, err := s.stores.Staff.GetStaffByEmployeeID(ctx, principal.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.rotatePassword(req.CurrentPassword, req.NewPassword, &member.PasswordHash); err != nil {
			s.writeError(w, r, err)
			return
		}
		member.UpdatedOn = s.now().UTC()
		if _, err := s.stores.Staff.PutStaff(ctx, member); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *Server) rotatePassword(current, next string, hash *string) error {
	if !auth.CheckPassword(*hash, current) {
		return apperrors.New(apperrors.CodeAuthInvalidCredentials, "current password is incorrect")
	}
	newHash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	*hash = newHash
	return nil
}
