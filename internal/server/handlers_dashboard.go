package server

import (
	"net/http"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
)

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if principal.Role == string(auth.RoleStudent) {
		summary, err := s.dashboard.StudentSummaryFor(ctx, principal.Subject)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}
	summary, err := s.dashboard.AdminSummary(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleNotificationStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	stats, err := s.stores.Outbox.OutboxStatistics(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleDashboardLive upgrades the connection and streams hub events.
// Live updates are staff-facing; students already see their own state.
func (s *Server) handleDashboardLive(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	if principal.Role == string(auth.RoleStudent) {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		s.logger.Printf("websocket upgrade: %v", err)
		return
	}
	s.hub.Serve(r.Context(), conn)
}
