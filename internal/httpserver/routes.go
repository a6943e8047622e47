package httpserver

import (
	"context"
	"net/http"
	"strings"

	"csp-portal/internal/auth"

	"go.uber.org/zap"
)

// access is the rule a route enforces before its handler runs.
type access struct {
	authenticated bool
	roles         []auth.Role
}

var (
	public        = access{}
	authenticated = access{authenticated: true}
)

func roles(rs ...auth.Role) access {
	return access{authenticated: true, roles: rs}
}

type route struct {
	method  string
	pattern string
	access  access
	handler http.HandlerFunc
}

func (s *Server) routes() []route {
	admin := roles(auth.RoleAdmin)
	return []route{
		{http.MethodPost, "/api/auth/login", public, s.handleLogin},
		{http.MethodGet, "/api/auth/me", authenticated, s.handleMe},

		{http.MethodPost, "/api/users", public, s.handleCreateUser},
		{http.MethodGet, "/api/users/{id}", public, s.handleGetUser},
		{http.MethodPut, "/api/users/{id}", admin, s.handleUpdateUser},

		{http.MethodPost, "/api/csps", roles(auth.RoleAdmin, auth.RoleFI), s.handleCreateCSP},
		{http.MethodGet, "/api/csps", authenticated, s.handleListCSPs},
		{http.MethodGet, "/api/csps/{id}", public, s.handleGetCSP},
		{http.MethodGet, "/api/csps/user/{userId}", authenticated, s.handleGetCSPByUser},
		{http.MethodPut, "/api/csps/{id}", public, s.handleUpdateCSP},

		{http.MethodPost, "/api/transactions", public, s.handleCreateTransaction},
		{http.MethodGet, "/api/transactions/{id}", public, s.handleGetTransaction},
		{http.MethodGet, "/api/transactions/csp/{cspId}", public, s.handleListTransactions},

		{http.MethodPost, "/api/alerts", public, s.handleCreateAlert},
		{http.MethodGet, "/api/alerts", public, s.handleListAlerts},
		{http.MethodGet, "/api/alerts/{id}", public, s.handleGetAlert},
		{http.MethodGet, "/api/alerts/csp/{cspId}", public, s.handleListAlertsByCSP},
		{http.MethodPut, "/api/alerts/{id}", public, s.handleUpdateAlert},

		{http.MethodPost, "/api/audits", public, s.handleCreateAudit},
		{http.MethodGet, "/api/audits/{id}", public, s.handleGetAudit},
		{http.MethodGet, "/api/audits/csp/{cspId}", public, s.handleListAuditsByCSP},
		{http.MethodGet, "/api/audits/auditor/{auditorId}", public, s.handleListAuditsByAuditor},
		{http.MethodPut, "/api/audits/{id}", public, s.handleUpdateAudit},

		{http.MethodPost, "/api/complaints", public, s.handleCreateComplaint},
		{http.MethodGet, "/api/complaints/{id}", public, s.handleGetComplaint},
		{http.MethodGet, "/api/complaints/csp/{cspId}", public, s.handleListComplaints},
		{http.MethodPut, "/api/complaints/{id}", public, s.handleUpdateComplaint},

		{http.MethodPost, "/api/check-ins", public, s.handleCreateCheckIn},
		{http.MethodGet, "/api/check-ins/csp/{cspId}", public, s.handleListCheckIns},
		{http.MethodGet, "/api/check-ins/csp/{cspId}/latest", public, s.handleLatestCheckIn},

		{http.MethodGet, "/api/system-status", public, s.handleListSystemStatus},
		{http.MethodPut, "/api/system-status/{service}", public, s.handleUpdateSystemStatus},

		{http.MethodGet, "/api/war-mode", public, s.handleGetWarMode},
		{http.MethodPut, "/api/war-mode", admin, s.handleUpdateWarMode},
		{http.MethodPost, "/api/war-mode/activate", admin, s.handleActivateWarMode},
		{http.MethodPost, "/api/war-mode/deactivate", admin, s.handleDeactivateWarMode},
	}
}

// guard enforces a route's access rule: 401 without a valid token or when
// the token's user is gone or no longer active, 403 when the user's current
// role is not admitted. The stored user wins over the role in the token.
func (s *Server) guard(a access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !a.authenticated {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
			if err != nil {
				s.logger.Debug("rejected token", zap.Error(err))
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			user, err := s.store.GetUser(r.Context(), claims.UserID)
			if err != nil {
				s.fail(w, r, "authenticate", err)
				return
			}
			if user == nil || !user.Active() {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			claims.Role = auth.Role(user.Role)
			if len(a.roles) > 0 && !claims.HasRole(a.roles...) {
				writeMessage(w, http.StatusForbidden, "Forbidden")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
