package api

import (
	"database/sql"
	"net/http"

	"github.com/surmed/surmed/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	suppliesHandler := &SuppliesHandler{DB: db}
	evidenceHandler := &EvidenceHandler{DB: db}
	decisionsHandler := &DecisionsHandler{DB: db}
	rulesHandler := &RulesHandler{DB: db}
	reasonsHandler := &ReasonsHandler{DB: db}
	auditHandler := &AuditHandler{DB: db}
	exportHandler := &ExportHandler{DB: db}
	dashboardHandler := &DashboardHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireReviewer := RequireRole(model.RoleReviewer)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Supplies: submit and browse (all roles).
	mux.Handle("POST /api/supplies", authMW(http.HandlerFunc(suppliesHandler.Create)))
	mux.Handle("GET /api/supplies", authMW(http.HandlerFunc(suppliesHandler.List)))
	mux.Handle("GET /api/supplies/{id}", authMW(http.HandlerFunc(suppliesHandler.Get)))
	mux.Handle("GET /api/supplies/{id}/eligibility", authMW(http.HandlerFunc(suppliesHandler.Eligibility)))
	mux.Handle("GET /api/supplies/{id}/decisions", authMW(http.HandlerFunc(suppliesHandler.Decisions)))

	// Evidence: upload and view (all roles).
	mux.Handle("POST /api/supplies/{id}/evidence", authMW(http.HandlerFunc(evidenceHandler.Upload)))
	mux.Handle("GET /api/supplies/{id}/evidence", authMW(http.HandlerFunc(evidenceHandler.List)))
	mux.Handle("GET /api/evidence/{id}/file", authMW(http.HandlerFunc(evidenceHandler.GetFile)))

	// Decisions: deciding needs reviewer or above, browsing too.
	mux.Handle("POST /api/decisions", authMW(requireReviewer(http.HandlerFunc(decisionsHandler.Create))))
	mux.Handle("GET /api/decisions", authMW(requireReviewer(http.HandlerFunc(decisionsHandler.List))))
	mux.Handle("GET /api/decisions/stats", authMW(requireReviewer(http.HandlerFunc(decisionsHandler.Stats))))
	mux.Handle("GET /api/decisions/{id}", authMW(requireReviewer(http.HandlerFunc(decisionsHandler.Get))))

	// Rules: read (reviewer+), write (admin).
	mux.Handle("GET /api/rules", authMW(requireReviewer(http.HandlerFunc(rulesHandler.List))))
	mux.Handle("POST /api/rules", authMW(requireAdmin(http.HandlerFunc(rulesHandler.Create))))
	mux.Handle("GET /api/rules/{id}", authMW(requireReviewer(http.HandlerFunc(rulesHandler.Get))))
	mux.Handle("PUT /api/rules/{id}", authMW(requireAdmin(http.HandlerFunc(rulesHandler.Update))))
	mux.Handle("DELETE /api/rules/{id}", authMW(requireAdmin(http.HandlerFunc(rulesHandler.Deactivate))))

	// Reason codes: read (all roles), write (admin).
	mux.Handle("GET /api/reason-codes", authMW(http.HandlerFunc(reasonsHandler.List)))
	mux.Handle("POST /api/reason-codes", authMW(requireAdmin(http.HandlerFunc(reasonsHandler.Create))))
	mux.Handle("PUT /api/reason-codes/{id}/active", authMW(requireAdmin(http.HandlerFunc(reasonsHandler.SetActive))))

	// Audit and export (admin).
	mux.Handle("GET /api/audit", authMW(requireAdmin(http.HandlerFunc(auditHandler.List))))
	mux.Handle("GET /api/export/decisions", authMW(requireAdmin(http.HandlerFunc(exportHandler.Decisions))))

	// Dashboard (reviewer+).
	mux.Handle("GET /api/dashboard", authMW(requireReviewer(http.HandlerFunc(dashboardHandler.Get))))

	return mux
}
