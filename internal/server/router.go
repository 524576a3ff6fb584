package server

import (
	"net/http"
	"time"

	"idstation-backend/internal/config"
	"idstation-backend/internal/domain"
	"idstation-backend/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	stations handler.StationHandler,
	users handler.UserHandler,
	citizens handler.CitizenHandler,
	orders handler.OrderHandler,
	reports handler.ReportHandler,
	uploads handler.UploadHandler,
	audits handler.AuditLogHandler,
	docs handler.DocsHandler,
	home handler.HomeHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	home.RegisterRoutes(r)
	docs.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		auth.RegisterProtectedRoutes(pr)

		// station-level (every authenticated station role)
		pr.Group(func(sr chi.Router) {
			sr.Use(RequireRole(domain.RoleSuperAdmin, domain.RoleStationAdmin,
				domain.RoleRegistrar, domain.RolePrinter, domain.RoleDeveloper))
			citizens.RegisterRoutes(sr)
			orders.RegisterRoutes(sr)
			reports.RegisterRoutes(sr)
			stations.RegisterImageRoutes(sr)
			uploads.RegisterRoutes(sr)
		})
		// registrar-level (registrar/stationAdmin)
		pr.Group(func(rr chi.Router) {
			rr.Use(RequireRole(domain.RoleRegistrar, domain.RoleStationAdmin))
			citizens.RegisterRegistrarRoutes(rr)
		})
		// registrar-only order placement
		pr.Group(func(rr chi.Router) {
			rr.Use(RequireRole(domain.RoleRegistrar))
			orders.RegisterRegistrarRoutes(rr)
		})
		// printer-level
		pr.Group(func(pr2 chi.Router) {
			pr2.Use(RequireRole(domain.RolePrinter))
			orders.RegisterPrinterRoutes(pr2)
		})
		// admin-level (stationAdmin/superAdmin/developer)
		pr.Group(func(ar chi.Router) {
			ar.Use(RequireRole(domain.RoleStationAdmin, domain.RoleSuperAdmin, domain.RoleDeveloper))
			citizens.RegisterAdminRoutes(ar)
			orders.RegisterAdminRoutes(ar)
			users.RegisterRoutes(ar)
			audits.RegisterRoutes(ar)
		})
		// cross-station breakdown (superAdmin/developer, unassigned printers)
		pr.Group(func(cr chi.Router) {
			cr.Use(RequireRole(domain.RoleSuperAdmin, domain.RoleDeveloper, domain.RolePrinter))
			reports.RegisterCrossStationRoutes(cr)
		})
		// superAdmin-level
		pr.Group(func(sa chi.Router) {
			sa.Use(RequireRole(domain.RoleSuperAdmin, domain.RoleDeveloper))
			stations.RegisterRoutes(sa)
		})
	})

	return r
}
