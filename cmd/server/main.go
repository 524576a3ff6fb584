package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"idstation-backend/internal/config"
	"idstation-backend/internal/db"
	"idstation-backend/internal/handler"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server"
	"idstation-backend/internal/service"
	"idstation-backend/internal/upload"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	stationRepo := repository.StationRepository{DB: pg}
	citizenRepo := repository.CitizenRepository{DB: pg}
	orderRepo := repository.OrderRepository{DB: pg}
	reportRepo := repository.ReportRepository{DB: pg}
	auditRepo := repository.AuditLogRepository{DB: pg}

	if cfg.SeedAdminUser != "" && cfg.SeedAdminPass != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPass), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash seed password", "err", err)
			os.Exit(1)
		}
		if err := userRepo.SeedSuperAdmin(ctx, cfg.SeedAdminUser, string(hash)); err != nil {
			logger.Error("failed to seed super admin", "err", err)
			os.Exit(1)
		}
	}

	uploadMgr, err := upload.NewManager(cfg.UploadDir, cfg.UploadSessionTTL, logger)
	if err != nil {
		logger.Error("failed to init upload manager", "err", err)
		os.Exit(1)
	}
	go uploadMgr.RunJanitor(ctx)

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger}
	citizenSvc := service.CitizenService{Citizens: citizenRepo, Audit: auditRepo, Logger: logger}
	orderSvc := &service.OrderService{Orders: orderRepo, Audit: auditRepo, Logger: logger, Currency: cfg.DefaultCurrency}

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc}
	stationHandler := handler.StationHandler{Repo: stationRepo}
	userHandler := handler.UserHandler{Repo: userRepo}
	citizenHandler := handler.CitizenHandler{Service: citizenSvc}
	orderHandler := handler.OrderHandler{Service: orderSvc}
	reportHandler := handler.ReportHandler{Repo: reportRepo, Currency: cfg.DefaultCurrency}
	uploadHandler := handler.UploadHandler{Manager: uploadMgr}
	auditHandler := handler.AuditLogHandler{Repo: auditRepo}
	docsHandler := handler.DocsHandler{}
	homeHandler := handler.HomeHandler{}

	router := server.NewRouter(cfg, logger, healthHandler, authHandler, stationHandler, userHandler, citizenHandler, orderHandler, reportHandler, uploadHandler, auditHandler, docsHandler, homeHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
