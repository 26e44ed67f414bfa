package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/construehq/construe/internal/analysis"
	"github.com/construehq/construe/internal/config"
	"github.com/construehq/construe/internal/documents"
	"github.com/construehq/construe/internal/lifecycle"
	"github.com/construehq/construe/internal/orchestrator"
	"github.com/construehq/construe/internal/routes"
	"github.com/construehq/construe/internal/server"
	"github.com/construehq/construe/internal/storage"
	"github.com/construehq/construe/internal/tasks"
	"github.com/construehq/construe/pkg/logging"
)

// Service coordinates the lifecycle of all subsystems.
type Service struct {
	lc     *lifecycle.Coordinator
	logger *slog.Logger

	storage      storage.System
	orchestrator orchestrator.System
	server       server.System
}

// NewService creates and initializes the service with all subsystems.
func NewService(cfg *config.Config) (*Service, error) {
	lc := lifecycle.New()
	logger := logging.New(&cfg.Logging)

	registry := tasks.NewRegistry(logger)
	registry.StartJanitor(lc, cfg.Pipeline.RetentionTTLDuration(), cfg.Pipeline.SweepIntervalDuration())

	storageSys, err := storage.New(context.Background(), &cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	analysisSvc := analysis.New(&cfg.Analysis, logger)
	orchestratorSys := orchestrator.New(&cfg.Pipeline, storageSys, analysisSvc, registry, logger)

	handler := documents.NewHandler(orchestratorSys, logger, cfg.Pagination, cfg.Storage.MaxUploadSizeBytes())

	routeSys := routes.New(logger)
	routeSys.RegisterGroup(handler.Routes())
	registerRoutes(routeSys, lc)

	middlewareSys := buildMiddleware(logger, cfg)
	serverSys := server.New(&cfg.Server, middlewareSys.Apply(routeSys.Build()), logger)

	logger.Info("service initialized", "addr", cfg.Server.Addr(), "backend", cfg.Storage.Backend)

	return &Service{
		lc:           lc,
		logger:       logger,
		storage:      storageSys,
		orchestrator: orchestratorSys,
		server:       serverSys,
	}, nil
}

// Start begins all subsystems and returns when they are ready.
func (s *Service) Start() error {
	s.logger.Info("starting service")

	if err := s.storage.Start(s.lc); err != nil {
		return err
	}
	if err := s.orchestrator.Start(s.lc); err != nil {
		return err
	}
	if err := s.server.Start(s.lc); err != nil {
		return err
	}

	go func() {
		s.lc.WaitForStartup()
		s.logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown gracefully stops all subsystems within the timeout.
func (s *Service) Shutdown(timeout time.Duration) error {
	s.logger.Info("initiating shutdown")
	return s.lc.Shutdown(timeout)
}
