// Package main provides the entry point for the PrivacyGuard remediation
// service: the workflow orchestration engine that turns compliance findings'
// remediation recommendations into supervised, auditable workflows.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/actions"
	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/config"
	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/observability"
	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/remediation"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Wired in main, read by the request handlers.
var (
	workflowManager *remediation.Manager
	actionRegistry  *actions.Registry
	logger          *zap.Logger
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("PrivacyGuard remediation %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	telemetry, err := observability.New(cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry init failed: %v\n", err)
		os.Exit(1)
	}
	logger = telemetry.Logger()
	logger.Info("Starting PrivacyGuard remediation service",
		zap.String("version", Version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	actionRegistry = actions.NewRegistry(logger)
	bindLoopbackHandlers(actionRegistry)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Store init failed", zap.Error(err))
	}

	workflowManager = remediation.NewManager(remediation.ManagerConfig{
		Store:           store,
		Registry:        actionRegistry,
		Logger:          logger,
		Metrics:         telemetry.Metrics(),
		ApprovalTimeout: cfg.Engine.ApprovalTimeout,
	})
	workflowManager.RunScheduler(ctx, cfg.Engine.SchedulerInterval)
	telemetry.StartSystemMetricsCollector(ctx)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(telemetry.HTTPMiddleware)

	r.Handle("/metrics", telemetry.MetricsHandler())
	registerRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("Shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("Telemetry shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// registerRoutes mounts the health and API endpoints.
func registerRoutes(r chi.Router) {
	r.Get("/health", handleHealth)
	r.Get("/ready", handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", handleCreateWorkflow)
			r.Get("/", handleListWorkflows)
			r.Get("/{id}", handleGetWorkflow)
			r.Post("/{id}/start", handleStartWorkflow)
			r.Post("/{id}/approve", handleApproveWorkflow)
			r.Post("/{id}/reject", handleRejectWorkflow)
			r.Post("/{id}/cancel", handleCancelWorkflow)
			r.Post("/{id}/rollback", handleRollbackWorkflow)
		})
		r.Get("/actions", handleListActions)
	})
}

// buildStore selects the workflow store backend from config.
func buildStore(ctx context.Context, cfg *config.Config) (remediation.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return remediation.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: os.Getenv(cfg.Redis.PasswordEnv),
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		store := remediation.NewRedisStore(client, cfg.Store.KeyPrefix)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis store unreachable: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// bindLoopbackHandlers attaches logging no-op handlers to every catalog
// entry. Deployments replace these with real provider agents.
func bindLoopbackHandlers(reg *actions.Registry) {
	for _, def := range reg.List() {
		name := def.Name
		reversible := def.Reversible

		execute := func(ctx context.Context, inv actions.Invocation) (*actions.HandlerResult, error) {
			logger.Info("Loopback handler invoked",
				zap.String("action", name),
				zap.String("workflow_id", inv.WorkflowID),
			)
			res := &actions.HandlerResult{
				Success: true,
				Message: fmt.Sprintf("%s applied (loopback)", name),
			}
			if reversible {
				res.RollbackData = map[string]any{
					"previous_state": inv.Parameters,
					"applied_at":     time.Now().Format(time.RFC3339),
				}
			}
			return res, nil
		}

		var rollback actions.HandlerFunc
		if reversible {
			rollback = func(ctx context.Context, inv actions.Invocation) (*actions.HandlerResult, error) {
				logger.Info("Loopback rollback invoked",
					zap.String("action", name),
					zap.String("workflow_id", inv.WorkflowID),
				)
				return &actions.HandlerResult{
					Success: true,
					Message: fmt.Sprintf("%s reverted (loopback)", name),
				}, nil
			}
		}

		if err := reg.Bind(name, execute, rollback); err != nil {
			logger.Warn("Handler bind failed", zap.String("action", name), zap.Error(err))
		}
	}
}

// Health and readiness handlers

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": Version})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	if workflowManager == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Workflow handlers

// CreateWorkflowRequest is the POST /workflows payload.
type CreateWorkflowRequest struct {
	Recommendation remediation.Recommendation `json:"recommendation"`
	ScheduledFor   *time.Time                 `json:"scheduled_for,omitempty"`
}

func handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recommendation.ID == "" || req.Recommendation.ActionHandlerRef == "" {
		writeError(w, http.StatusBadRequest, "recommendation id and action_handler_ref are required")
		return
	}

	id, err := workflowManager.CreateWorkflow(r.Context(), req.Recommendation, req.ScheduledFor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	wf, err := workflowManager.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	var (
		workflows []*remediation.Workflow
		err       error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		workflows, err = workflowManager.ListWorkflowsByStatus(r.Context(), remediation.WorkflowStatus(status))
	} else {
		workflows, err = workflowManager.ListWorkflows(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := workflowManager.GetWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func handleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := workflowManager.StartWorkflow(r.Context(), id); err != nil {
		writeManagerError(w, err)
		return
	}
	wf, err := workflowManager.GetWorkflow(r.Context(), id)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// ApprovalRequest is the approve/reject payload.
type ApprovalRequest struct {
	ApproverRole string `json:"approver_role"`
	Actor        string `json:"actor"`
	Comments     string `json:"comments,omitempty"`
}

func handleApproveWorkflow(w http.ResponseWriter, r *http.Request) {
	var req ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApproverRole == "" || req.Actor == "" {
		writeError(w, http.StatusBadRequest, "approver_role and actor are required")
		return
	}

	id := chi.URLParam(r, "id")
	applied, err := workflowManager.ApproveWorkflow(r.Context(), id, req.ApproverRole, req.Actor, req.Comments)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	if !applied {
		writeError(w, http.StatusConflict, "no pending approval for role "+req.ApproverRole)
		return
	}

	wf, err := workflowManager.GetWorkflow(r.Context(), id)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func handleRejectWorkflow(w http.ResponseWriter, r *http.Request) {
	var req ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApproverRole == "" || req.Actor == "" {
		writeError(w, http.StatusBadRequest, "approver_role and actor are required")
		return
	}

	id := chi.URLParam(r, "id")
	applied, err := workflowManager.RejectWorkflow(r.Context(), id, req.ApproverRole, req.Actor, req.Comments)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	if !applied {
		writeError(w, http.StatusConflict, "no pending approval for role "+req.ApproverRole)
		return
	}

	wf, err := workflowManager.GetWorkflow(r.Context(), id)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// CancelRequest is the cancel payload.
type CancelRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func handleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := workflowManager.CancelWorkflow(r.Context(), id, req.Actor, req.Reason); err != nil {
		writeManagerError(w, err)
		return
	}

	wf, err := workflowManager.GetWorkflow(r.Context(), id)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func handleRollbackWorkflow(w http.ResponseWriter, r *http.Request) {
	result, err := workflowManager.RollbackWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Action catalog handler

func handleListActions(w http.ResponseWriter, r *http.Request) {
	defs := actionRegistry.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"actions": defs,
		"count":   len(defs),
	})
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, remediation.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, remediation.ErrInvalidState), errors.Is(err, remediation.ErrNoRollbackData):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
