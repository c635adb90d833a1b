package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trio-driver/internal/audit"
	"trio-driver/internal/auth"
	"trio-driver/internal/calls"
	"trio-driver/internal/config"
	"trio-driver/internal/device"
	"trio-driver/internal/metrics"
	"trio-driver/internal/profile"
	"trio-driver/internal/snapshot"
	"trio-driver/internal/telephony"
	"trio-driver/pkg/logger"
	"trio-driver/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gateOpts := []device.GateOption{device.WithMetrics(m)}

	// Redis is optional: with it, replicas share one lock per phone.
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		lock, err := utils.NewDeviceLock(rdb, cfg.Device.Host, cfg.Device.LockTTL)
		if err != nil {
			log.Error("device lock init failed", "err", err)
			os.Exit(1)
		}
		gateOpts = append(gateOpts, device.WithLocker(lock))
	}

	endpoint, err := buildEndpoint(cfg, log, m, gateOpts)
	if err != nil {
		log.Error("device init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	// Worst case per request: a full snapshot, each device request taking the
	// whole timeout, or a dial with its status polling.
	deviceBudget := cfg.Device.Timeout*snapshot.MaxDeviceRequests + calls.DefaultPollAttempts*calls.DefaultPollInterval

	registerRoutes(r, endpoint, reg, auth.RequireAccessToken(authManager), deviceBudget)

	// handlers give up at deviceBudget; the write deadline leaves room for the error
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      deviceBudget + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "device", cfg.DeviceURL(), "model", cfg.Device.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// buildEndpoint assembles the driver stack for the configured phone.
func buildEndpoint(cfg config.Config, log *slog.Logger, m *metrics.Collector, gateOpts []device.GateOption) (*telephony.TrioProvider, error) {
	client, err := device.New(device.TransportConfig{
		BaseURL:     cfg.DeviceURL(),
		Username:    cfg.Device.Username,
		Password:    cfg.Device.Password,
		Auth:        device.AuthScheme(cfg.Device.Auth),
		InsecureTLS: cfg.Device.InsecureTLS,
		Timeout:     cfg.Device.Timeout,
	}, gateOpts...)
	if err != nil {
		return nil, err
	}

	p, err := profile.ForModel(cfg.Device.Model)
	if err != nil {
		return nil, err
	}

	mapper, err := snapshot.LoadMapper(cfg.Device.MappingFile)
	if err != nil {
		return nil, err
	}

	ctrl := calls.NewController(client, p, calls.Options{Metrics: m})
	asm := snapshot.NewAssembler(client, ctrl, mapper, snapshot.WithMetrics(m))
	auditSvc := audit.NewService(audit.NewLogRepo(log))

	return telephony.NewTrioProvider(client, p, ctrl, asm, auditSvc), nil
}
