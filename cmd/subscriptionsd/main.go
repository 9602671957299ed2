package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/app"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/metrics"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := app.LoadRegistry(cfg.LLM, cfg.Resolve, logger)
	if err != nil {
		logger.Error("failed to load registry", "error", err)
		os.Exit(1)
	}
	gen, err := app.NewGenerator(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build extraction client", "error", err)
		os.Exit(1)
	}

	store, err := server.OpenAuditStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open audit store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("audit store ready", "kind", store.Kind)

	m := metrics.New()
	proc := app.NewProcessor(cfg, app.Components{
		Registry:  reg,
		Generator: gen,
		Mailbox:   app.NewMailbox(cfg.Mailbox, logger),
		Audit:     store.Repo,
		Metrics:   m,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.GRPCAddr != "" {
		grpcServer, hs := server.NewGRPCServer(proc, logger)
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(cfg.Server.ShutdownTimeout):
				logger.Warn("grpc graceful stop timed out; forcing")
				grpcServer.Stop()
			}
			return nil
		})
	}

	if cfg.Server.HTTPAddr != "" {
		srv := &http.Server{
			Addr: cfg.Server.HTTPAddr,
			Handler: server.NewHTTPHandler(proc, server.HTTPOptions{
				Metrics: m,
				Health: func(ctx context.Context) error {
					return store.Ping(ctx, cfg.Database.DialTimeout)
				},
			}, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
