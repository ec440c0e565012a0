package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/in/rest"
	kafka_adapter "github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/out/kafka"
	memory_adapter "github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/out/memory"
	redis_adapter "github.com/JoeShih716/go-serial-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-serial-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-serial-ledger/internal/config"
	"github.com/JoeShih716/go-serial-ledger/pkg/logger"
	"github.com/JoeShih716/go-serial-ledger/pkg/serializer"
	"github.com/JoeShih716/go-serial-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 載入設定 (.env 不存在時略過)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(cfg config.Config, log *slog.Logger) error {
	// 2. 初始化 Ledger Core
	ledgerOpts := []usecase.LedgerOption{usecase.WithLedgerLogger(log)}
	if cfg.Journal.Enabled {
		journal, err := wal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				log.Error("failed to close journal", "error", err)
			}
		}()
		ledgerOpts = append(ledgerOpts, usecase.WithJournal(journal))
		log.Info("audit journal enabled", "path", cfg.Journal.Path)
	}
	ledger := usecase.NewLedger(memory_adapter.NewAccountStore(), memory_adapter.NewTransactionStore(), ledgerOpts...)

	// 3. 啟動 serializer (單一 worker)
	queue := serializer.New(cfg.Ledger.QueueCapacity, serializer.WithLogger(log))
	queue.Start()

	// 4. 初始化 UseCase
	coreOpts := []usecase.CoreOption{
		usecase.WithRequestTimeout(cfg.Ledger.RequestTimeout),
		usecase.WithLogger(log),
	}
	publisher, closePublisher, err := newPublisher(cfg.Events, log)
	if err != nil {
		return err
	}
	defer closePublisher()
	if publisher != nil {
		coreOpts = append(coreOpts, usecase.WithPublisher(publisher))
	}
	core := usecase.NewCoreUseCase(ledger, queue, coreOpts...)

	// 5. 啟動 gRPC 與 HTTP
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(log)))
	grpc_adapter.RegisterLedgerServiceServer(grpcServer, grpc_adapter.NewGrpcServer(core))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           rest.NewRouter(core, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting gRPC server", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		log.Info("starting HTTP server", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case sig := <-quit:
		log.Info("shutting down server", "signal", sig.String())
	case serveErr = <-errCh:
		log.Error("server failed", "error", serveErr)
	case <-queue.Done():
		serveErr = queue.Err()
		log.Error("ledger worker stopped", "error", serveErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	healthServer.Shutdown()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	// 入口都關閉後再停 serializer，已排隊的工作會先做完
	if err := queue.Shutdown(ctx); err != nil {
		log.Error("serializer shutdown", "error", err)
	}
	return serveErr
}

// newPublisher 依設定建立事件發布者，sink 為 none 時回傳 nil
func newPublisher(cfg config.EventsConfig, log *slog.Logger) (usecase.EventPublisher, func(), error) {
	switch cfg.Sink {
	case config.SinkKafka:
		p := kafka_adapter.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		log.Info("publishing events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		return p, func() {
			if err := p.Close(); err != nil {
				log.Error("close kafka publisher", "error", err)
			}
		}, nil
	case config.SinkRedis:
		client, err := redis_adapter.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("publishing events to redis", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
		return redis_adapter.NewPublisher(client, cfg.Redis.Stream), func() {
			if err := client.Close(); err != nil {
				log.Error("close redis client", "error", err)
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}
