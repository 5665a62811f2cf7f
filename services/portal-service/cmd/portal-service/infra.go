package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/config"
	"github.com/md-rashed-zaman/salonportal/libs/httpx"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/grpcserver"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// rateLimit prefers the shared Redis limiter so replicas enforce one budget per client.
func rateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "portal:rl"))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
		return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	return httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
}

func startGrpcServer(ctx context.Context, logger *slog.Logger, slots *scheduling.Service) error {
	port, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpcserver.ServerOptions(logger)...)
	hs := grpcserver.Register(srv, slots)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		srv.GracefulStop()
	}()

	return nil
}
