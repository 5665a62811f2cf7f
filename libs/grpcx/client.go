package grpcx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/httpx"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type DialOptions struct {
	// Timeout bounds the wait for the first READY state.
	Timeout time.Duration
	// Defaults to insecure credentials when nil.
	TransportCredentials grpc.DialOption
}

// Dial creates a traced client connection that forwards request id, tenant and bearer token
// from the context, and waits until it is ready or the timeout expires. Targets without a
// scheme are dialed as-is, without DNS resolution.
func Dial(ctx context.Context, addr string, opts DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	creds := opts.TransportCredentials
	if creds == nil {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	target := addr
	if !strings.Contains(target, "://") {
		target = "passthrough:///" + target
	}

	dialOpts := append([]grpc.DialOption{
		creds,
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(UnaryClientMetadataInterceptor()),
	}, extra...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return conn, nil
		}
		if !conn.WaitForStateChange(waitCtx, state) {
			_ = conn.Close()
			return nil, fmt.Errorf("grpc dial %s: last state %s: %w", addr, state, waitCtx.Err())
		}
	}
}

// UnaryClientMetadataInterceptor copies the request id and the context tenant (id and token)
// into outgoing metadata.
func UnaryClientMetadataInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var kv []string
		if id := httpx.RequestIDFromContext(ctx); id != "" {
			kv = append(kv, RequestIDMetadataKey, id)
		}
		if t, ok := tenant.FromContext(ctx); ok {
			kv = append(kv, TenantMetadataKey, t.ID)
			if t.Token != "" {
				kv = append(kv, authorizationKey, "Bearer "+t.Token)
			}
		}
		if len(kv) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, kv...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
