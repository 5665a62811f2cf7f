package grpcx

import (
	"strings"

	"google.golang.org/grpc/metadata"
)

// Metadata keys mirror the HTTP headers the portal already speaks.
const (
	RequestIDMetadataKey = "x-request-id"
	TenantMetadataKey    = "x-tenant-id"
	authorizationKey     = "authorization"
)

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
