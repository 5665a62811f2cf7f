// Package grpcserver exposes slot computation over gRPC. Messages are JSON encoded with the
// grpcx codec, so the service is described by hand instead of generated stubs.
package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/salonportal/libs/grpcx"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/backend"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const ServiceName = "portal.v1.Availability"

const (
	methodComputeSlots  = "/" + ServiceName + "/ComputeSlots"
	methodMonthCalendar = "/" + ServiceName + "/MonthCalendar"
)

type SlotsRequest struct {
	Date         string   `json:"date"`
	ProcedureIDs []string `json:"procedure_ids,omitempty"`
	Duration     int      `json:"duration_minutes,omitempty"`
	EditID       string   `json:"edit_id,omitempty"`
}

type SlotsResponse struct {
	Date     string      `json:"date"`
	Duration int         `json:"duration_minutes"`
	Closed   bool        `json:"closed"`
	Windows  [][2]string `json:"windows"`
	Slots    []string    `json:"slots"`
}

type CalendarRequest struct {
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	ProcedureIDs []string `json:"procedure_ids,omitempty"`
	EditID       string   `json:"edit_id,omitempty"`
}

type AvailabilityServer interface {
	ComputeSlots(ctx context.Context, req *SlotsRequest) (*SlotsResponse, error)
	MonthCalendar(ctx context.Context, req *CalendarRequest) (*model.MonthCalendar, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComputeSlots", Handler: computeSlotsHandler},
		{MethodName: "MonthCalendar", Handler: monthCalendarHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "portal/v1/availability.json",
}

func computeSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SlotsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).ComputeSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodComputeSlots}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).ComputeSlots(ctx, req.(*SlotsRequest))
	})
}

func monthCalendarHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CalendarRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).MonthCalendar(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodMonthCalendar}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).MonthCalendar(ctx, req.(*CalendarRequest))
	})
}

type server struct {
	slots *scheduling.Service
}

// Register adds the availability service and grpc.health.v1 to grpcServer. The returned
// health server reports SERVING until the caller changes it.
func Register(grpcServer *grpc.Server, slots *scheduling.Service) *health.Server {
	grpcServer.RegisterService(&serviceDesc, &server{slots: slots})
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

// ServerOptions wires tracing, panic recovery, request ids, tenant resolution and access logging. Health
// checks run without a tenant.
func ServerOptions(logger *slog.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRecoverInterceptor(logger),
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerTenantInterceptor("/grpc.health.v1."),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	}
}

func (s *server) ComputeSlots(ctx context.Context, req *SlotsRequest) (*SlotsResponse, error) {
	res, err := s.slots.Slots(ctx, scheduling.SlotQuery{
		Date:         req.Date,
		ProcedureIDs: req.ProcedureIDs,
		Duration:     req.Duration,
		EditID:       req.EditID,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	slots := res.Slots
	if slots == nil {
		slots = []string{}
	}
	return &SlotsResponse{
		Date:     res.Date,
		Duration: res.Duration,
		Closed:   res.Closed,
		Windows:  res.WindowClocks(),
		Slots:    slots,
	}, nil
}

func (s *server) MonthCalendar(ctx context.Context, req *CalendarRequest) (*model.MonthCalendar, error) {
	cal, err := s.slots.Calendar(ctx, scheduling.CalendarQuery{
		Year:         req.Year,
		Month:        req.Month,
		ProcedureIDs: req.ProcedureIDs,
		EditID:       req.EditID,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &cal, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, scheduling.ErrInvalidRequest), errors.Is(err, model.ErrUnknownProcedure):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, tenant.ErrMissing):
		return status.Error(codes.InvalidArgument, "missing tenant")
	}
	switch code := backend.StatusOf(err); {
	case errors.Is(err, backend.ErrUnavailable), code >= http.StatusInternalServerError:
		return status.Error(codes.Unavailable, err.Error())
	case code == http.StatusNotFound:
		return status.Error(codes.NotFound, err.Error())
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return status.Error(codes.PermissionDenied, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// Client calls a remote portal availability service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ComputeSlots(ctx context.Context, req *SlotsRequest) (*SlotsResponse, error) {
	out := new(SlotsResponse)
	if err := c.cc.Invoke(ctx, methodComputeSlots, req, out, grpc.CallContentSubtype(grpcx.JSONCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MonthCalendar(ctx context.Context, req *CalendarRequest) (*model.MonthCalendar, error) {
	out := new(model.MonthCalendar)
	if err := c.cc.Invoke(ctx, methodMonthCalendar, req, out, grpc.CallContentSubtype(grpcx.JSONCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}
