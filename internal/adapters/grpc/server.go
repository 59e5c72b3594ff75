package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/domain"
)

const serviceName = "viralforge.affiliate.v1.AffiliateInternalService"

// AffiliateInternalService lets checkout services resolve codes and report
// conversions without going through the public webhook.
type AffiliateInternalService interface {
	ResolveLink(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordConversion(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type AffiliateInternalServer struct {
	service *application.Service
}

func NewAffiliateInternalServer(service *application.Service) *AffiliateInternalServer {
	return &AffiliateInternalServer{service: service}
}

// NewServer builds a grpc server with the health service marked serving and
// the internal affiliate service registered.
func NewServer(service *application.Service, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	Register(server, NewAffiliateInternalServer(service))
	return server
}

func Register(server grpc.ServiceRegistrar, svc AffiliateInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AffiliateInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ResolveLink",
				Handler:    unaryHandler("ResolveLink", svc.ResolveLink),
			},
			{
				MethodName: "RecordConversion",
				Handler:    unaryHandler("RecordConversion", svc.RecordConversion),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "affiliate/v1/affiliate_internal.proto",
	}, svc)
}

func (s *AffiliateInternalServer) ResolveLink(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	code := stringField(req, "code")
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "missing code")
	}
	resolved, err := s.service.ResolveLink(ctx, domain.NormalizeLinkCode(code))
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"link_id":      resolved.Link.LinkID,
		"code":         resolved.Link.Code,
		"affiliate_id": resolved.Link.AffiliateID,
		"program_id":   resolved.Program.ProgramID,
		"target_url":   resolved.Program.TargetURL,
		"window_days":  resolved.Program.AttributionWindowDays,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AffiliateInternalServer) RecordConversion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	amount, err := decimal.NewFromString(stringField(req, "amount"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "amount must be a decimal string")
	}
	row, err := s.service.RecordConversion(ctx, application.RecordConversionInput{
		TransactionID: stringField(req, "transaction_id"),
		Amount:        amount,
		AffiliateCode: stringField(req, "affiliate_code"),
		TraceID:       stringField(req, "trace_id"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]any{
		"conversion_id": row.ConversionID,
		"link_id":       row.LinkID,
		"commission":    row.Commission.StringFixed(2),
		"status":        string(row.Status),
	}
	if row.AttributedClickID != nil {
		out["attributed_click_id"] = *row.AttributedClickID
	}
	resp, err := structpb.NewStruct(out)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func unaryHandler(method string, call func(context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	v := req.GetFields()[key]
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidLink), errors.Is(err, domain.ErrLinkNotFound), errors.Is(err, domain.ErrLinkInactive):
		return status.Error(codes.NotFound, "invalid affiliate link")
	case errors.Is(err, domain.ErrNoAttributionCode), errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrDuplicateConversion):
		return status.Error(codes.AlreadyExists, "transaction already recorded")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
