package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/auth"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/common"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/core"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/utils"
)

// ExtractionServiceName is the fully qualified gRPC service name.
const ExtractionServiceName = "subscriptions.v1.ExtractionService"

// ExtractionServer is the gRPC surface. Requests and responses are google.protobuf.Struct
// carrying the same JSON shapes as the HTTP API.
type ExtractionServer interface {
	AnalyzeDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchInvoices(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAuthLink(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ExtractionServiceDesc registers ExtractionServer without generated stubs.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractionServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzeDocuments", Handler: unaryHandler("AnalyzeDocuments", ExtractionServer.AnalyzeDocuments)},
		{MethodName: "FetchInvoices", Handler: unaryHandler("FetchInvoices", ExtractionServer.FetchInvoices)},
		{MethodName: "CreateAuthLink", Handler: unaryHandler("CreateAuthLink", ExtractionServer.CreateAuthLink)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "subscriptions/v1/extraction.proto",
}

// FullMethod returns "/subscriptions.v1.ExtractionService/<method>".
func FullMethod(method string) string {
	return "/" + ExtractionServiceName + "/" + method
}

func unaryHandler(method string, call func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ExtractionService adapts a Pipeline to ExtractionServer.
type ExtractionService struct {
	pipeline Pipeline
	logger   *slog.Logger
}

func NewExtractionService(p Pipeline, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{pipeline: p, logger: logger}
}

func (s *ExtractionService) AnalyzeDocuments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req core.AnalyzeRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("invalid request: %v", err)
	}
	res, err := s.pipeline.AnalyzeDocuments(ctx, common.CredentialFromContext(ctx), req)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	return s.encode(ctx, res)
}

func (s *ExtractionService) FetchInvoices(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req core.FetchInvoicesRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("invalid request: %v", err)
	}
	out, err := s.pipeline.FetchInvoices(ctx, common.CredentialFromContext(ctx), req)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	return s.encode(ctx, out)
}

func (s *ExtractionService) CreateAuthLink(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req core.AuthLinkRequest
	if err := utils.FromStruct(in, &req); err != nil {
		return nil, common.InvalidArgumentErrorf("invalid request: %v", err)
	}
	link, err := s.pipeline.CreateAuthLink(ctx, common.CredentialFromContext(ctx), req)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	return s.encode(ctx, link)
}

func (s *ExtractionService) encode(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := utils.ToStruct(v)
	if err != nil {
		s.logger.Error("grpc.encode_failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, common.InternalError("encode response")
	}
	return out, nil
}

// MetadataInterceptor moves the bearer token and request id from metadata into the context
// and logs each call. It never rejects; AuthInterceptor does.
func MetadataInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				if tok, ok := auth.BearerToken(vals[0]); ok {
					ctx = common.WithCredential(ctx, tok)
				}
			}
			if vals := md.Get("x-request-id"); len(vals) > 0 {
				reqID = strings.TrimSpace(vals[0])
			}
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx = common.WithRequestID(ctx, reqID)

		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"req_id", reqID,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// AuthInterceptor rejects extraction calls without a valid bearer token before the
// request struct is mapped. Health and reflection stay open.
func AuthInterceptor(p Pipeline) grpc.UnaryServerInterceptor {
	prefix := "/" + ExtractionServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, prefix) {
			if err := p.Authorize(ctx, common.CredentialFromContext(ctx)); err != nil {
				return nil, common.GRPCError(err)
			}
		}
		return handler(ctx, req)
	}
}

// NewGRPCServer builds a server with the extraction service, health and reflection registered.
func NewGRPCServer(p Pipeline, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(MetadataInterceptor(logger), AuthInterceptor(p)))
	gs := grpc.NewServer(opts...)

	gs.RegisterService(&ExtractionServiceDesc, NewExtractionService(p, logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ExtractionServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return gs, hs
}
