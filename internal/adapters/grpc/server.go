package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/easytrade/upsell-orchestrator/internal/application"
	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// RunSignalService is the internal surface other services use to signal runs
// without going through the public HTTP edge.
type RunSignalService interface {
	SubmitReply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRunStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type RunSignalServer struct {
	service *application.Service
}

func NewRunSignalServer(service *application.Service) *RunSignalServer {
	return &RunSignalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc RunSignalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "easytrade.upsell.v1.RunSignalService",
		HandlerType: (*RunSignalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "SubmitReply",
				Handler:    structHandler(svc, "SubmitReply", RunSignalService.SubmitReply),
			},
			{
				MethodName: "CancelRun",
				Handler:    structHandler(svc, "CancelRun", RunSignalService.CancelRun),
			},
			{
				MethodName: "GetRunStatus",
				Handler:    structHandler(svc, "GetRunStatus", RunSignalService.GetRunStatus),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/upsell/v1/run_signal.proto",
	}, svc)
}

func (s *RunSignalServer) SubmitReply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := runIDFromRequest(req)
	if err != nil {
		return nil, err
	}
	reply := req.GetFields()["reply"].GetStringValue()
	if reply == "" {
		return nil, status.Error(codes.InvalidArgument, "missing reply")
	}

	if err := s.service.SubmitReply(ctx, runID, reply); err != nil {
		return nil, mapDomainError(err)
	}
	return buildStruct(map[string]any{
		"accepted": true,
		"run_id":   runID.String(),
	})
}

func (s *RunSignalServer) CancelRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := runIDFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.service.CancelRun(ctx, runID); err != nil {
		return nil, mapDomainError(err)
	}
	return buildStruct(map[string]any{
		"cancelled": true,
		"run_id":    runID.String(),
	})
}

func (s *RunSignalServer) GetRunStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID, err := runIDFromRequest(req)
	if err != nil {
		return nil, err
	}
	view, err := s.service.GetRun(ctx, runID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return buildStruct(map[string]any{
		"run_id":           view.RunID.String(),
		"account_id":       view.AccountID,
		"state":            string(view.State),
		"reply_status":     string(view.ReplyStatus),
		"automation_level": string(view.AutomationLevel),
	})
}

func runIDFromRequest(req *structpb.Struct) (uuid.UUID, error) {
	raw := req.GetFields()["run_id"].GetStringValue()
	if raw == "" {
		return uuid.Nil, status.Error(codes.InvalidArgument, "missing run_id")
	}
	runID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "run_id must be a uuid")
	}
	return runID, nil
}

func buildStruct(fields map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "run not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrReplyNotAccepted):
		return status.Error(codes.FailedPrecondition, "run is not awaiting a reply")
	case errors.Is(err, domain.ErrRunTerminal):
		return status.Error(codes.FailedPrecondition, "run already reached a terminal state")
	default:
		return status.Errorf(codes.Internal, "internal error")
	}
}

func structHandler(svc RunSignalService, method string, call func(RunSignalService, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/easytrade.upsell.v1.RunSignalService/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(svc, ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(svc, ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
