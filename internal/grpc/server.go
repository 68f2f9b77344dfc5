package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/xpulse-cards/internal/auth"
	"github.com/Billy-Davies-2/xpulse-cards/internal/command"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/progression"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// Server implements the gRPC CardService
type Server struct {
	dispatcher *command.Dispatcher
	engine     *progression.Engine
	pubsub     *pubsub.PubSub
}

// NewServer creates a new gRPC server
func NewServer(dispatcher *command.Dispatcher, engine *progression.Engine, ps *pubsub.PubSub) *Server {
	return &Server{
		dispatcher: dispatcher,
		engine:     engine,
		pubsub:     ps,
	}
}

// Execute runs the command line in req["line"] as the authenticated caller
func (s *Server) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	user := auth.UserFromContext(ctx)
	if user == nil {
		return nil, status.Error(codes.Unauthenticated, auth.ErrUnauthenticated.Error())
	}
	userID := user.ID

	line := req.GetFields()["line"].GetStringValue()
	logger.Debug("gRPC: Executing command", "user_id", userID, "line", line)

	resp, err := s.dispatcher.Dispatch(ctx, userID, line)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := toStruct(resp)
	if err != nil {
		logger.Error("gRPC: Failed to encode response", "error", err, "command", resp.Command)
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// GetProfile returns the profile of req["userId"], or of the caller when absent
func (s *Server) GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID := strings.TrimSpace(req.GetFields()["userId"].GetStringValue())
	if userID == "" {
		user := auth.UserFromContext(ctx)
		if user == nil {
			return nil, status.Error(codes.InvalidArgument, "userId is required")
		}
		userID = user.ID
	}

	view, err := s.engine.Profile(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(view)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode profile")
	}
	return out, nil
}

// StreamEvents streams progression events to clients
func (s *Server) StreamEvents(_ *emptypb.Empty, stream CardService_StreamEventsServer) error {
	logger.Debug("gRPC: New client connected to event stream")
	eventChan := s.pubsub.Subscribe()
	defer s.pubsub.Unsubscribe(eventChan)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			msg, err := toStruct(event)
			if err != nil {
				logger.Warn("gRPC: Dropping unencodable event", "error", err, "type", event.Type)
				continue
			}
			if err := stream.Send(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

// toStruct converts any JSON-encodable value to a Struct via its JSON form
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// toStatus maps engine and dispatch errors to gRPC status codes
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, command.ErrNotCommand),
		errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, progression.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, command.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, progression.ErrCardNotFound),
		errors.Is(err, progression.ErrItemNotFound):
		code = codes.NotFound
	case errors.Is(err, progression.ErrAlreadyHasCard):
		code = codes.AlreadyExists
	case errors.Is(err, progression.ErrCardNotOwned),
		errors.Is(err, progression.ErrNoCardSelected),
		errors.Is(err, progression.ErrNoWorkAssigned),
		errors.Is(err, progression.ErrUnknownRank):
		code = codes.FailedPrecondition
	case errors.Is(err, progression.ErrStorageUnavailable),
		errors.Is(err, command.ErrLeaderboardUnavailable):
		code = codes.Unavailable
	default:
		logger.Error("gRPC: Unexpected error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
