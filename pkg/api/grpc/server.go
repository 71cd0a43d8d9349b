// Package grpcapi serves tokenization and validation over gRPC, using
// google.protobuf.Struct messages so no generated code is needed.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/exprtk/pkg/config"
	"github.com/lemonberrylabs/exprtk/pkg/dataset"
	"github.com/lemonberrylabs/exprtk/pkg/stdlib"
	"github.com/lemonberrylabs/exprtk/pkg/store"
	"github.com/lemonberrylabs/exprtk/pkg/token"
	"github.com/lemonberrylabs/exprtk/pkg/tokenize"
)

// Server implements the Expressions gRPC service.
type Server struct {
	store  *store.Store
	funcs  *stdlib.Registry
	cfg    *config.Config
	grpc   *grpc.Server
	health *health.Server
}

// New creates a new gRPC server wrapping the given store. A nil cfg uses
// config.Default().
func New(s *store.Store, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	srv := &Server{
		store:  s,
		funcs:  stdlib.NewRegistry(),
		cfg:    cfg,
		health: health.NewServer(),
	}

	gs := grpc.NewServer()
	gs.RegisterService(&ServiceDesc, srv)
	healthpb.RegisterHealthServer(gs, srv.health)
	srv.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks the service as not serving and stops the server once
// in-flight calls finish.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// --- Expressions Service ---

func (s *Server) Tokenize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	source := fields["source"].GetStringValue()

	src := token.NewSource(source)
	if limit := s.cfg.MaxExpressionLength; limit > 0 && src.Len() > limit {
		return nil, status.Errorf(codes.InvalidArgument, "source exceeds maximum length of %d characters", limit)
	}

	opts := tokenize.TriviaOptions(
		boolField(fields, "emitWhitespace", s.cfg.Tokenizer.EmitWhitespace),
		boolField(fields, "emitComments", s.cfg.Tokenizer.EmitComments))

	tokens := make([]interface{}, 0)
	for tok, err := range tokenize.NewFromSource(src, opts...).All() {
		if err != nil {
			return nil, lexStatus(err)
		}
		loc := src.Locate(tok)
		tokens = append(tokens, map[string]interface{}{
			"kind":   loc.Kind,
			"text":   loc.Text,
			"start":  loc.Start,
			"end":    loc.End,
			"line":   loc.Line,
			"column": loc.Column,
		})
	}

	out, err := structpb.NewStruct(map[string]interface{}{"tokens": tokens})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding tokens: %v", err)
	}
	return out, nil
}

func (s *Server) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	if fields["expressions"] == nil {
		return nil, status.Error(codes.InvalidArgument, "expressions is required")
	}
	raw, err := protojson.Marshal(fields["expressions"])
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "expressions: %v", err)
	}
	defs, err := dataset.ParseDefinitions(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	names := make(map[string]string)
	for col, v := range fields["schema"].GetStructValue().GetFields() {
		names[col] = v.GetStringValue()
	}
	schema, err := dataset.ParseSchema(names)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	results := dataset.Validate(defs, schema, s.funcs, s.cfg.MaxExpressionLength)
	return toStruct(map[string]interface{}{
		"valid":       dataset.AllValid(results),
		"expressions": results,
	})
}

func (s *Server) GetExpression(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	e, err := s.store.Get(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(e)
}

func (s *Server) ListExpressions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"expressions": s.store.List(),
	})
}

// --- Helpers ---

// boolField returns a bool field, or def when it is absent or not a bool.
func boolField(fields map[string]*structpb.Value, key string, def bool) bool {
	b, ok := fields[key].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return def
	}
	return b.BoolValue
}

// lexStatus maps a tokenizer failure to InvalidArgument; the message
// carries the line and column.
func lexStatus(err error) error {
	var lexErr *tokenize.LexError
	if errors.As(err, &lexErr) {
		return status.Error(codes.InvalidArgument, lexErr.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}
