// Package grpcapi implements the Calculator gRPC service. Requests and
// responses are google.protobuf.Struct messages so no generated stubs are
// needed; the service descriptor is registered by hand.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bodmas.v1.Calculator"

// Full method names.
const (
	MethodEvaluate         = "/" + ServiceName + "/Evaluate"
	MethodMostUsedOperator = "/" + ServiceName + "/MostUsedOperator"
	MethodHelp             = "/" + ServiceName + "/Help"
)

// CalculatorServer is the server API for the Calculator service.
type CalculatorServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MostUsedOperator(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Help(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements CalculatorServer over a calculator.App.
type Server struct {
	calc *calculator.App
	grpc *grpc.Server
}

// New creates a new gRPC server wrapping calc.
func New(calc *calculator.App) *Server {
	srv := &Server{calc: calc}

	gs := grpc.NewServer()
	RegisterCalculatorServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Stop stops the gRPC server immediately.
func (s *Server) Stop() {
	s.grpc.Stop()
}

// --- Calculator Service ---

// Evaluate expects {"expression": string, "user_id": string|number} and
// returns {"value": number}.
func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	expression := stringField(req, "expression")
	userID := stringField(req, "user_id")

	value, err := s.calc.Execute(ctx, expression, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	var v *structpb.Value
	if math.IsInf(value, 0) || math.IsNaN(value) {
		v = structpb.NewStringValue(expr.FormatNumber(value))
	} else {
		v = structpb.NewNumberValue(value)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"value": v}}, nil
}

// MostUsedOperator expects {"user_id": ...} and returns {"most_used_operator": string}.
func (s *Server) MostUsedOperator(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	op, err := s.calc.MostUsedOperator(ctx, stringField(req, "user_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"most_used_operator": structpb.NewStringValue(string(op)),
	}}, nil
}

// Help returns {"help": string}.
func (s *Server) Help(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"help": structpb.NewStringValue(calculator.Help()),
	}}, nil
}

// --- Registration ---

// RegisterCalculatorServer registers srv on s.
func RegisterCalculatorServer(s grpc.ServiceRegistrar, srv CalculatorServer) {
	s.RegisterService(&calculatorServiceDesc, srv)
}

var calculatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalculatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: unaryHandler(MethodEvaluate, CalculatorServer.Evaluate)},
		{MethodName: "MostUsedOperator", Handler: unaryHandler(MethodMostUsedOperator, CalculatorServer.MostUsedOperator)},
		{MethodName: "Help", Handler: unaryHandler(MethodHelp, CalculatorServer.Help)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bodmas/v1/calculator.proto",
}

type unaryMethod func(CalculatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, method unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(CalculatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(CalculatorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// --- Client ---

// Client calls the Calculator service over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Evaluate calls Calculator/Evaluate.
func (c *Client) Evaluate(ctx context.Context, expression, userID string) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"expression": expression, "user_id": userID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodEvaluate, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MostUsedOperator calls Calculator/MostUsedOperator.
func (c *Client) MostUsedOperator(ctx context.Context, userID string) (string, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"user_id": userID})
	if err != nil {
		return "", err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodMostUsedOperator, in, out); err != nil {
		return "", err
	}
	return out.GetFields()["most_used_operator"].GetStringValue(), nil
}

// Help calls Calculator/Help.
func (c *Client) Help(ctx context.Context) (string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodHelp, &structpb.Struct{}, out); err != nil {
		return "", err
	}
	return out.GetFields()["help"].GetStringValue(), nil
}

// --- Helpers ---

// stringField reads a string or whole-number field.
func stringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		if k.NumberValue >= 0 && k.NumberValue == math.Trunc(k.NumberValue) && k.NumberValue < 1<<53 {
			return fmt.Sprintf("%d", uint64(k.NumberValue))
		}
		return fmt.Sprintf("%v", k.NumberValue)
	default:
		return ""
	}
}

func toStatus(err error) error {
	var ce *types.CalcError
	switch {
	case types.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &ce):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
