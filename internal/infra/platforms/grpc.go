package platforms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"staysync/internal/app/policies"
	"staysync/internal/domain/channels"
	"staysync/internal/domain/shared/daterange"
)

const (
	serviceName      = "staysync.channels.v1.ChannelGateway"
	blockDatesMethod = "/" + serviceName + "/BlockDates"
)

// Config defines gRPC client settings.
type Config struct {
	Addr        string
	CallTimeout time.Duration
}

// Client forwards BlockDates to a channel gateway over gRPC. Requests and
// responses travel as google.protobuf.Struct.
type Client struct {
	conn        *grpc.ClientConn
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewClient prepares a lazily connecting client.
func NewClient(cfg Config, logger *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("platforms: gateway address required")
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, err
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	if logger != nil {
		logger.Info("platform gateway configured", "addr", cfg.Addr)
	}
	return &Client{conn: conn, callTimeout: callTimeout, logger: logger}, nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) BlockDates(ctx context.Context, req policies.BlockDatesRequest) error {
	in, err := structpb.NewStruct(map[string]any{
		"platform":             string(req.Platform),
		"external_property_id": req.ExternalPropertyID,
		"booking_id":           req.BookingID,
		"start":                req.Range.Start.Format(daterange.Layout),
		"end":                  req.Range.End.Format(daterange.Layout),
	})
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	out := &structpb.Struct{}
	if err := c.conn.Invoke(callCtx, blockDatesMethod, in, out); err != nil {
		return fmt.Errorf("platforms: %s: %w", req.Platform, err)
	}
	if ok := out.GetFields()["accepted"].GetBoolValue(); !ok {
		return fmt.Errorf("platforms: %s rejected block: %s", req.Platform, out.GetFields()["reason"].GetStringValue())
	}
	return nil
}

// RegisterServer exposes gw as the ChannelGateway gRPC service.
func RegisterServer(s grpc.ServiceRegistrar, gw policies.PlatformGateway) {
	s.RegisterService(&serviceDesc, &server{gw: gw})
}

type server struct {
	gw policies.PlatformGateway
}

type gatewayServer interface {
	BlockDates(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*gatewayServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "BlockDates",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return srv.(gatewayServer).BlockDates(ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: blockDatesMethod}, handler)
		},
	}},
	Metadata: "staysync/channels/v1/gateway.proto",
}

func (s *server) BlockDates(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	platform, err := channels.ParseExternal(fields["platform"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r, err := daterange.Parse(fields["start"].GetStringValue(), fields["end"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	err = s.gw.BlockDates(ctx, policies.BlockDatesRequest{
		Platform:           platform,
		ExternalPropertyID: fields["external_property_id"].GetStringValue(),
		BookingID:          fields["booking_id"].GetStringValue(),
		Range:              r,
	})
	if err != nil {
		return structpb.NewStruct(map[string]any{"accepted": false, "reason": err.Error()})
	}
	return structpb.NewStruct(map[string]any{"accepted": true})
}

var _ policies.PlatformGateway = (*Client)(nil)
