package ocr

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RecognizeMethod is the unary method served by the OCR backend.
// It takes a BytesValue with the encoded image and returns a StringValue.
const RecognizeMethod = "/replybot.ocr.v1.OCR/Recognize"

// Dial creates a new gRPC client connection from config.
// Caller is responsible for closing the connection.
func Dial(cfg Config) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to dial %s: %w", cfg.Address, err)
	}
	return conn, nil
}

// GRPCClient is a gRPC OCR client.
type GRPCClient struct {
	config Config
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewGRPCClient dials cfg.Address.
func NewGRPCClient(cfg Config) (*GRPCClient, error) {
	conn, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	return NewGRPCClientWithConn(cfg, conn), nil
}

// NewGRPCClientWithConn uses an existing connection; Close closes it.
func NewGRPCClientWithConn(cfg Config, conn *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{
		config: cfg,
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}
}

// Close closes the gRPC connection.
func (c *GRPCClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Recognize sends the image bytes and returns the recognized text.
func (c *GRPCClient) Recognize(ctx context.Context, image []byte) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, RecognizeMethod, wrapperspb.Bytes(image), out); err != nil {
		return "", fmt.Errorf("ocr Recognize failed: %w", err)
	}
	return out.GetValue(), nil
}

// Ping checks if the OCR service reports SERVING.
func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("ocr health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("ocr service unhealthy: %s", resp.GetStatus())
	}
	return nil
}
