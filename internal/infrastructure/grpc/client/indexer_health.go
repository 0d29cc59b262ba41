// Package client talks to the indexer's gRPC endpoint
package client

import (
	"context"
	"fmt"
	"time"

	"dex_trader/internal/auth"
	"dex_trader/internal/core"
	apperrors "dex_trader/pkg/errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultCheckTimeout = 3 * time.Second

// IndexerHealthClient probes the indexer through the standard gRPC health service
type IndexerHealthClient struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	service string
	timeout time.Duration
	logger  core.ILogger
	target  string
}

// NewIndexerHealthClient connects lazily to target. Extra dial options are
// appended after the defaults, which lets tests inject a dialer.
func NewIndexerHealthClient(target, apiKey, service string, logger core.ILogger, opts ...grpc.DialOption) (*IndexerHealthClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(auth.UnaryClientInterceptor(apiKey)),
		grpc.WithStreamInterceptor(auth.StreamClientInterceptor(apiKey)),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", target, err)
	}

	return &IndexerHealthClient{
		conn:    conn,
		health:  healthpb.NewHealthClient(conn),
		service: service,
		timeout: defaultCheckTimeout,
		logger:  logger.WithField("component", "indexer_grpc").WithField("target", target),
		target:  target,
	}, nil
}

// Check returns nil when the indexer reports SERVING
func (c *IndexerHealthClient) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: c.service})
	if err != nil {
		return fmt.Errorf("%s: %v: %w", c.target, err, apperrors.ErrIndexerUnavailable)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s reports %s: %w", c.target, resp.GetStatus(), apperrors.ErrIndexerUnavailable)
	}
	return nil
}

// HealthCheck adapts Check to the health manager's signature
func (c *IndexerHealthClient) HealthCheck() error {
	return c.Check(context.Background())
}

// SetTimeout changes the per-check deadline
func (c *IndexerHealthClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *IndexerHealthClient) Close() error {
	return c.conn.Close()
}
