package client

import (
	"context"
	"net"
	"testing"

	"dex_trader/internal/auth"
	apperrors "dex_trader/pkg/errors"
	"dex_trader/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const service = "indexer.v1.Derivatives"

func startIndexer(t *testing.T, keys []string) (*health.Server, *bufconn.Listener) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	validator := auth.NewAPIKeyValidator(keys, 100, logging.NewNop())
	srv := grpc.NewServer(grpc.UnaryInterceptor(validator.UnaryServerInterceptor()))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return hs, lis
}

func newClient(t *testing.T, lis *bufconn.Listener, apiKey string) *IndexerHealthClient {
	t.Helper()
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	c, err := NewIndexerHealthClient("passthrough:///bufnet", apiKey, service, logging.NewNop(), grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIndexerHealthClient_Check(t *testing.T) {
	hs, lis := startIndexer(t, []string{"key"})
	c := newClient(t, lis, "key")
	ctx := context.Background()

	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	require.NoError(t, c.Check(ctx))
	require.NoError(t, c.HealthCheck())

	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.ErrorIs(t, c.Check(ctx), apperrors.ErrIndexerUnavailable)
}

func TestIndexerHealthClient_RejectedKey(t *testing.T) {
	hs, lis := startIndexer(t, []string{"key"})
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)

	c := newClient(t, lis, "wrong")
	err := c.Check(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrIndexerUnavailable)
	assert.Contains(t, err.Error(), "invalid API key")
}

func TestIndexerHealthClient_UnknownService(t *testing.T) {
	_, lis := startIndexer(t, []string{"key"})
	c := newClient(t, lis, "key")

	assert.ErrorIs(t, c.Check(context.Background()), apperrors.ErrIndexerUnavailable)
}
