package platforms

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"staysync/internal/app/policies"
	"staysync/internal/domain/channels"
	"staysync/internal/domain/shared/daterange"
)

var request = policies.BlockDatesRequest{
	Platform:           channels.Airbnb,
	ExternalPropertyID: "air-1",
	BookingID:          "bk-1",
	Range:              daterange.MustParse("2024-06-10", "2024-06-15"),
}

type recordingGateway struct {
	mu   sync.Mutex
	reqs []policies.BlockDatesRequest
	err  error
}

func (g *recordingGateway) BlockDates(_ context.Context, req policies.BlockDatesRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	return g.err
}

func TestSimulatedFailureRateBounds(t *testing.T) {
	always := NewSimulated(1, 0, 1)
	assert.ErrorIs(t, always.BlockDates(context.Background(), request), ErrSimulatedFailure)

	never := NewSimulated(0, 0, 1)
	for i := 0; i < 20; i++ {
		require.NoError(t, never.BlockDates(context.Background(), request))
	}
}

func TestSimulatedLatencyHonorsContext(t *testing.T) {
	slow := NewSimulated(0, time.Second, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.BlockDates(ctx, request), context.DeadlineExceeded)
}

func TestRateLimitedWaitsForToken(t *testing.T) {
	next := &recordingGateway{}
	g := NewRateLimited(next, 1, 1)
	require.NoError(t, g.BlockDates(context.Background(), request))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, g.BlockDates(ctx, request))

	other := request
	other.Platform = channels.Agoda
	require.NoError(t, g.BlockDates(context.Background(), other), "platforms have separate buckets")
	assert.Len(t, next.reqs, 2)
}

func dialBuf(t *testing.T, gw policies.PlatformGateway) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterServer(srv, gw)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := NewClient(Config{Addr: "passthrough:///bufnet", CallTimeout: time.Second}, nil,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCClientRoundTrip(t *testing.T) {
	remote := &recordingGateway{}
	client := dialBuf(t, remote)

	require.NoError(t, client.BlockDates(context.Background(), request))
	require.Len(t, remote.reqs, 1)
	assert.Equal(t, request.Platform, remote.reqs[0].Platform)
	assert.Equal(t, "air-1", remote.reqs[0].ExternalPropertyID)
	assert.True(t, request.Range.Equal(remote.reqs[0].Range))
}

func TestGRPCClientSurfacesRejection(t *testing.T) {
	client := dialBuf(t, &recordingGateway{err: errors.New("listing closed")})
	err := client.BlockDates(context.Background(), request)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing closed")

	bad := request
	bad.Platform = channels.Direct
	assert.Error(t, client.BlockDates(context.Background(), bad))
}
