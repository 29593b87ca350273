package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type togglePinger struct {
	down atomic.Bool
}

func (p *togglePinger) Ping(context.Context) (*models.Diagnostics, error) {
	if p.down.Load() {
		return nil, errors.New("store unreachable")
	}
	return &models.Diagnostics{}, nil
}

func startBufconn(t *testing.T, s *GRPCServer) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})

	return healthpb.NewHealthClient(conn)
}

func TestHealth_ServingWhenStoreReachable(t *testing.T) {
	t.Parallel()

	s := NewGRPCServer("bufnet", nopLogger{}, &togglePinger{}, time.Hour)
	client := startBufconn(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, service := range []string{"", ServiceName} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("service %q: expected SERVING, got %v", service, resp.GetStatus())
		}
	}
}

func TestHealth_NotServingWhenStoreDown(t *testing.T) {
	t.Parallel()

	p := &togglePinger{}
	p.down.Store(true)
	s := NewGRPCServer("bufnet", nopLogger{}, p, time.Hour)
	client := startBufconn(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v", resp.GetStatus())
	}
}

func TestHealth_CheckFlipsStatus(t *testing.T) {
	t.Parallel()

	p := &togglePinger{}
	s := NewGRPCServer("bufnet", nopLogger{}, p, time.Hour)
	ctx := context.Background()

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	s.check(ctx)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status())

	p.down.Store(true)
	s.check(ctx)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status())

	p.down.Store(false)
	s.check(ctx)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, status())
}

func TestNewGRPCServer_DefaultsInterval(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:0", nopLogger{}, &togglePinger{}, 0)
	if s.interval != defaultProbeInterval {
		t.Fatalf("expected default interval %v, got %v", defaultProbeInterval, s.interval)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", nopLogger{}, &togglePinger{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", nopLogger{}, &togglePinger{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
