package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Protezhe/OrionSupport/pkg/lib"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })
	return lis
}

// closedAddress returns an address nobody listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func TestCheck_TCP(t *testing.T) {
	lis := listen(t)
	go func() {
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	require.NoError(t, Check(context.Background(), lib.ReadyCheck{Kind: KindTCP, Address: lis.Addr().String()}))
	require.Error(t, Check(context.Background(), lib.ReadyCheck{Kind: KindTCP, Address: closedAddress(t)}))
}

func TestCheck_UnknownKind(t *testing.T) {
	require.Error(t, Check(context.Background(), lib.ReadyCheck{Kind: "http", Address: "127.0.0.1:1"}))
}

func TestWaitReady_BecomesReady(t *testing.T) {
	addr := closedAddress(t)

	opened := make(chan net.Listener, 1)
	go func() {
		time.Sleep(150 * time.Millisecond)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			close(opened)
			return
		}
		opened <- lis
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	err := WaitReady(context.Background(), lib.ReadyCheck{Kind: KindTCP, Address: addr, Timeout: 3 * time.Second}, 20*time.Millisecond)
	require.NoError(t, err)

	if lis, ok := <-opened; ok {
		_ = lis.Close()
	}
}

func TestWaitReady_Timeout(t *testing.T) {
	start := time.Now()
	err := WaitReady(context.Background(), lib.ReadyCheck{Kind: KindTCP, Address: closedAddress(t), Timeout: 200 * time.Millisecond}, 20*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestCheck_GRPCHealth(t *testing.T) {
	lis := listen(t)
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	rc := lib.ReadyCheck{Kind: KindGRPC, Address: lis.Addr().String(), Service: "orion.Checklist"}

	hs.SetServingStatus("orion.Checklist", healthpb.HealthCheckResponse_NOT_SERVING)
	require.ErrorIs(t, Check(context.Background(), rc), ErrNotServing)

	hs.SetServingStatus("orion.Checklist", healthpb.HealthCheckResponse_SERVING)
	require.NoError(t, Check(context.Background(), rc))

	// The overall server status is registered under the empty service name.
	require.NoError(t, Check(context.Background(), lib.ReadyCheck{Kind: KindGRPC, Address: lis.Addr().String()}))
}
