// Package probe checks whether a launched process is ready to serve.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Protezhe/OrionSupport/pkg/lib"
	"github.com/Protezhe/OrionSupport/pkg/lib/logging"
)

const (
	KindTCP  = "tcp"
	KindGRPC = "grpc"

	attemptTimeout = 300 * time.Millisecond
)

var logger = logging.New("probe")

// ErrNotServing is returned by a gRPC probe when the health service answers with anything but SERVING.
var ErrNotServing = errors.New("not serving")

// Check runs a single readiness attempt.
func Check(ctx context.Context, rc lib.ReadyCheck) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	switch rc.Kind {
	case KindTCP, "":
		return checkTCP(ctx, rc.Address)
	case KindGRPC:
		return checkGRPC(ctx, rc.Address, rc.Service)
	default:
		return fmt.Errorf("unknown probe kind %q", rc.Kind)
	}
}

// WaitReady polls Check every interval until it succeeds, rc.Timeout elapses or ctx is done.
func WaitReady(ctx context.Context, rc lib.ReadyCheck, interval time.Duration) error {
	if rc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = Check(ctx, rc); lastErr == nil {
			return nil
		}
		logger.Debug("not ready yet", "address", rc.Address, "err", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s %s not ready: %w (last error: %v)", rc.Kind, rc.Address, ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

func checkTCP(ctx context.Context, address string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

func checkGRPC(ctx context.Context, address, service string) error {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, resp.GetStatus())
	}
	return nil
}
