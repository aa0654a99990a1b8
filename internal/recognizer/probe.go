// Package recognizer checks that the upstream speech recognizer is reachable.
//
// voxkeys does not transcribe audio. The recognizer delivers phrases over IPC; this package only
// probes its standard gRPC health endpoint so doctor and serve can report it.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ErrNotServing reports a reachable recognizer that is not ready to serve.
var ErrNotServing = errors.New("recognizer not serving")

// Status is the outcome of one health probe.
type Status struct {
	Endpoint string
	Service  string
	State    string
	Latency  time.Duration
}

// Probe dials endpoint and runs grpc.health.v1.Health/Check for service.
func Probe(ctx context.Context, endpoint string, service string, timeout time.Duration) (Status, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Status{}, errors.New("recognizer endpoint is empty")
	}
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}

	status := Status{Endpoint: endpoint, Service: service}
	started := time.Now()

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return status, fmt.Errorf("dial recognizer grpc %q: %w", endpoint, err)
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	if err := waitForReady(probeCtx, conn); err != nil {
		return status, fmt.Errorf("wait for recognizer grpc readiness: %w", err)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(probeCtx, &healthpb.HealthCheckRequest{Service: service})
	status.Latency = time.Since(started)
	if err != nil {
		return status, fmt.Errorf("recognizer health check: %w", err)
	}
	status.State = resp.GetStatus().String()
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return status, fmt.Errorf("%w: %s", ErrNotServing, status.State)
	}
	return status, nil
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
