package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client wraps the gRPC connection to a running daemon.
type Client struct {
	conn   *grpc.ClientConn
	Health healthpb.HealthClient
}

// New dials the daemon's Unix domain socket. The connection is lazy: errors
// surface on the first call.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{
		conn:   conn,
		Health: healthpb.NewHealthClient(conn),
	}, nil
}

// Status returns the serving status of service, e.g. "SERVING".
func (c *Client) Status(ctx context.Context, service string) (string, error) {
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
