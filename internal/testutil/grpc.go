package testutil

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

// NewGRPCClient serves a gRPC server over an in-memory listener and returns a
// client connection to it. register is called before serving.
//
// Postcondition: The server and connection are closed when the test ends.
func NewGRPCClient(t *testing.T, register func(*grpc.Server)) *grpc.ClientConn {
	t.Helper()
	return NewGRPCClientWithOptions(t, nil, register)
}

// NewGRPCClientWithOptions is NewGRPCClient with server options.
func NewGRPCClientWithOptions(t *testing.T, opts []grpc.ServerOption, register func(*grpc.Server)) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer(opts...)
	register(srv)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dialing bufconn: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})
	return conn
}
