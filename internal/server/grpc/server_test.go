package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/dmitrijs2005/linkstash/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newBareServer(t *testing.T, addr string) *GRPCServer {
	t.Helper()
	s, err := NewGRPCServer(addr, logging.Discard(), nil, docstore.NewMemoryStore(), "secret")
	require.NoError(t, err)
	return s
}

func TestServe_AnswersUntilCancelled(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- newBareServer(t, "bufnet").Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, rpc.FullMethod(rpc.MethodPing), rpc.Empty(), out))
	assert.Equal(t, "OK", rpc.String(out, "status"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "graceful stop is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("server still running after cancel")
	}
}

func TestRun_ListensOnAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newBareServer(t, "127.0.0.1:0").Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	cancel()
	require.NoError(t, <-done)
}

func TestRun_BadAddress(t *testing.T) {
	err := newBareServer(t, "127.0.0.1:99999").Run(context.Background())
	require.Error(t, err)
}
