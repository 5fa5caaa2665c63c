package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/gateway"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/dmitrijs2005/linkstash/internal/rpc"
	"github.com/dmitrijs2005/linkstash/internal/server/config"
	servergrpc "github.com/dmitrijs2005/linkstash/internal/server/grpc"
	"github.com/dmitrijs2005/linkstash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/linkstash/internal/server/rules"
	"github.com/dmitrijs2005/linkstash/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

/*************
 * Fake connection
 *************/

type fakeConn struct {
	refreshCalls atomic.Int32
	lastRefresh  string
	refreshResp  map[string]any
	refreshErr   error
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	if method != rpc.FullMethod(rpc.MethodRefreshToken) {
		return status.Error(codes.Unimplemented, method)
	}
	f.refreshCalls.Add(1)
	f.lastRefresh = rpc.String(args.(*structpb.Struct), rpc.FieldRefreshToken)
	if f.refreshErr != nil {
		return f.refreshErr
	}
	resp, err := rpc.NewStruct(f.refreshResp)
	if err != nil {
		return err
	}
	reply.(*structpb.Struct).Fields = resp.Fields
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not supported")
}

func tokenFrom(ctx context.Context) string {
	md, _ := metadata.FromOutgoingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

func expiredUnless(valid string) grpc.UnaryInvoker {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		if tokenFrom(ctx) != valid {
			return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil
	}
}

func TestInterceptor_RefreshesTokenOnExpiredAndRetries(t *testing.T) {
	fc := &fakeConn{refreshResp: map[string]any{rpc.FieldAccessToken: "A2", rpc.FieldRefreshToken: "R2"}}
	c := &GRPCClient{conn: fc, accessToken: "A1", refreshToken: "R1"}

	var seen []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		seen = append(seen, tokenFrom(ctx))
		return expiredUnless("A2")(ctx, method, req, reply, cc, opts...)
	}

	err := c.accessTokenInterceptor(context.Background(), rpc.FullMethod(rpc.MethodRead), nil, nil, nil, invoker)
	require.NoError(t, err)
	require.Equal(t, []string{"A1", "A2"}, seen)
	require.Equal(t, "R1", fc.lastRefresh)

	access, refresh := c.tokens()
	require.Equal(t, "A2", access)
	require.Equal(t, "R2", refresh)
}

func TestInterceptor_PublicMethodSkipsToken(t *testing.T) {
	c := &GRPCClient{conn: &fakeConn{}, accessToken: "A1"}
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		require.Empty(t, tokenFrom(ctx))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), rpc.FullMethod(rpc.MethodSignIn), nil, nil, nil, invoker))
}

func TestInterceptor_OtherErrorsPassThrough(t *testing.T) {
	fc := &fakeConn{}
	c := &GRPCClient{conn: fc, accessToken: "A1", refreshToken: "R1"}
	want := status.Error(codes.PermissionDenied, "nope")
	invoker := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error { return want }

	err := c.accessTokenInterceptor(context.Background(), rpc.FullMethod(rpc.MethodRead), nil, nil, nil, invoker)
	require.Equal(t, want, err)
	require.Zero(t, fc.refreshCalls.Load())
}

func TestInterceptor_ConcurrentCallsRefreshOnce(t *testing.T) {
	fc := &fakeConn{refreshResp: map[string]any{rpc.FieldAccessToken: "A2", rpc.FieldRefreshToken: "R2"}}
	c := &GRPCClient{conn: fc, accessToken: "A1", refreshToken: "R1"}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.accessTokenInterceptor(context.Background(), rpc.FullMethod(rpc.MethodRead), nil, nil, nil, expiredUnless("A2"))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, fc.refreshCalls.Load())
}

func TestInterceptor_RejectedRefreshDropsSession(t *testing.T) {
	fc := &fakeConn{refreshErr: status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())}
	c := &GRPCClient{conn: fc, accessToken: "A1", refreshToken: "R1", identity: &gateway.Identity{UID: "u1"}}

	var got []*gateway.Identity
	c.OnIdentityChange(func(id *gateway.Identity) { got = append(got, id) })

	err := c.accessTokenInterceptor(context.Background(), rpc.FullMethod(rpc.MethodRead), nil, nil, nil, expiredUnless("A2"))
	require.Error(t, err)
	require.ErrorIs(t, mapError(err), ErrUnauthorized)
	require.Nil(t, c.CurrentIdentity())
	require.Equal(t, []*gateway.Identity{nil}, got)

	access, refresh := c.tokens()
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestMapError(t *testing.T) {
	plain := errors.New("plain")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"plain", plain, plain},
		{"auth code", status.Error(codes.Unauthenticated, string(common.CodeWrongPassword)), common.NewAuthError(common.CodeWrongPassword)},
		{"unauthenticated", status.Error(codes.Unauthenticated, "missing token"), ErrUnauthorized},
		{"forbidden", status.Error(codes.PermissionDenied, "not yours"), common.ErrorForbidden},
		{"not found", status.Error(codes.NotFound, "not found"), docstore.ErrNotFound},
		{"invalid", status.Error(codes.InvalidArgument, "bad"), docstore.ErrInvalidArgument},
		{"unavailable", status.Error(codes.Unavailable, "down"), ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

/*************
 * Against the real server
 *************/

type capturingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *capturingMailer) SendResetCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *capturingMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func newServerClient(t *testing.T, mutate func(*config.Config)) (*GRPCClient, *capturingMailer) {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                    "secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		RecentLoginWindow:            5 * time.Minute,
		ResetCodeValidity:            time.Hour,
	}
	if mutate != nil {
		mutate(cfg)
	}
	logger := logging.Discard()
	mailer := &capturingMailer{}
	ids := services.NewIdentityService(repomanager.NewMemoryRepositoryManager(), cfg, mailer, logger)
	docs := rules.New(docstore.NewMemoryStore(), ids, cfg.OwnerEmail, logger)

	s, err := servergrpc.NewGRPCServer("bufnet", logger, ids, docs, cfg.SecretKey)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = s.Serve(ctx, lis) }()

	c, err := NewGRPCClient("passthrough:///bufnet", 5*time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mailer
}

func TestGRPCClient_IdentityFlow(t *testing.T) {
	c, mailer := newServerClient(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	var events []*gateway.Identity
	unsubscribe := c.OnIdentityChange(func(id *gateway.Identity) { events = append(events, id) })
	defer unsubscribe()

	id, err := c.CreateIdentity(ctx, "Ann@Example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, id.UID)
	require.Equal(t, "ann@example.com", id.Email)
	require.False(t, id.CreatedAt.IsZero())
	require.Equal(t, id, c.CurrentIdentity())

	_, err = c.CreateIdentity(ctx, "ann@example.com", "secret1")
	require.ErrorIs(t, err, common.NewAuthError(common.CodeEmailAlreadyInUse))

	require.NoError(t, c.SignOut(ctx))
	require.Nil(t, c.CurrentIdentity())

	_, err = c.Authenticate(ctx, "ann@example.com", "wrong-pw")
	require.ErrorIs(t, err, common.NewAuthError(common.CodeWrongPassword))

	_, err = c.Authenticate(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, c.Reauthenticate(ctx, "secret1"))
	require.NoError(t, c.UpdatePassword(ctx, "secret2"))

	require.NoError(t, c.SendPasswordResetEmail(ctx, "ann@example.com"))
	code := mailer.code("ann@example.com")
	require.NotEmpty(t, code)
	email, err := c.VerifyResetCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", email)
	require.NoError(t, c.ConfirmPasswordReset(ctx, code, "secret3"))

	_, err = c.Authenticate(ctx, "ann@example.com", "secret3")
	require.NoError(t, err)
	require.NoError(t, c.DeleteIdentity(ctx))
	require.Nil(t, c.CurrentIdentity())

	_, err = c.Authenticate(ctx, "ann@example.com", "secret3")
	require.ErrorIs(t, err, common.NewAuthError(common.CodeUserNotFound))

	// create, sign out, sign in, sign in, delete
	require.Len(t, events, 5)
	require.NotNil(t, events[0])
	require.Nil(t, events[1])
	require.Nil(t, events[len(events)-1])
}

func TestGRPCClient_Documents(t *testing.T) {
	c, _ := newServerClient(t, nil)
	ctx := context.Background()

	_, err := c.Create(ctx, common.CollectionLinks, docstore.Document{common.FieldOwnerID: "x"})
	require.ErrorIs(t, err, ErrUnauthorized)

	id, err := c.CreateIdentity(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)

	linkID, err := c.Create(ctx, common.CollectionLinks, docstore.Document{common.FieldOwnerID: id.UID, "name": "Go", "url": "https://go.dev"})
	require.NoError(t, err)

	doc, err := c.Read(ctx, common.CollectionLinks, linkID)
	require.NoError(t, err)
	require.Equal(t, "Go", doc["name"])

	require.NoError(t, c.Update(ctx, common.CollectionLinks, linkID, docstore.Document{"name": "Golang"}))
	err = c.Update(ctx, common.CollectionLinks, linkID, docstore.Document{common.FieldOwnerID: "someone-else"})
	require.ErrorIs(t, err, common.ErrorForbidden)

	recs, err := c.Scan(ctx, common.CollectionLinks, docstore.Eq(common.FieldOwnerID, id.UID))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, linkID, recs[0].ID)
	require.Equal(t, "Golang", recs[0].Data["name"])

	_, err = c.Scan(ctx, common.CollectionLinks, nil)
	require.ErrorIs(t, err, common.ErrorForbidden)

	require.NoError(t, c.Set(ctx, common.CollectionUsers, id.UID, docstore.Document{common.FieldName: "Bob"}))
	profile, err := c.Read(ctx, common.CollectionUsers, id.UID)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", profile[common.FieldEmail])

	require.NoError(t, c.Delete(ctx, common.CollectionLinks, linkID))
	_, err = c.Read(ctx, common.CollectionLinks, linkID)
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestGRPCClient_ExpiredSessionIsDropped(t *testing.T) {
	c, _ := newServerClient(t, func(cfg *config.Config) {
		cfg.AccessTokenValidityDuration = -time.Minute
		cfg.RefreshTokenValidityDuration = -time.Minute
	})
	ctx := context.Background()

	var last *gateway.Identity
	notified := 0
	c.OnIdentityChange(func(id *gateway.Identity) { last, notified = id, notified+1 })

	_, err := c.CreateIdentity(ctx, "cat@example.com", "secret1")
	require.NoError(t, err)

	_, err = c.Read(ctx, common.CollectionUsers, "anything")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Nil(t, c.CurrentIdentity())
	require.Nil(t, last)
	require.Equal(t, 2, notified)
}
