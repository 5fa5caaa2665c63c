package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/client/gateway"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        grpc.ClientConnInterface
	closer      func() error

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	identity     *gateway.Identity

	// serializes refreshes so concurrent calls rotate the token once
	refreshMu sync.Mutex

	notifier gateway.Notifier
}

var (
	_ gateway.Gateway = (*GRPCClient)(nil)
	_ docstore.Store  = (*GRPCClient)(nil)
)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if rpc.IsPublic(method) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, _ := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	fresh, refreshErr := s.refresh(ctx, access)
	if refreshErr != nil {
		return refreshErr
	}

	// TOKENS REFRESHED, creating context with new Access Token
	return invoker(withAccessToken(ctx, fresh), method, req, reply, cc, opts...)
}

// refresh rotates the token pair unless another call already replaced
// stale. It returns the access token to retry with.
func (s *GRPCClient) refresh(ctx context.Context, stale string) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	access, refresh := s.tokens()
	if access != stale {
		return access, nil
	}
	if refresh == "" {
		return "", status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	resp, err := s.invoke(ctx, rpc.MethodRefreshToken, map[string]any{rpc.FieldRefreshToken: refresh})
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			s.dropSession()
		}
		return "", err
	}

	access = rpc.String(resp, rpc.FieldAccessToken)
	s.setTokens(access, rpc.String(resp, rpc.FieldRefreshToken))
	return access, nil
}

// dropSession forgets the tokens and tells subscribers the identity is gone.
func (s *GRPCClient) dropSession() {
	s.mu.Lock()
	had := s.identity != nil
	s.accessToken, s.refreshToken, s.identity = "", "", nil
	s.mu.Unlock()

	if had {
		s.notifier.Notify(nil)
	}
}

// NewGRPCClient connects to endpointURL. timeout bounds every call when
// positive. Extra dial options are appended to the defaults.
func NewGRPCClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.closer = conn.Close
	return c, nil
}

func (s *GRPCClient) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := rpc.NewStruct(req)
	if err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, rpc.FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// call is invoke with errors mapped for callers.
func (s *GRPCClient) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	resp, err := s.invoke(ctx, method, req)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.call(ctx, rpc.MethodPing, nil)
	if err != nil {
		return err
	}
	if rpc.String(resp, "status") != "OK" {
		return ErrUnavailable
	}
	return nil
}

// CurrentIdentity returns the signed-in identity or nil.
func (s *GRPCClient) CurrentIdentity() *gateway.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

func (s *GRPCClient) startSession(resp *structpb.Struct) *gateway.Identity {
	identity := &gateway.Identity{
		UID:   rpc.String(resp, rpc.FieldUID),
		Email: rpc.String(resp, rpc.FieldEmail),
	}
	if t, err := time.Parse(time.RFC3339, rpc.String(resp, rpc.FieldCreatedAt)); err == nil {
		identity.CreatedAt = t
	}

	s.mu.Lock()
	s.accessToken = rpc.String(resp, rpc.FieldAccessToken)
	s.refreshToken = rpc.String(resp, rpc.FieldRefreshToken)
	s.identity = identity
	s.mu.Unlock()

	out := *identity
	s.notifier.Notify(&out)
	return identity
}

func (s *GRPCClient) Authenticate(ctx context.Context, email, password string) (*gateway.Identity, error) {
	resp, err := s.call(ctx, rpc.MethodSignIn, map[string]any{rpc.FieldEmail: email, rpc.FieldPassword: password})
	if err != nil {
		return nil, err
	}
	return s.startSession(resp), nil
}

func (s *GRPCClient) CreateIdentity(ctx context.Context, email, password string) (*gateway.Identity, error) {
	resp, err := s.call(ctx, rpc.MethodCreateIdentity, map[string]any{rpc.FieldEmail: email, rpc.FieldPassword: password})
	if err != nil {
		return nil, err
	}
	return s.startSession(resp), nil
}

// SignOut revokes the refresh token on the server and ends the local
// session. The local session ends even when the server call fails.
func (s *GRPCClient) SignOut(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		s.dropSession()
		return nil
	}
	_, err := s.call(ctx, rpc.MethodSignOut, map[string]any{rpc.FieldRefreshToken: refresh})
	s.dropSession()
	return err
}

func (s *GRPCClient) SendPasswordResetEmail(ctx context.Context, email string) error {
	_, err := s.call(ctx, rpc.MethodSendPasswordResetEmail, map[string]any{rpc.FieldEmail: email})
	return err
}

func (s *GRPCClient) VerifyResetCode(ctx context.Context, code string) (string, error) {
	resp, err := s.call(ctx, rpc.MethodVerifyResetCode, map[string]any{rpc.FieldCode: code})
	if err != nil {
		return "", err
	}
	return rpc.String(resp, rpc.FieldEmail), nil
}

func (s *GRPCClient) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	_, err := s.call(ctx, rpc.MethodConfirmPasswordReset, map[string]any{rpc.FieldCode: code, rpc.FieldNewPassword: newPassword})
	return err
}

func (s *GRPCClient) Reauthenticate(ctx context.Context, currentPassword string) error {
	resp, err := s.call(ctx, rpc.MethodReauthenticate, map[string]any{rpc.FieldPassword: currentPassword})
	if err != nil {
		return err
	}
	s.setTokens(rpc.String(resp, rpc.FieldAccessToken), rpc.String(resp, rpc.FieldRefreshToken))
	return nil
}

func (s *GRPCClient) UpdatePassword(ctx context.Context, newPassword string) error {
	_, err := s.call(ctx, rpc.MethodUpdatePassword, map[string]any{rpc.FieldNewPassword: newPassword})
	return err
}

func (s *GRPCClient) DeleteIdentity(ctx context.Context) error {
	if _, err := s.call(ctx, rpc.MethodDeleteIdentity, nil); err != nil {
		return err
	}
	s.dropSession()
	return nil
}

func (s *GRPCClient) OnIdentityChange(fn func(*gateway.Identity)) func() {
	return s.notifier.Subscribe(fn)
}

func (s *GRPCClient) Create(ctx context.Context, collection string, fields docstore.Document) (string, error) {
	resp, err := s.call(ctx, rpc.MethodCreate, map[string]any{rpc.FieldCollection: collection, rpc.FieldFields: map[string]any(fields)})
	if err != nil {
		return "", err
	}
	return rpc.String(resp, rpc.FieldID), nil
}

func (s *GRPCClient) Set(ctx context.Context, collection, id string, fields docstore.Document) error {
	_, err := s.call(ctx, rpc.MethodSet, map[string]any{rpc.FieldCollection: collection, rpc.FieldID: id, rpc.FieldFields: map[string]any(fields)})
	return err
}

func (s *GRPCClient) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	resp, err := s.call(ctx, rpc.MethodRead, map[string]any{rpc.FieldCollection: collection, rpc.FieldID: id})
	if err != nil {
		return nil, err
	}
	data, ok := rpc.Map(resp, rpc.FieldData)
	if !ok {
		return nil, rpc.ErrBadMessage
	}
	return data, nil
}

func (s *GRPCClient) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	_, err := s.call(ctx, rpc.MethodUpdate, map[string]any{rpc.FieldCollection: collection, rpc.FieldID: id, rpc.FieldFields: map[string]any(partial)})
	return err
}

func (s *GRPCClient) Delete(ctx context.Context, collection, id string) error {
	_, err := s.call(ctx, rpc.MethodDelete, map[string]any{rpc.FieldCollection: collection, rpc.FieldID: id})
	return err
}

func (s *GRPCClient) Scan(ctx context.Context, collection string, f *docstore.Filter) ([]docstore.Record, error) {
	req := map[string]any{rpc.FieldCollection: collection}
	if f != nil {
		req[rpc.FieldFilterField] = f.Field
		req[rpc.FieldFilterValue] = f.Value
	}
	resp, err := s.call(ctx, rpc.MethodScan, req)
	if err != nil {
		return nil, err
	}

	items, _ := rpc.List(resp, rpc.FieldRecords)
	out := make([]docstore.Record, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, rpc.ErrBadMessage
		}
		id, _ := m[rpc.FieldID].(string)
		data, _ := m[rpc.FieldData].(map[string]any)
		if id == "" {
			return nil, errors.Join(rpc.ErrBadMessage, errors.New("record without id"))
		}
		if data == nil {
			data = docstore.Document{}
		}
		out = append(out, docstore.Record{ID: id, Data: data})
	}
	return out, nil
}
