package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/logging"
	"github.com/dmitrijs2005/linkstash/internal/rpc"
	"github.com/dmitrijs2005/linkstash/internal/server/auth"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
	"github.com/dmitrijs2005/linkstash/internal/server/services"
	"google.golang.org/grpc"
)

type identityService interface {
	SignIn(ctx context.Context, email, password string) (*models.Identity, *services.TokenPair, error)
	CreateIdentity(ctx context.Context, email, password string) (*models.Identity, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	SignOut(ctx context.Context, userID, refreshToken string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, code string) (string, error)
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) error
	Reauthenticate(ctx context.Context, userID, password string) (*services.TokenPair, error)
	UpdatePassword(ctx context.Context, caller auth.Caller, newPassword string) error
	DeleteIdentity(ctx context.Context, caller auth.Caller) error
}

type GRPCServer struct {
	address    string
	identities identityService
	documents  docstore.Store
	logger     logging.Logger
	jwtSecret  []byte
}

var _ rpc.Dispatcher = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, ids identityService, docs docstore.Store, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		identities: ids,
		documents:  docs,
		jwtSecret:  []byte(secretKey),
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	rpc.Register(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
