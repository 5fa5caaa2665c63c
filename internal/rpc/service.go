// Package rpc describes the LinkStash gRPC service. Messages are
// google.protobuf.Struct values, so the service is registered from a
// hand-built grpc.ServiceDesc instead of generated stubs.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "linkstash.v1.LinkStash"

const (
	MethodPing                   = "Ping"
	MethodSignIn                 = "SignIn"
	MethodCreateIdentity         = "CreateIdentity"
	MethodRefreshToken           = "RefreshToken"
	MethodSignOut                = "SignOut"
	MethodSendPasswordResetEmail = "SendPasswordResetEmail"
	MethodVerifyResetCode        = "VerifyResetCode"
	MethodConfirmPasswordReset   = "ConfirmPasswordReset"
	MethodReauthenticate         = "Reauthenticate"
	MethodUpdatePassword         = "UpdatePassword"
	MethodDeleteIdentity         = "DeleteIdentity"

	MethodCreate = "Create"
	MethodSet    = "Set"
	MethodRead   = "Read"
	MethodUpdate = "Update"
	MethodDelete = "Delete"
	MethodScan   = "Scan"
)

var Methods = []string{
	MethodPing,
	MethodSignIn,
	MethodCreateIdentity,
	MethodRefreshToken,
	MethodSignOut,
	MethodSendPasswordResetEmail,
	MethodVerifyResetCode,
	MethodConfirmPasswordReset,
	MethodReauthenticate,
	MethodUpdatePassword,
	MethodDeleteIdentity,
	MethodCreate,
	MethodSet,
	MethodRead,
	MethodUpdate,
	MethodDelete,
	MethodScan,
}

// methods callable without an access token
var public = map[string]bool{
	MethodPing:                   true,
	MethodSignIn:                 true,
	MethodCreateIdentity:         true,
	MethodRefreshToken:           true,
	MethodSendPasswordResetEmail: true,
	MethodVerifyResetCode:        true,
	MethodConfirmPasswordReset:   true,
}

// FullMethod returns the gRPC path for method, e.g. /linkstash.v1.LinkStash/Read.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// IsPublic reports whether fullMethod may be called without authentication.
func IsPublic(fullMethod string) bool {
	for m := range public {
		if FullMethod(m) == fullMethod {
			return true
		}
	}
	return false
}

// Dispatcher handles one decoded request. The server implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		d := srv.(Dispatcher)
		if interceptor == nil {
			return d.Dispatch(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return d.Dispatch(ctx, method, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc builds the descriptor used with grpc.Server.RegisterService.
func ServiceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Dispatcher)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "linkstash/v1/linkstash.proto",
	}
	for _, m := range Methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m,
			Handler:    unaryHandler(m),
		})
	}
	return desc
}

func Register(s grpc.ServiceRegistrar, d Dispatcher) {
	s.RegisterService(ServiceDesc(), d)
}
