package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/docstore/redisstore"
	"github.com/dmitrijs2005/linkstash/internal/rpc"
	"github.com/dmitrijs2005/linkstash/internal/server/auth"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
	"github.com/dmitrijs2005/linkstash/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"
)

type handlerFunc func(s *GRPCServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

var handlers = map[string]handlerFunc{
	rpc.MethodPing:                   (*GRPCServer).ping,
	rpc.MethodSignIn:                 (*GRPCServer).signIn,
	rpc.MethodCreateIdentity:         (*GRPCServer).createIdentity,
	rpc.MethodRefreshToken:           (*GRPCServer).refreshToken,
	rpc.MethodSignOut:                (*GRPCServer).signOut,
	rpc.MethodSendPasswordResetEmail: (*GRPCServer).sendPasswordResetEmail,
	rpc.MethodVerifyResetCode:        (*GRPCServer).verifyResetCode,
	rpc.MethodConfirmPasswordReset:   (*GRPCServer).confirmPasswordReset,
	rpc.MethodReauthenticate:         (*GRPCServer).reauthenticate,
	rpc.MethodUpdatePassword:         (*GRPCServer).updatePassword,
	rpc.MethodDeleteIdentity:         (*GRPCServer).deleteIdentity,
	rpc.MethodCreate:                 (*GRPCServer).create,
	rpc.MethodSet:                    (*GRPCServer).set,
	rpc.MethodRead:                   (*GRPCServer).read,
	rpc.MethodUpdate:                 (*GRPCServer).update,
	rpc.MethodDelete:                 (*GRPCServer).delete,
	rpc.MethodScan:                   (*GRPCServer).scan,
}

// Dispatch routes a decoded request to its handler and converts failures
// into status errors.
func (s *GRPCServer) Dispatch(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error) {
	h, ok := handlers[method]
	if !ok {
		return nil, rpc.Error(codes.Unimplemented, "unknown method "+method)
	}
	resp, err := h(s, ctx, req)
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	return resp, nil
}

var authCodeStatus = map[common.AuthCode]codes.Code{
	common.CodeWrongPassword:       codes.Unauthenticated,
	common.CodeUserNotFound:        codes.NotFound,
	common.CodeEmailAlreadyInUse:   codes.AlreadyExists,
	common.CodeInvalidEmail:        codes.InvalidArgument,
	common.CodeWeakPassword:        codes.InvalidArgument,
	common.CodeInvalidResetCode:    codes.InvalidArgument,
	common.CodeRequiresRecentLogin: codes.FailedPrecondition,
	common.CodeExpiredResetCode:    codes.FailedPrecondition,
	common.CodeUnavailable:         codes.Unavailable,
	common.CodeInternal:            codes.Internal,
}

func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	if code, ok := common.AuthCodeOf(err); ok {
		return rpc.Error(authCodeStatus[code], string(code))
	}

	switch {
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return rpc.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return rpc.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrorForbidden):
		return rpc.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, docstore.ErrNotFound):
		return rpc.Error(codes.NotFound, docstore.ErrNotFound.Error())
	case errors.Is(err, docstore.ErrInvalidArgument), errors.Is(err, rpc.ErrBadMessage):
		return rpc.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, redisstore.ErrConflict):
		return rpc.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return rpc.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return rpc.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return rpc.Error(codes.Internal, common.ErrorInternal.Error())
}

func (s *GRPCServer) ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return rpc.NewStruct(map[string]any{"status": "OK"})
}

func identityResponse(identity *models.Identity, pair *services.TokenPair) (*structpb.Struct, error) {
	return rpc.NewStruct(map[string]any{
		rpc.FieldUID:          identity.ID,
		rpc.FieldEmail:        identity.Email,
		rpc.FieldCreatedAt:    identity.CreatedAt.UTC().Format(time.RFC3339),
		rpc.FieldAccessToken:  pair.AccessToken,
		rpc.FieldRefreshToken: pair.RefreshToken,
	})
}

func tokenResponse(pair *services.TokenPair) (*structpb.Struct, error) {
	return rpc.NewStruct(map[string]any{
		rpc.FieldAccessToken:  pair.AccessToken,
		rpc.FieldRefreshToken: pair.RefreshToken,
	})
}

func (s *GRPCServer) signIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, pair, err := s.identities.SignIn(ctx, rpc.String(req, rpc.FieldEmail), rpc.String(req, rpc.FieldPassword))
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Signed in", "uid", identity.ID)
	return identityResponse(identity, pair)
}

func (s *GRPCServer) createIdentity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, pair, err := s.identities.CreateIdentity(ctx, rpc.String(req, rpc.FieldEmail), rpc.String(req, rpc.FieldPassword))
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Registered", "uid", identity.ID)
	return identityResponse(identity, pair)
}

func (s *GRPCServer) refreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pair, err := s.identities.RefreshToken(ctx, rpc.String(req, rpc.FieldRefreshToken))
	if err != nil {
		return nil, err
	}
	return tokenResponse(pair)
}

func (s *GRPCServer) sendPasswordResetEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.identities.SendPasswordResetEmail(ctx, rpc.String(req, rpc.FieldEmail)); err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func (s *GRPCServer) verifyResetCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := s.identities.VerifyResetCode(ctx, rpc.String(req, rpc.FieldCode))
	if err != nil {
		return nil, err
	}
	return rpc.NewStruct(map[string]any{rpc.FieldEmail: email})
}

func (s *GRPCServer) confirmPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	err := s.identities.ConfirmPasswordReset(ctx, rpc.String(req, rpc.FieldCode), rpc.String(req, rpc.FieldNewPassword))
	if err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func callerFrom(ctx context.Context) (auth.Caller, error) {
	c, ok := auth.CallerFrom(ctx)
	if !ok {
		return auth.Caller{}, common.ErrorUnauthorized
	}
	return c, nil
}

func (s *GRPCServer) signOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.identities.SignOut(ctx, c.UserID, rpc.String(req, rpc.FieldRefreshToken)); err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func (s *GRPCServer) reauthenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	pair, err := s.identities.Reauthenticate(ctx, c.UserID, rpc.String(req, rpc.FieldPassword))
	if err != nil {
		return nil, err
	}
	return tokenResponse(pair)
}

func (s *GRPCServer) updatePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.identities.UpdatePassword(ctx, c, rpc.String(req, rpc.FieldNewPassword)); err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func (s *GRPCServer) deleteIdentity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.identities.DeleteIdentity(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Identity deleted", "uid", c.UserID)
	return rpc.Empty(), nil
}

func collectionOf(req *structpb.Struct) (string, error) {
	c := rpc.String(req, rpc.FieldCollection)
	if c == "" {
		return "", fmt.Errorf("%w: collection is required", rpc.ErrBadMessage)
	}
	return c, nil
}

func fieldsOf(req *structpb.Struct) (docstore.Document, error) {
	fields, ok := rpc.Map(req, rpc.FieldFields)
	if !ok {
		return nil, fmt.Errorf("%w: fields must be an object", rpc.ErrBadMessage)
	}
	return fields, nil
}

func (s *GRPCServer) create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, err := collectionOf(req)
	if err != nil {
		return nil, err
	}
	fields, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	id, err := s.documents.Create(ctx, collection, fields)
	if err != nil {
		return nil, err
	}
	return rpc.NewStruct(map[string]any{rpc.FieldID: id})
}

func (s *GRPCServer) set(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, err := collectionOf(req)
	if err != nil {
		return nil, err
	}
	fields, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Set(ctx, collection, rpc.String(req, rpc.FieldID), fields); err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func (s *GRPCServer) read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, err := collectionOf(req)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.Read(ctx, collection, rpc.String(req, rpc.FieldID))
	if err != nil {
		return nil, err
	}
	return rpc.NewStruct(map[string]any{rpc.FieldData: map[string]any(doc)})
}

func (s *GRPCServer) update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, err := collectionOf(req)
	if err != nil {
		return nil, err
	}
	fields, err := fieldsOf(req)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Update(ctx, collection, rpc.String(req, rpc.FieldID), fields); err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func (s *GRPCServer) delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, err := collectionOf(req)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Delete(ctx, collection, rpc.String(req, rpc.FieldID)); err != nil {
		return nil, err
	}
	return rpc.Empty(), nil
}

func (s *GRPCServer) scan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, err := collectionOf(req)
	if err != nil {
		return nil, err
	}
	var filter *docstore.Filter
	if field := rpc.String(req, rpc.FieldFilterField); field != "" {
		filter = docstore.Eq(field, rpc.String(req, rpc.FieldFilterValue))
	}

	recs, err := s.documents.Scan(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, map[string]any{rpc.FieldID: r.ID, rpc.FieldData: map[string]any(r.Data)})
	}
	return rpc.NewStruct(map[string]any{rpc.FieldRecords: out})
}
