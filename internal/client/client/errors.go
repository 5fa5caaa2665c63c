package client

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/docstore"
	"github.com/dmitrijs2005/linkstash/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrorUnauthorized
	ErrNotSignedIn  = errors.New("not signed in")
)

// mapError converts a status error into the sentinel or AuthError callers
// match with errors.Is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if code, ok := common.ParseAuthCode(rpc.Reason(err)); ok {
		return common.NewAuthError(code)
	}

	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrorForbidden, st.Message())
	case codes.NotFound:
		return docstore.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", docstore.ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
