package rpc

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request field names.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldNewPassword  = "newPassword"
	FieldCode         = "code"
	FieldUID          = "uid"
	FieldCreatedAt    = "createdAt"
	FieldAccessToken  = "accessToken"
	FieldRefreshToken = "refreshToken"
	FieldIdentity     = "identity"

	FieldCollection  = "collection"
	FieldID          = "id"
	FieldFields      = "fields"
	FieldFilterField = "filterField"
	FieldFilterValue = "filterValue"
	FieldRecords     = "records"
	FieldData        = "data"
)

var ErrBadMessage = errors.New("malformed message")

// NewStruct converts a JSON-shaped map into a Struct.
func NewStruct(m map[string]any) (*structpb.Struct, error) {
	if m == nil {
		m = map[string]any{}
	}
	return structpb.NewStruct(m)
}

// Empty is the response for methods that return nothing.
func Empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

// String returns the string field key or "" if absent or not a string.
func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// Map returns the object field key as a map.
func Map(s *structpb.Struct, key string) (map[string]any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.GetFields()[key]
	if !ok || v.GetStructValue() == nil {
		return nil, false
	}
	return v.GetStructValue().AsMap(), true
}

// List returns the list field key as a slice.
func List(s *structpb.Struct, key string) ([]any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.GetFields()[key]
	if !ok || v.GetListValue() == nil {
		return nil, false
	}
	return v.GetListValue().AsSlice(), true
}

// Error builds a status error whose message is reason. Clients read the
// reason back with Reason.
func Error(code codes.Code, reason string) error {
	return status.Error(code, reason)
}

// Reason extracts the status message of err, or "" for non-status errors.
func Reason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	return strings.TrimSpace(st.Message())
}
