// Package client talks to the LinkStash backend.
//
// GRPCClient is both the gateway.Gateway used to sign in and the
// docstore.Store holding the user's documents. It keeps the session tokens,
// sends the access token with every call and transparently refreshes it
// when the server reports it expired. When the refresh token itself is
// rejected the session is dropped and identity subscribers are told.
//
// # Error Handling
//
// Status errors are mapped to AuthError values for identity failures and
// to sentinels (ErrUnauthorized, ErrUnavailable, docstore.ErrNotFound,
// common.ErrorForbidden) for everything else.
package client
