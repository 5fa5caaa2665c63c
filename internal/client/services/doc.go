// Package services holds the LinkStash client core: the per-user Session,
// the ItemStore that keeps the session mirror in step with the document
// store, and Accounts, which signs users in and out and runs the admin
// operations.
//
// Every operation returns an error instead of panicking. Store failures are
// logged and wrapped in ErrStore, validation failures wrap ErrValidation,
// refused mutations are ErrForbidden and identity failures are returned as
// the gateway's AuthError.
package services
