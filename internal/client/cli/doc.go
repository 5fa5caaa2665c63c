// Package cli provides the interactive LinkStash command-line client.
//
// It wires configuration, the gRPC client and the client services into a
// REPL. Typical flow: register or log in, then add, list, search, edit and
// delete links, notes, todos and images. Owners and admins get the admin
// console commands.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
