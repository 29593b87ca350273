// Package cli provides the interactive storefront command-line client.
//
// It wires configuration and the HTTP API client into a small REPL:
// register, login, whoami, ping and logout. The bearer token returned by
// login lives only in memory for the life of the process.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
