// Package identity resolves the caller of a ledger call.
//
// It provides:
//   - TokenIssuer: issues and verifies HS256 caller tokens
//   - ResolveCaller: Gin middleware that derives the caller from a Bearer token
//   - RequireCaller: Gin middleware rejecting anonymous requests
//
// The caller identity is the opaque account ID carried in the token subject.
package identity
