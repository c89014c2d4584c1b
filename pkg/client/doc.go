// Package client is the ledgerd Go SDK.
//
// It wraps the ledgerd HTTP API: token metadata, balances, transfers, the
// transaction log, the proof-of-work challenge, the auction and governance
// votes.
//
// # Read-only use
//
// Reads are public; no credentials are needed:
//
//	c, _ := client.New("http://localhost:8080")
//	bal, err := c.Balance(ctx, "alice")
//
// # Acting as a caller
//
// Mutating calls need a caller identity. Against a server configured with a
// signing key, pass the bearer token issued by 'ledgerctl token issue':
//
//	c, _ := client.New(baseURL, client.WithBearerToken(token))
//	tx, err := c.Transfer(ctx, "bob", "3000", []byte("rent"))
//
// A development server without a signing key accepts the caller name
// directly:
//
//	c, _ := client.New("http://localhost:8080", client.WithCaller("alice"))
//
// # Amounts
//
// Amounts travel as base-10 strings of base units. FormatUnits and
// ParseUnits convert to and from display units using the token's decimals:
//
//	client.FormatUnits("150000000", 8) // "1.5"
//	client.ParseUnits("1.5", 8)        // "150000000"
//
// # Errors
//
// Non-2xx responses are returned as *APIError. Solution rejections carry
// the rejection kind in APIError.Rejection:
//
//	_, err := c.SubmitSolution(ctx, sol)
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Rejection == "ChallengeMismatch" {
//	    // fetch a fresh challenge and retry
//	}
package client
