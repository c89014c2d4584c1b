package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CallerHeader names the caller on development servers without a signing key.
const CallerHeader = "X-Ledger-Caller"

// ErrNotFound is wrapped by errors for absent transactions, proposals or modules.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from ledgerd.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	// Rejection is the solution rejection kind, when present.
	Rejection string `json:"rejection,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Rejection != "" {
		return fmt.Sprintf("ledgerd %d: %s (%s)", e.StatusCode, e.Message, e.Rejection)
	}
	return fmt.Sprintf("ledgerd %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 responses to ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client is the ledgerd SDK entry point.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
	caller      string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a caller token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithCaller names the caller directly. Only development servers honour it.
func WithCaller(account string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(account) != account || account == "" {
			return fmt.Errorf("invalid caller %q", account)
		}
		c.caller = account
		return nil
	}
}

// New creates a Client for the ledgerd server at base.
//
//	c, err := client.New("http://localhost:8080", client.WithBearerToken(tok))
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ── token ────────────────────────────────────────────────────────────────

// Token returns the token metadata.
func (c *Client) Token(ctx context.Context) (*Token, error) {
	var out Token
	return &out, c.getJSON(ctx, "/token", nil, &out)
}

// TotalSupply returns the configured total supply in base units.
func (c *Client) TotalSupply(ctx context.Context) (string, error) {
	var out struct {
		TotalSupply string `json:"total_supply"`
	}
	err := c.getJSON(ctx, "/token/total-supply", nil, &out)
	return out.TotalSupply, err
}

// Circulating returns the sum of all balances in base units.
func (c *Client) Circulating(ctx context.Context) (string, error) {
	var out struct {
		Circulating string `json:"circulating"`
	}
	err := c.getJSON(ctx, "/token/circulating", nil, &out)
	return out.Circulating, err
}

// ── accounts and transfers ───────────────────────────────────────────────

// Balance returns the balance of account in base units.
func (c *Client) Balance(ctx context.Context, account string) (string, error) {
	var out Balance
	err := c.getJSON(ctx, "/accounts/"+url.PathEscape(account)+"/balance", nil, &out)
	return out.Balance, err
}

// Transfer moves amount base units from the caller to to.
func (c *Client) Transfer(ctx context.Context, to, amount string, memo []byte) (*Transaction, error) {
	body := map[string]any{"to": to, "amount": amount}
	if len(memo) > 0 {
		body["memo"] = memo
	}
	var out Transaction
	return &out, c.sendJSON(ctx, http.MethodPost, "/transfers", body, &out)
}

// Mint credits amount new base units to to and returns its new balance.
func (c *Client) Mint(ctx context.Context, to, amount string) (string, error) {
	var out Balance
	err := c.sendJSON(ctx, http.MethodPost, "/mint", map[string]any{"to": to, "amount": amount}, &out)
	return out.Balance, err
}

// ── transaction log ──────────────────────────────────────────────────────

// Transactions returns up to length log entries starting at start.
func (c *Client) Transactions(ctx context.Context, start, length int) (*TransactionPage, error) {
	var out TransactionPage
	return &out, c.getJSON(ctx, "/transactions", pageQuery(start, length), &out)
}

// AccountTransactions is Transactions restricted to entries involving account.
func (c *Client) AccountTransactions(ctx context.Context, account string, start, length int) (*TransactionPage, error) {
	var out TransactionPage
	return &out, c.getJSON(ctx, "/accounts/"+url.PathEscape(account)+"/transactions", pageQuery(start, length), &out)
}

// Transaction returns the entry at index. Absent indices wrap ErrNotFound.
func (c *Client) Transaction(ctx context.Context, index int) (*Transaction, error) {
	var out Transaction
	return &out, c.getJSON(ctx, "/transactions/"+strconv.Itoa(index), nil, &out)
}

// VerifyTransactions asks the server to walk the full hash chain.
func (c *Client) VerifyTransactions(ctx context.Context) (*LogVerification, error) {
	var out LogVerification
	return &out, c.getJSON(ctx, "/transactions/verify", nil, &out)
}

func pageQuery(start, length int) url.Values {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	if length > 0 {
		q.Set("length", strconv.Itoa(length))
	}
	return q
}

// ── challenge ────────────────────────────────────────────────────────────

// Challenge returns the current proof-of-work challenge.
func (c *Client) Challenge(ctx context.Context) (*Challenge, error) {
	var out Challenge
	return &out, c.getJSON(ctx, "/challenge", nil, &out)
}

// RotateChallenge starts a new epoch. Maintainers only, once any exist.
func (c *Client) RotateChallenge(ctx context.Context) (*Challenge, error) {
	var out Challenge
	return &out, c.sendJSON(ctx, http.MethodPost, "/challenge/rotate", nil, &out)
}

// SubmitSolution submits a proof. Rejections are *APIError with Rejection set.
func (c *Client) SubmitSolution(ctx context.Context, s Solution) (*SolutionAccepted, error) {
	var out SolutionAccepted
	return &out, c.sendJSON(ctx, http.MethodPost, "/solutions", s, &out)
}

// BestSolution returns the current epoch's best solution.
func (c *Client) BestSolution(ctx context.Context) (*SolutionAccepted, error) {
	var out SolutionAccepted
	return &out, c.getJSON(ctx, "/solutions/best", nil, &out)
}

// ── auction ──────────────────────────────────────────────────────────────

// AvailableTokenSupply returns the amount on offer this round.
func (c *Client) AvailableTokenSupply(ctx context.Context) (*TokenSupply, error) {
	var out TokenSupply
	return &out, c.getJSON(ctx, "/auction/supply", nil, &out)
}

// SubmitOffer submits a bid and returns the leading offer afterwards.
func (c *Client) SubmitOffer(ctx context.Context, o Offer) (*BestOffer, error) {
	var out BestOffer
	return &out, c.sendJSON(ctx, http.MethodPost, "/offers", o, &out)
}

// BestOffer returns the leading offer of the current round.
func (c *Client) BestOffer(ctx context.Context) (*BestOffer, error) {
	var out BestOffer
	return &out, c.getJSON(ctx, "/offers/best", nil, &out)
}

// ── governance ───────────────────────────────────────────────────────────

// Vote records the caller's vote on proposal id.
func (c *Client) Vote(ctx context.Context, id uint64, inFavor bool) (*Proposal, error) {
	var out Proposal
	path := "/proposals/" + strconv.FormatUint(id, 10) + "/votes"
	return &out, c.sendJSON(ctx, http.MethodPost, path, map[string]bool{"in_favor": inFavor}, &out)
}

// Proposal returns the tally of proposal id.
func (c *Client) Proposal(ctx context.Context, id uint64) (*Proposal, error) {
	var out Proposal
	return &out, c.getJSON(ctx, "/proposals/"+strconv.FormatUint(id, 10), nil, &out)
}

// Proposals lists every proposal that has received a vote.
func (c *Client) Proposals(ctx context.Context) ([]Proposal, error) {
	var out struct {
		Proposals []Proposal `json:"proposals"`
	}
	err := c.getJSON(ctx, "/proposals", nil, &out)
	return out.Proposals, err
}

// Maintainers lists the maintainer accounts.
func (c *Client) Maintainers(ctx context.Context) ([]string, error) {
	var out struct {
		Maintainers []string `json:"maintainers"`
	}
	err := c.getJSON(ctx, "/maintainers", nil, &out)
	return out.Maintainers, err
}

// UpdateMaintainers replaces the maintainer set and returns its size.
func (c *Client) UpdateMaintainers(ctx context.Context, accounts []string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.sendJSON(ctx, http.MethodPut, "/maintainers", map[string][]string{"accounts": accounts}, &out)
	return out.Count, err
}

// ── module ───────────────────────────────────────────────────────────────

// UploadModule stores r's contents as the code module.
func (c *Client) UploadModule(ctx context.Context, r io.Reader) (*ModuleInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/module", r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	var out ModuleInfo
	return &out, c.do(req, &out)
}

// ModuleInfo describes the stored module. Wraps ErrNotFound when none exists.
func (c *Client) ModuleInfo(ctx context.Context) (*ModuleInfo, error) {
	var out ModuleInfo
	return &out, c.getJSON(ctx, "/module", nil, &out)
}

// ── transport ────────────────────────────────────────────────────────────

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	target := c.base + "/api/v1" + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do executes req with the configured credentials and decodes a 2xx body
// into out.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	if c.caller != "" {
		req.Header.Set(CallerHeader, c.caller)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
