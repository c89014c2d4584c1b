package client

import "time"

// Token is the static token metadata.
type Token struct {
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Decimals         uint8  `json:"decimals"`
	TotalSupply      string `json:"total_supply"`
	EnforceSupplyCap bool   `json:"enforce_supply_cap"`
}

// Balance is an account balance in base units.
type Balance struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

// Transaction is one entry of the transaction log.
type Transaction struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Fee       string    `json:"fee"`
	Memo      []byte    `json:"memo,omitempty"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// TransactionPage is a window of the transaction log.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
}

// LogVerification reports the result of a full hash-chain check.
type LogVerification struct {
	Valid  bool   `json:"valid"`
	Length int    `json:"length"`
	Root   string `json:"root"`
	Error  string `json:"error,omitempty"`
}

// Challenge is the current proof-of-work epoch.
type Challenge struct {
	Version    uint8  `json:"version"`
	MinNumOnes uint8  `json:"min_num_ones"`
	Time       uint64 `json:"time"`
	Randomness uint32 `json:"randomness"`
	ParentHash []byte `json:"parent_hash"`
}

// Solution is a proof submitted against a Challenge.
type Solution struct {
	Time      uint64  `json:"time"`
	Principal *string `json:"principal,omitempty"`
	Bytes     []byte  `json:"bytes"`
	Version   uint8   `json:"version,omitempty"`
}

// SolutionAccepted describes the epoch's best solution.
type SolutionAccepted struct {
	Time       uint64 `json:"time"`
	CurMinOnes uint8  `json:"cur_min_ones"`
}

// TokenSupply is the amount on offer in the current auction round.
type TokenSupply struct {
	Time        uint64 `json:"time"`
	TotalAmount uint64 `json:"total_amount"`
}

// Offer bids cycles for tokens.
type Offer struct {
	Amount            uint64 `json:"amount"`
	NumAttachedCycles uint64 `json:"num_attached_cycles"`
}

// BestOffer is the leading offer of the current round.
type BestOffer struct {
	Amount      uint64 `json:"amount"`
	NumCycles   uint64 `json:"num_cycles"`
	TotalAmount uint64 `json:"total_amount"`
}

// Proposal is a vote tally. Voted is set only for identified callers.
type Proposal struct {
	ID           uint64 `json:"id"`
	VotesFor     uint64 `json:"votes_for"`
	VotesAgainst uint64 `json:"votes_against"`
	Voted        *bool  `json:"voted,omitempty"`
}

// ModuleInfo describes the stored code module.
type ModuleInfo struct {
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}
