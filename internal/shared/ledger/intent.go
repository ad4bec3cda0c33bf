package ledger

// Package-level intent builders for the external token ledger. An Intent is a
// request for the ledger to act; building one never moves funds and never
// touches local balances. Callers persist the decision first (reclaimed flag,
// closed status) and then emit the intent, so a downstream ledger failure
// surfaces as an inconsistency to resolve operationally, not as a retry loop.

type IntentKind string

const (
	IntentTransfer IntentKind = "transfer"
	IntentBurn     IntentKind = "burn"
)

// Intent is an opaque outbound ledger instruction.
// Token is the managing token contract identity; Recipient is empty for burns.
type Intent struct {
	Kind      IntentKind `json:"kind"`
	Token     string     `json:"token"`
	Recipient string     `json:"recipient,omitempty"`
	Amount    uint64     `json:"amount"`
}

func NewTransfer(token string, recipient string, amount uint64) Intent {
	return Intent{
		Kind:      IntentTransfer,
		Token:     token,
		Recipient: recipient,
		Amount:    amount,
	}
}

func NewBurn(token string, amount uint64) Intent {
	return Intent{
		Kind:   IntentBurn,
		Token:  token,
		Amount: amount,
	}
}
