package httptransport

import "encoding/json"

// FundedCreationRequest mirrors the token hook envelope: the registered token
// contract forwards the generator identity, the escrowed amount, and the
// encoded creation payload.
type FundedCreationRequest struct {
	SenderToken string          `json:"sender_token"`
	Generator   string          `json:"generator"`
	Amount      uint64          `json:"amount"`
	Payload     json.RawMessage `json:"payload"`
}

type AcknowledgementRequest struct {
	CorrelationToken uint64 `json:"correlation_token"`
	Success          bool   `json:"success"`
	InstanceAddress  string `json:"instance_address,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

type RegisterTokenRequest struct {
	Caller          string `json:"caller"`
	TokenContract   string `json:"token_contract"`
	CreationDeposit uint64 `json:"creation_deposit"`
}

type UpdateConfigRequest struct {
	Caller               string   `json:"caller"`
	CreationDeposit      *uint64  `json:"creation_deposit,omitempty"`
	ReclaimableThreshold *uint64  `json:"reclaimable_threshold,omitempty"`
	Admins               []string `json:"admins,omitempty"`
}

type FinishPollRequest struct {
	Caller   string  `json:"caller"`
	PollKind string  `json:"poll_kind"`
	Winner   *uint64 `json:"winner,omitempty"`
	Forced   bool    `json:"forced,omitempty"`
}

type TransferRequest struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type ConfigResponse struct {
	Admins               []string `json:"admins"`
	TokenContract        string   `json:"token_contract"`
	CreationDeposit      uint64   `json:"creation_deposit"`
	ReclaimableThreshold uint64   `json:"reclaimable_threshold"`
	MinimumBetAmount     uint64   `json:"minimum_bet_amount"`
	TaxPercentage        float64  `json:"tax_percentage"`
	NumPolls             int      `json:"num_polls"`
}

type PollRegistrationItem struct {
	Address  string `json:"address"`
	PollKind string `json:"poll_kind"`
	PollName string `json:"poll_name"`
}

type PollListResponse struct {
	Items []PollRegistrationItem `json:"items"`
}

type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
