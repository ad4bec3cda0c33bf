package httptransport

import "time"

type CastVoteRequest struct {
	Voter         string `json:"voter"`
	Side          uint64 `json:"side"`
	AttachedFunds uint64 `json:"attached_funds,omitempty"`
}

type ClosePollRequest struct {
	Caller string `json:"caller"`
}

type ReclaimDepositRequest struct {
	Caller string `json:"caller"`
}

type TransferOwnerRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

type PollResponse struct {
	ID                   string   `json:"id"`
	Owner                string   `json:"owner"`
	Generator            string   `json:"generator"`
	TokenContract        string   `json:"token_contract"`
	PollName             string   `json:"poll_name"`
	PollKind             string   `json:"poll_kind"`
	EndTime              int64    `json:"end_time"`
	ResolutionTime       *int64   `json:"resolution_time,omitempty"`
	NumSides             uint64   `json:"num_sides"`
	ReclaimableThreshold uint64   `json:"reclaimable_threshold"`
	MinimumBetAmount     uint64   `json:"minimum_bet_amount"`
	TaxPercentage        float64  `json:"tax_percentage"`
	DepositAmount        uint64   `json:"deposit_amount"`
	Status               string   `json:"status"`
	TotalAmount          uint64   `json:"total_amount"`
	WinningSides         []uint64 `json:"winning_sides"`
	DepositReclaimed     bool     `json:"deposit_reclaimed"`
}

type SideTallyItem struct {
	Side  uint64 `json:"side"`
	Count uint64 `json:"count"`
}

type TallyResponse struct {
	PollID string          `json:"poll_id"`
	Sides  []SideTallyItem `json:"sides"`
}

type VoterItem struct {
	Voter  string    `json:"voter"`
	Side   uint64    `json:"side"`
	CastAt time.Time `json:"cast_at"`
}

type VoterListResponse struct {
	PollID string      `json:"poll_id"`
	Items  []VoterItem `json:"items"`
}

type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
