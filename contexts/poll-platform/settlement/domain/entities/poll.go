package entities

import "time"

type PollStatus string

const (
	StatusVoting PollStatus = "voting"
	StatusClosed PollStatus = "closed"
)

// Poll is one settlement instance: config fixed at instantiation plus the
// voting/tally/disposition state. Status moves Voting -> Closed exactly once;
// DepositReclaimed flips false -> true exactly once and is the mutual
// exclusion token between closing disposition and early reclaim.
type Poll struct {
	ID                   string
	Owner                string
	Generator            string
	TokenContract        string
	PollName             string
	PollKind             string
	EndTime              time.Time
	ResolutionTime       *time.Time
	NumSides             uint64
	ReclaimableThreshold uint64
	MinimumBetAmount     uint64
	TaxPercentage        float64
	DepositAmount        uint64

	Status           PollStatus
	TotalAmount      uint64
	WinningSides     []uint64
	DepositReclaimed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoteRecord is one participant's ballot. A voter appears at most once per
// poll; re-votes are rejected, never overwritten.
type VoteRecord struct {
	PollID string
	Voter  string
	Side   uint64
	CastAt time.Time
}

// SideTally is a per-side participation count, listed in ascending side order.
type SideTally struct {
	Side  uint64
	Count uint64
}
