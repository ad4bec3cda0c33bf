package entities

import "time"

// PollKind is decided once at the decode boundary and carried as a typed
// value afterwards; deeper layers never re-parse kind strings.
type PollKind string

const (
	PollKindPrediction PollKind = "prediction"
	PollKindOpinion    PollKind = "opinion"
)

func (k PollKind) Valid() bool {
	return k == PollKindPrediction || k == PollKindOpinion
}

// InstantiateReplyToken is the single reply-correlation token shared by all
// creation requests. One outstanding instantiation slot exists system-wide;
// concurrent creations serialize on it.
const InstantiateReplyToken uint64 = 1

// Config is the orchestrator's persisted singleton configuration.
// TokenContract stays empty until RegisterPaymentToken runs.
type Config struct {
	Admins               []string
	TokenContract        string
	CreationDeposit      uint64
	ReclaimableThreshold uint64
	MinimumBetAmount     uint64
	TaxPercentage        float64
	UpdatedAt            time.Time
}

// IsAdmin is the authorization guard: a pure membership predicate over the
// admin set. Mutating admin operations consult it before touching state.
func (c Config) IsAdmin(caller string) bool {
	for _, admin := range c.Admins {
		if admin == caller {
			return true
		}
	}
	return false
}

func (c Config) TokenRegistered() bool {
	return c.TokenContract != ""
}

// State tracks the live poll instance counter alongside the config singleton.
type State struct {
	NumPolls  int
	UpdatedAt time.Time
}

// PendingCreation bridges a committed creation request and its asynchronous
// instantiation acknowledgement. Keyed by correlation token, consumed exactly
// once: both acknowledgement branches delete the record.
type PendingCreation struct {
	Token          uint64
	Generator      string
	DepositAmount  uint64
	PollName       string
	PollKind       PollKind
	CodeReference  uint64
	PollAdmin      string
	EndTime        time.Time
	ResolutionTime *time.Time
	NumSides       uint64
	CreatedAt      time.Time
}

// PollRegistration is a tracked live poll instance.
type PollRegistration struct {
	Address      string
	PollKind     PollKind
	PollName     string
	RegisteredAt time.Time
}
