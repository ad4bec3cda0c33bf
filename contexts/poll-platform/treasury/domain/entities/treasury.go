package entities

import (
	"strings"
	"time"
)

// Config holds the treasury admin set and the token whose funds it manages.
type Config struct {
	Admins        []string
	ManagingToken string
	UpdatedAt     time.Time
}

func (c Config) IsAdmin(caller string) bool {
	caller = strings.TrimSpace(caller)
	for _, admin := range c.Admins {
		if admin == caller {
			return true
		}
	}
	return false
}

// Allowance caps how much of the managed funds an address may spend.
// RemainAmount never exceeds AllowedAmount and never goes below zero.
type Allowance struct {
	Address       string
	AllowedAmount uint64
	RemainAmount  uint64
	UpdatedAt     time.Time
}

// Distribution is a linear vesting schedule over a time window. Released
// tracks what already left the treasury; the releasable amount at any clock
// reading is the vested portion minus Released.
type Distribution struct {
	ID        string
	Recipient string
	Amount    uint64
	Released  uint64
	StartTime time.Time
	EndTime   time.Time
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VestedAt returns the amount matured at the given instant under linear
// vesting across [StartTime, EndTime].
func (d Distribution) VestedAt(now time.Time) uint64 {
	if !now.After(d.StartTime) {
		return 0
	}
	if !now.Before(d.EndTime) {
		return d.Amount
	}
	elapsed := now.Sub(d.StartTime)
	window := d.EndTime.Sub(d.StartTime)
	return uint64(float64(d.Amount) * (elapsed.Seconds() / window.Seconds()))
}
