// Package treasury manages the platform's community funds.
//
// Admins grant per-address spending allowances over the managed token and
// register linear vesting schedules; payouts leave as escrow transfer
// intents, never as direct fund movement.
package treasury
