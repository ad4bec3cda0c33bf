// Package settlement implements poll instances inside the poll-platform
// context.
//
// Each instance runs a two-state machine: Voting accepts one ballot per
// participant until the end time, Closed is terminal. Closing computes the
// ascending-order winner set and settles the escrowed creation deposit,
// burning it when participation stayed below the reclaimable threshold and
// returning it to the generator otherwise.
package settlement
