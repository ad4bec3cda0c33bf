// Package orchestrator implements the poll creation protocol inside the
// poll-platform context.
//
// The module accepts funded creation requests from the registered payment
// token, emits instantiation intents tagged with the shared reply-correlation
// token, and completes the escrowed deposit handoff once the asynchronous
// acknowledgement arrives. It also owns the platform's admin-gated config
// maintenance and the tracked-instance registry.
package orchestrator
