// Package cli constructs the flow-pusher command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging.
package cli
