// Package service owns the shared ordered map and is the only entry point
// into it. Transports (gRPC, HTTP, CLI) call Store; Store serializes every
// call with one mutex, stamps mutations with a revision, publishes change
// events and records metrics and spans.
package service
