// Package comm provides the process-group coordination the evaluators
// need: rank identity, barriers, and one-shot value agreement. A local
// single-process implementation and an HTTP rendezvous implementation are
// included; anything with the same interface (e.g. an MPI binding) can be
// substituted.
package comm

import "context"

// Communicator is the coordination surface of one worker in a process
// group. Ranks are dense in [0, WorldSize).
type Communicator interface {
	Rank() int
	WorldSize() int
	// Barrier blocks until every rank of the group has entered the same
	// barrier. Ranks must call Barrier in the same order.
	Barrier(ctx context.Context) error
	// Agree submits this rank's proposal for key and returns the
	// proposal of the lowest rank once every rank has submitted. Every
	// rank receives the same winning value.
	Agree(ctx context.Context, key, proposal string) (string, error)
}

// Local is the single-process communicator. Barriers are no-ops and every
// agreement returns the caller's own proposal.
type Local struct{}

// NewLocal returns a communicator for a world of one.
func NewLocal() *Local { return &Local{} }

func (*Local) Rank() int      { return 0 }
func (*Local) WorldSize() int { return 1 }

func (*Local) Barrier(ctx context.Context) error { return ctx.Err() }

func (*Local) Agree(ctx context.Context, key, proposal string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return proposal, nil
}
