package commands

import "context"

// Echo is the reference service coreremotingd registers by default so the
// daemon is callable out of the box (spec §1: "ships one reference
// implementation of each external collaborator so the core is runnable
// and testable end-to-end").
type Echo interface {
	Say(ctx context.Context, message string) (string, error)
}

type echoImpl struct{}

func (echoImpl) Say(ctx context.Context, message string) (string, error) {
	return message, nil
}
