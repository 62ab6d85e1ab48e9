package session

import (
	"context"
	"errors"
)

// Control signals. Every blocking call may return one of these (possibly
// wrapped); they travel up by early return until Run classifies them.
var (
	ErrRemoteShutdown = errors.New("lobby server shut down")
	ErrLocalExit      = errors.New("local exit requested")
	ErrOpponentLeft   = errors.New("opponent left the session")

	// errPlayAgain unwinds a finished battle back to ship placement.
	errPlayAgain = errors.New("play again")
)

// Outcome is how a session ended.
type Outcome int

const (
	OutcomeLocalExit Outcome = iota
	OutcomeServerShutdown
	OutcomeOpponentLeft
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLocalExit:
		return "local_exit"
	case OutcomeServerShutdown:
		return "server_shutdown"
	case OutcomeOpponentLeft:
		return "opponent_left"
	default:
		return "failed"
	}
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeLocalExit
	case errors.Is(err, ErrRemoteShutdown):
		return OutcomeServerShutdown
	case errors.Is(err, ErrOpponentLeft):
		return OutcomeOpponentLeft
	case errors.Is(err, ErrLocalExit), errors.Is(err, context.Canceled):
		return OutcomeLocalExit
	default:
		return OutcomeFailed
	}
}
