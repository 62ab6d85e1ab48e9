package peerlink

import "github.com/park285/Cheese-Battleship/internal/fleet"

// Kind tags a frame on the peer link.
type Kind string

const (
	KindName        Kind = "name"
	KindAck         Kind = "ack"
	KindShot        Kind = "shot"
	KindShotResult  Kind = "shot_result"
	KindIntactShips Kind = "intact_ships"
	KindExit        Kind = "exit"
)

// Envelope is the single JSON frame type exchanged between two clients.
type Envelope struct {
	Kind   Kind              `json:"kind"`
	Name   string            `json:"name,omitempty"`
	Shot   *fleet.Coord      `json:"shot,omitempty"`
	Result *fleet.ShotResult `json:"result,omitempty"`
	Ships  [][]fleet.Coord   `json:"ships,omitempty"`
}

type State string

const (
	StateConnected State = "CONNECTED"
	StateLost      State = "LOST"
	StateClosed    State = "CLOSED"
)

type StateCallback func(state State)
