package session

import (
	"context"

	"github.com/park285/Cheese-Battleship/internal/fleet"
)

// HostInfo is one open game advertised by the lobby.
type HostInfo struct {
	ID   string
	Name string
	Addr string
}

// Transport is the single connection a session owns. Connection attempts report
// plain success; blocking exchanges return the control signals below when the
// lobby, the peer or the local user ends the session.
type Transport interface {
	ConnectToServer(ctx context.Context, addr string) bool
	AvailableHosts(ctx context.Context) ([]HostInfo, error)
	RegisterAsHost(ctx context.Context, name string) bool
	WaitForConnection(ctx context.Context) (bool, error)
	ConnectToHost(ctx context.Context, addr string) bool

	ExchangeNames(ctx context.Context, name string) (string, error)

	SendAcknowledgement(ctx context.Context) error
	HasMessage() bool
	WaitForAcknowledgement(ctx context.Context) error

	DeliverShot(ctx context.Context, target fleet.Coord) (fleet.ShotResult, error)
	ReceiveShot(ctx context.Context) (fleet.Coord, error)
	InformShotResult(ctx context.Context, res fleet.ShotResult) error

	SendIntactShips(ctx context.Context, f *fleet.Fleet) error
	EnemyIntactShips(ctx context.Context) ([][]fleet.Coord, error)

	Established() bool
	InformExit(ctx context.Context) error
	// Close releases the connection. It must be safe to call more than once.
	Close() error
}

type Board int

const (
	BoardOwn Board = iota
	BoardEnemy
)

// UI is everything the session needs from the screen and keyboard. Blocking
// calls return validated values or an error (ErrLocalExit when the user quits).
type UI interface {
	Logon(ctx context.Context) (name, addr string, err error)
	// ChooseHost returns the address to join, or "" to host a game.
	ChooseHost(ctx context.Context, hosts []HostInfo) (string, error)
	Confirm(ctx context.Context, question string) (bool, error)
	PlaceShips(ctx context.Context, sizes []int) ([][]fleet.Coord, error)
	Aim(ctx context.Context) (fleet.Coord, error)

	StartBattle(player, opponent string)
	Message(text string)
	ShowShot(b Board, c fleet.Coord, hit bool)
	RevealShip(b Board, ship []fleet.Coord)
	RevealFleet(ships [][]fleet.Coord)
	ResetBattle()
}

// Texts renders user-facing sentences by key; msgcat.Catalog implements it.
type Texts interface {
	Text(key string, data any) string
}
