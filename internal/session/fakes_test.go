package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/Cheese-Battleship/internal/fleet"
	"github.com/park285/Cheese-Battleship/internal/msgcat"
)

// fakeTransport plays a scripted peer and records every call in order.
type fakeTransport struct {
	calls []string

	serverOK   []bool
	hosts      []HostInfo
	hostsErr   error
	registerOK bool
	waitOK     bool
	waitErr    error
	joinOK     bool

	peerName   string
	hasMessage []bool
	ackErr     error

	results     []fleet.ShotResult
	shots       []fleet.Coord
	shotsErr    error
	enemyShips  [][]fleet.Coord
	informed    []fleet.ShotResult
	sentIntact  [][][]fleet.Coord
	established bool
	closes      int
}

func (f *fakeTransport) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeTransport) ConnectToServer(_ context.Context, addr string) bool {
	f.record("connect_server %s", addr)
	if len(f.serverOK) == 0 {
		return false
	}
	ok := f.serverOK[0]
	f.serverOK = f.serverOK[1:]
	return ok
}

func (f *fakeTransport) AvailableHosts(context.Context) ([]HostInfo, error) {
	f.record("available_hosts")
	return f.hosts, f.hostsErr
}

func (f *fakeTransport) RegisterAsHost(_ context.Context, name string) bool {
	f.record("register %s", name)
	return f.registerOK
}

func (f *fakeTransport) WaitForConnection(context.Context) (bool, error) {
	f.record("wait_connection")
	if f.waitOK {
		f.established = true
	}
	return f.waitOK, f.waitErr
}

func (f *fakeTransport) ConnectToHost(_ context.Context, addr string) bool {
	f.record("connect_host %s", addr)
	if f.joinOK {
		f.established = true
	}
	return f.joinOK
}

func (f *fakeTransport) ExchangeNames(_ context.Context, name string) (string, error) {
	f.record("exchange_names %s", name)
	return f.peerName, nil
}

func (f *fakeTransport) SendAcknowledgement(context.Context) error {
	f.record("send_ack")
	return nil
}

func (f *fakeTransport) HasMessage() bool {
	f.record("has_message")
	if len(f.hasMessage) == 0 {
		return false
	}
	v := f.hasMessage[0]
	f.hasMessage = f.hasMessage[1:]
	return v
}

func (f *fakeTransport) WaitForAcknowledgement(context.Context) error {
	f.record("wait_ack")
	return f.ackErr
}

func (f *fakeTransport) DeliverShot(_ context.Context, target fleet.Coord) (fleet.ShotResult, error) {
	f.record("deliver_shot %s", target)
	if len(f.results) == 0 {
		return fleet.ShotResult{}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakeTransport) ReceiveShot(context.Context) (fleet.Coord, error) {
	f.record("receive_shot")
	if len(f.shots) == 0 {
		if f.shotsErr != nil {
			return fleet.Coord{}, f.shotsErr
		}
		return fleet.Coord{}, ErrOpponentLeft
	}
	c := f.shots[0]
	f.shots = f.shots[1:]
	return c, nil
}

func (f *fakeTransport) InformShotResult(_ context.Context, res fleet.ShotResult) error {
	f.record("inform_result hit=%v over=%v", res.Hit, res.GameOver)
	f.informed = append(f.informed, res)
	return nil
}

func (f *fakeTransport) SendIntactShips(_ context.Context, own *fleet.Fleet) error {
	f.record("send_intact_ships")
	f.sentIntact = append(f.sentIntact, own.IntactShips())
	return nil
}

func (f *fakeTransport) EnemyIntactShips(context.Context) ([][]fleet.Coord, error) {
	f.record("enemy_intact_ships")
	return f.enemyShips, nil
}

func (f *fakeTransport) Established() bool { return f.established }

func (f *fakeTransport) InformExit(context.Context) error {
	f.record("inform_exit")
	return nil
}

func (f *fakeTransport) Close() error {
	f.closes++
	return nil
}

func (f *fakeTransport) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeTransport) index(call string) int {
	for i, c := range f.calls {
		if c == call {
			return i
		}
	}
	return -1
}

// fakeUI answers prompts from queues. An exhausted queue means the user quit.
type fakeUI struct {
	logons   [][2]string
	choices  []string
	confirms []bool
	aims     []fleet.Coord
	aimErr   error
	battles  int // PlaceShips calls allowed before quitting

	messages    []string
	placements  int
	shown       []string
	revealed    [][]fleet.Coord
	enemyFleet  [][]fleet.Coord
	resets      int
	startedWith string
}

func (u *fakeUI) Logon(context.Context) (string, string, error) {
	if len(u.logons) == 0 {
		return "", "", ErrLocalExit
	}
	l := u.logons[0]
	u.logons = u.logons[1:]
	return l[0], l[1], nil
}

func (u *fakeUI) ChooseHost(context.Context, []HostInfo) (string, error) {
	if len(u.choices) == 0 {
		return "", ErrLocalExit
	}
	c := u.choices[0]
	u.choices = u.choices[1:]
	return c, nil
}

func (u *fakeUI) Confirm(context.Context, string) (bool, error) {
	if len(u.confirms) == 0 {
		return false, nil
	}
	c := u.confirms[0]
	u.confirms = u.confirms[1:]
	return c, nil
}

func (u *fakeUI) PlaceShips(_ context.Context, sizes []int) ([][]fleet.Coord, error) {
	if u.placements >= u.battles {
		return nil, ErrLocalExit
	}
	u.placements++
	return rowFleet(sizes), nil
}

func (u *fakeUI) Aim(context.Context) (fleet.Coord, error) {
	if len(u.aims) == 0 {
		if u.aimErr != nil {
			return fleet.Coord{}, u.aimErr
		}
		return fleet.Coord{}, ErrLocalExit
	}
	c := u.aims[0]
	u.aims = u.aims[1:]
	return c, nil
}

func (u *fakeUI) StartBattle(player, opponent string) { u.startedWith = player + " vs " + opponent }
func (u *fakeUI) Message(text string)                 { u.messages = append(u.messages, text) }
func (u *fakeUI) ShowShot(b Board, c fleet.Coord, hit bool) {
	u.shown = append(u.shown, fmt.Sprintf("%d:%s:%v", b, c, hit))
}
func (u *fakeUI) RevealShip(_ Board, ship []fleet.Coord) { u.revealed = append(u.revealed, ship) }
func (u *fakeUI) RevealFleet(ships [][]fleet.Coord)     { u.enemyFleet = ships }
func (u *fakeUI) ResetBattle()                          { u.resets++ }

func (u *fakeUI) countMessage(text string) int {
	n := 0
	for _, m := range u.messages {
		if m == text {
			n++
		}
	}
	return n
}

// rowFleet puts ship i on row i starting at column 0, so column 9 is always water.
func rowFleet(sizes []int) [][]fleet.Coord {
	out := make([][]fleet.Coord, len(sizes))
	for i, size := range sizes {
		out[i] = fleet.Line(fleet.Coord{Row: i, Col: 0}, size, fleet.Horizontal)
	}
	return out
}

func mustCatalog() *msgcat.Catalog {
	c, err := msgcat.New("")
	if err != nil {
		panic(err)
	}
	return c
}

var errBoom = errors.New("boom")
