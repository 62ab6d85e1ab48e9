package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-Battleship/internal/fleet"
	"github.com/park285/Cheese-Battleship/internal/obslog"
	"github.com/park285/Cheese-Battleship/internal/session"
	"go.uber.org/zap"
)

type Options struct {
	In    io.Reader
	Out   io.Writer
	Texts session.Texts

	// PlayerName skips the name prompt when set.
	PlayerName   string
	DefaultLobby string
	Rand         *rand.Rand
}

// Console is a line-oriented terminal UI. Typing "quit" at any prompt, or
// closing input, ends the session.
type Console struct {
	out   io.Writer
	texts session.Texts
	lines chan string

	playerName   string
	defaultLobby string
	rng          *rand.Rand

	player, opponent string
	own, enemy       board
	fired            map[fleet.Coord]bool
}

var _ session.UI = (*Console)(nil)

func New(opts Options) *Console {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c := &Console{
		out:          opts.Out,
		texts:        opts.Texts,
		lines:        make(chan string),
		playerName:   strings.TrimSpace(opts.PlayerName),
		defaultLobby: opts.DefaultLobby,
		rng:          rng,
		fired:        make(map[fleet.Coord]bool),
	}
	go c.readLines(opts.In)
	return c
}

func (c *Console) readLines(in io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		c.lines <- sc.Text()
	}
	if err := sc.Err(); err != nil {
		obslog.L().Warn("console_read_error", zap.Error(err))
	}
}

// prompt writes text and waits for one line of input.
func (c *Console) prompt(ctx context.Context, text string) (string, error) {
	fmt.Fprint(c.out, text)
	select {
	case line, ok := <-c.lines:
		if !ok || isQuit(line) {
			fmt.Fprintln(c.out)
			return "", session.ErrLocalExit
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	}
}

func (c *Console) Logon(ctx context.Context) (string, string, error) {
	name := c.playerName
	for name == "" {
		line, err := c.prompt(ctx, c.texts.Text("console.logon_name", nil))
		if err != nil {
			return "", "", err
		}
		name = line
	}
	c.playerName = name
	addr, err := c.prompt(ctx, c.texts.Text("console.logon_server", map[string]any{"Default": c.defaultLobby}))
	if err != nil {
		return "", "", err
	}
	if addr == "" {
		addr = c.defaultLobby
	}
	return name, addr, nil
}

func (c *Console) ChooseHost(ctx context.Context, hosts []session.HostInfo) (string, error) {
	if len(hosts) == 0 {
		fmt.Fprintln(c.out, c.texts.Text("console.hosts_empty", nil))
	} else {
		fmt.Fprintln(c.out, c.texts.Text("console.hosts_header", nil))
		for i, h := range hosts {
			fmt.Fprintf(c.out, "  %d) %s (%s)\n", i+1, h.Name, h.Addr)
		}
	}
	for {
		line, err := c.prompt(ctx, c.texts.Text("console.host_choice", nil))
		if err != nil {
			return "", err
		}
		if strings.EqualFold(line, "h") {
			return "", nil
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(hosts) {
			return hosts[n-1].Addr, nil
		}
	}
}

func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		line, err := c.prompt(ctx, question+c.texts.Text("console.yes_no", nil))
		if err != nil {
			return false, err
		}
		if answer, ok := parseYesNo(line); ok {
			return answer, nil
		}
	}
}

// PlaceShips asks for each ship in turn. "auto" places the whole fleet at random.
func (c *Console) PlaceShips(ctx context.Context, sizes []int) ([][]fleet.Coord, error) {
	c.own.reset()
	placed := make([][]fleet.Coord, 0, len(sizes))
	for len(placed) < len(sizes) {
		size := sizes[len(placed)]
		c.render()
		line, err := c.prompt(ctx, c.texts.Text("console.place_ship", map[string]any{"Size": size}))
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(line, "auto") {
			placed = fleet.RandomPlacements(c.rng, sizes)
			c.own.reset()
			for _, s := range placed {
				c.markShip(s)
			}
			break
		}
		s, err := parsePlacement(line, size)
		if err != nil {
			c.Message(c.texts.Text("console.invalid_coord", nil))
			continue
		}
		if err := fleet.ValidatePlacement(placed, s); err != nil {
			c.Message(c.texts.Text("console.invalid_ship", map[string]any{"Error": err.Error()}))
			continue
		}
		placed = append(placed, s)
		c.markShip(s)
	}
	c.render()
	return placed, nil
}

// Aim asks for a target, refusing cells already fired at in this battle.
func (c *Console) Aim(ctx context.Context) (fleet.Coord, error) {
	for {
		line, err := c.prompt(ctx, c.texts.Text("console.aim", nil))
		if err != nil {
			return fleet.Coord{}, err
		}
		target, err := parseCoord(line)
		if err != nil {
			c.Message(c.texts.Text("console.invalid_coord", nil))
			continue
		}
		if c.fired[target] {
			c.Message(c.texts.Text("console.already_fired", map[string]any{"Cell": target.String()}))
			continue
		}
		c.fired[target] = true
		return target, nil
	}
}

func (c *Console) StartBattle(player, opponent string) {
	c.player, c.opponent = player, opponent
}

func (c *Console) Message(text string) {
	fmt.Fprintln(c.out, text)
}

func (c *Console) ShowShot(b session.Board, at fleet.Coord, isHit bool) {
	v := miss
	if isHit {
		v = hit
	}
	c.boardFor(b).set(at, v)
	c.render()
}

func (c *Console) RevealShip(b session.Board, s []fleet.Coord) {
	bd := c.boardFor(b)
	for _, at := range s {
		bd.set(at, sunk)
	}
	c.render()
}

// RevealFleet draws the opponent's surviving ships after a lost battle.
func (c *Console) RevealFleet(ships [][]fleet.Coord) {
	for _, s := range ships {
		for _, at := range s {
			if c.enemy.get(at) == water {
				c.enemy.set(at, ship)
			}
		}
	}
	c.Message(c.texts.Text("console.enemy_fleet_revealed", map[string]any{"Opponent": c.opponent}))
	c.render()
}

func (c *Console) ResetBattle() {
	c.own.reset()
	c.enemy.reset()
	c.fired = make(map[fleet.Coord]bool)
}

func (c *Console) boardFor(b session.Board) *board {
	if b == session.BoardOwn {
		return &c.own
	}
	return &c.enemy
}

func (c *Console) markShip(s []fleet.Coord) {
	for _, at := range s {
		c.own.set(at, ship)
	}
}

func (c *Console) render() {
	renderBoards(c.out,
		c.texts.Text("console.own_board", nil),
		c.texts.Text("console.enemy_board", nil),
		&c.own, &c.enemy)
}
