package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/park285/Cheese-Battleship/internal/fleet"
)

type cell byte

const (
	water cell = iota
	ship
	hit
	miss
	sunk
)

func (c cell) glyph() byte {
	switch c {
	case ship:
		return '#'
	case hit:
		return 'X'
	case miss:
		return 'o'
	case sunk:
		return '*'
	default:
		return '.'
	}
}

type board [fleet.GridSize][fleet.GridSize]cell

func (b *board) set(c fleet.Coord, v cell) {
	if c.InBounds() {
		b[c.Row][c.Col] = v
	}
}

func (b *board) get(c fleet.Coord) cell {
	if !c.InBounds() {
		return water
	}
	return b[c.Row][c.Col]
}

func (b *board) reset() { *b = board{} }

const columnWidth = 2*fleet.GridSize + 8

// renderBoards prints both grids side by side, own fleet on the left.
func renderBoards(w io.Writer, leftTitle, rightTitle string, left, right *board) {
	var sb strings.Builder
	sb.WriteString(pad("   "+leftTitle, columnWidth))
	sb.WriteString("   " + rightTitle + "\n")

	header := "  "
	for col := 1; col <= fleet.GridSize; col++ {
		header += fmt.Sprintf("%2d", col)
	}
	sb.WriteString(pad(header, columnWidth))
	sb.WriteString(header + "\n")

	for row := 0; row < fleet.GridSize; row++ {
		sb.WriteString(pad(boardRow(left, row), columnWidth))
		sb.WriteString(boardRow(right, row) + "\n")
	}
	_, _ = io.WriteString(w, sb.String())
}

func boardRow(b *board, row int) string {
	var sb strings.Builder
	sb.WriteByte(byte('A' + row))
	sb.WriteByte(' ')
	for col := 0; col < fleet.GridSize; col++ {
		sb.WriteByte(' ')
		sb.WriteByte(b[row][col].glyph())
	}
	return sb.String()
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s + " "
	}
	return s + strings.Repeat(" ", n-len(s))
}
