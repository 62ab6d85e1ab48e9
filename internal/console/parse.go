package console

import (
	"errors"
	"strconv"
	"strings"

	"github.com/park285/Cheese-Battleship/internal/fleet"
)

var errBadInput = errors.New("unrecognised input")

// parseCoord reads a cell such as "B3" or "j10".
func parseCoord(s string) (fleet.Coord, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return fleet.Coord{}, errBadInput
	}
	row := int(s[0]) - 'A'
	col, err := strconv.Atoi(strings.TrimSpace(s[1:]))
	if err != nil {
		return fleet.Coord{}, errBadInput
	}
	c := fleet.Coord{Row: row, Col: col - 1}
	if !c.InBounds() {
		return fleet.Coord{}, errBadInput
	}
	return c, nil
}

// parsePlacement reads "<bow> <h|v>"; the orientation defaults to horizontal.
func parsePlacement(s string, size int) ([]fleet.Coord, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, errBadInput
	}
	bow, err := parseCoord(fields[0])
	if err != nil {
		return nil, err
	}
	o := fleet.Horizontal
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "h", "horizontal":
		case "v", "vertical":
			o = fleet.Vertical
		default:
			return nil, errBadInput
		}
	}
	return fleet.Line(bow, size, o), nil
}

func parseYesNo(s string) (answer, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}

func isQuit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quit", "exit", ":q":
		return true
	}
	return false
}
