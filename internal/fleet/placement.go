package fleet

import (
	"errors"
	"math/rand"
)

var (
	ErrOutOfBounds  = errors.New("ship leaves the grid")
	ErrNotStraight  = errors.New("ship must be a straight contiguous line")
	ErrOverlap      = errors.New("ship overlaps another ship")
	ErrWrongSize    = errors.New("ship has the wrong size")
	ErrFleetInvalid = errors.New("fleet does not match the composition")
)

type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Line returns the cells of a ship of the given size starting at bow.
func Line(bow Coord, size int, o Orientation) []Coord {
	out := make([]Coord, size)
	for i := 0; i < size; i++ {
		if o == Horizontal {
			out[i] = Coord{Row: bow.Row, Col: bow.Col + i}
		} else {
			out[i] = Coord{Row: bow.Row + i, Col: bow.Col}
		}
	}
	return out
}

// ValidatePlacement checks ship against the grid and the already placed ships.
func ValidatePlacement(placed [][]Coord, ship []Coord) error {
	if len(ship) == 0 {
		return ErrWrongSize
	}
	for _, c := range ship {
		if !c.InBounds() {
			return ErrOutOfBounds
		}
	}
	if !straight(ship) {
		return ErrNotStraight
	}
	for _, other := range placed {
		for _, a := range other {
			for _, b := range ship {
				if a == b {
					return ErrOverlap
				}
			}
		}
	}
	return nil
}

// ValidateFleet checks a complete set of placements against Composition.
func ValidateFleet(placements [][]Coord) error {
	if len(placements) != len(Composition) {
		return ErrFleetInvalid
	}
	for i, p := range placements {
		if len(p) != Composition[i] {
			return ErrWrongSize
		}
		if err := ValidatePlacement(placements[:i], p); err != nil {
			return err
		}
	}
	return nil
}

func straight(ship []Coord) bool {
	if len(ship) == 1 {
		return true
	}
	dr, dc := ship[1].Row-ship[0].Row, ship[1].Col-ship[0].Col
	if !((dr == 0 && (dc == 1 || dc == -1)) || (dc == 0 && (dr == 1 || dr == -1))) {
		return false
	}
	for i := 2; i < len(ship); i++ {
		if ship[i].Row-ship[i-1].Row != dr || ship[i].Col-ship[i-1].Col != dc {
			return false
		}
	}
	return true
}

// RandomPlacements places every ship of sizes at random, retrying on collisions.
func RandomPlacements(rng *rand.Rand, sizes []int) [][]Coord {
	placed := make([][]Coord, 0, len(sizes))
	for _, size := range sizes {
		for {
			o := Orientation(rng.Intn(2))
			bow := Coord{Row: rng.Intn(GridSize), Col: rng.Intn(GridSize)}
			ship := Line(bow, size, o)
			if ValidatePlacement(placed, ship) == nil {
				placed = append(placed, ship)
				break
			}
		}
	}
	return placed
}
