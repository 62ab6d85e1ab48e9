package fleet

import "fmt"

const GridSize = 10

// Composition is the fixed set of ship sizes every player places per battle.
var Composition = []int{5, 4, 4, 3, 3, 3, 2, 2, 2, 2}

// Coord is a single grid cell.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < GridSize && c.Col >= 0 && c.Col < GridSize
}

// String renders the cell as the console shows it, e.g. A1 or J10.
func (c Coord) String() string {
	if !c.InBounds() {
		return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	return fmt.Sprintf("%c%d", 'A'+rune(c.Row), c.Col+1)
}

// ShotResult is the target's assessment of a shot, reported back to the shooter.
type ShotResult struct {
	Hit           bool    `json:"hit"`
	DestroyedShip []Coord `json:"destroyed_ship,omitempty"`
	GameOver      bool    `json:"game_over"`
}

// ShotOutcome is what a single ReceiveShot call produced against one fleet.
type ShotOutcome struct {
	Hit           bool
	DestroyedShip []Coord
}
