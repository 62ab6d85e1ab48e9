package fleet

// Ship occupies a fixed list of cells and loses one hit point per distinct cell hit.
type Ship struct {
	coords    []Coord
	hitPoints int
	hits      map[Coord]struct{}
}

func NewShip(coords []Coord) *Ship {
	return &Ship{
		coords:    append([]Coord(nil), coords...),
		hitPoints: len(coords),
		hits:      make(map[Coord]struct{}, len(coords)),
	}
}

// Coords returns a copy of the occupied cells in placement order.
func (s *Ship) Coords() []Coord { return append([]Coord(nil), s.coords...) }

func (s *Ship) Size() int { return len(s.coords) }

func (s *Ship) HitPoints() int { return s.hitPoints }

func (s *Ship) Destroyed() bool { return s.hitPoints == 0 }

// absorb reports whether c belongs to the ship. A cell that was already hit
// still counts as a hit but does not cost another hit point.
func (s *Ship) absorb(c Coord) bool {
	for _, sc := range s.coords {
		if sc != c {
			continue
		}
		if _, seen := s.hits[c]; !seen {
			s.hits[c] = struct{}{}
			s.hitPoints--
		}
		return true
	}
	return false
}

// Fleet is one player's ships for one battle. Destroyed ships are removed.
type Fleet struct {
	intact []*Ship
}

// New builds one ship per placement. Placements are expected to be validated already.
func New(placements [][]Coord) *Fleet {
	f := &Fleet{intact: make([]*Ship, 0, len(placements))}
	for _, p := range placements {
		f.intact = append(f.intact, NewShip(p))
	}
	return f
}

// ReceiveShot resolves a shot against the first intact ship containing c.
func (f *Fleet) ReceiveShot(c Coord) ShotOutcome {
	for i, ship := range f.intact {
		if !ship.absorb(c) {
			continue
		}
		out := ShotOutcome{Hit: true}
		if ship.Destroyed() {
			f.intact = append(f.intact[:i], f.intact[i+1:]...)
			out.DestroyedShip = ship.Coords()
		}
		return out
	}
	return ShotOutcome{}
}

// Resolve applies the shot and packages the outcome for the shooter.
func (f *Fleet) Resolve(c Coord) ShotResult {
	out := f.ReceiveShot(c)
	return ShotResult{
		Hit:           out.Hit,
		DestroyedShip: out.DestroyedShip,
		GameOver:      f.Destroyed(),
	}
}

func (f *Fleet) Destroyed() bool { return len(f.intact) == 0 }

func (f *Fleet) IntactCount() int { return len(f.intact) }

// IntactShips lists the cells of every ship still afloat.
func (f *Fleet) IntactShips() [][]Coord {
	out := make([][]Coord, 0, len(f.intact))
	for _, s := range f.intact {
		out = append(out, s.Coords())
	}
	return out
}
