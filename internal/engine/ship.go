package engine

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

type ShipKind string

const (
	ShipSmall  ShipKind = "small"
	ShipMedium ShipKind = "medium"
	ShipLarge  ShipKind = "large"
	ShipHuge   ShipKind = "huge"
)

// Length is the number of cells a ship of this kind covers, 0 for unknown kinds.
func (k ShipKind) Length() int {
	switch k {
	case ShipSmall:
		return 1
	case ShipMedium:
		return 2
	case ShipLarge:
		return 3
	case ShipHuge:
		return 4
	}
	return 0
}

type Ship struct {
	Origin      Position    `json:"origin"`
	Orientation Orientation `json:"orientation"`
	Length      int         `json:"length"`
	Kind        ShipKind    `json:"kind"`
	Hits        int         `json:"hits"`
	Sunk        bool        `json:"sunk"`
}

func NewShip(kind ShipKind, origin Position, o Orientation) Ship {
	return Ship{Origin: origin, Orientation: o, Length: kind.Length(), Kind: kind}
}

// Cells lists the positions the ship covers, starting at its origin.
// Positions may fall outside the board; placement rejects those.
func (s Ship) Cells() []Position {
	out := make([]Position, 0, s.Length)
	for i := 0; i < s.Length; i++ {
		p := s.Origin
		if s.Orientation == Vertical {
			p.Y += i
		} else {
			p.X += i
		}
		out = append(out, p)
	}
	return out
}

func (s Ship) valid() bool {
	if s.Orientation != Horizontal && s.Orientation != Vertical {
		return false
	}
	want := s.Kind.Length()
	return want != 0 && s.Length == want
}
