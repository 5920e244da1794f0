package model

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the limit to [1, MaxPageLimit] and the offset to >= 0.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	} else if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	p.Offset = max(0, p.Offset)
	return p
}
