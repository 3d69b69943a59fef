package mechanics

// Point is a location in a tree rooted at the graph origin. Its position is
// the sum of offsets along the path from the origin.
type Point struct {
	name   string
	g      *Graph
	parent *Point
	idx    int
	offset Vector
	// vel overrides the derived velocity in the base frame.
	vel *Vector
}

func (p *Point) Name() string   { return p.name }
func (p *Point) Parent() *Point { return p.parent }
func (p *Point) Graph() *Graph  { return p.g }
func (p *Point) Offset() Vector { return p.offset }
func (p *Point) String() string { return p.name }

// Prescribed reports whether the velocity of p was set explicitly.
func (p *Point) Prescribed() bool { return p.vel != nil }
