package model

// Generator emits items carrying its configured letter every Interval seconds.
type Generator struct {
	Base

	Letter   string
	Interval float64
	Elapsed  float64
}

func NewGenerator(s Spec, rot int) *Generator {
	g := &Generator{Base: newBase(s, rot), Interval: s.Interval}
	g.Kind = KindGenerator
	if g.Interval <= 0 {
		g.Interval = 2.0
	}
	g.adopt(g, s.buildPorts())
	return g
}

func (g *Generator) SetLetter(letter string) { g.Letter = letter }

// Update advances the emit timer. It saturates at Interval while nothing
// takes the item.
func (g *Generator) Update(dt float64) {
	g.Elapsed += dt
	if g.Elapsed > g.Interval {
		g.Elapsed = g.Interval
	}
}

func (g *Generator) ProvideItem(p *Port) *Item {
	if g.Letter == "" || g.Elapsed < g.Interval || p.Kind != PortOutput {
		return nil
	}
	g.Elapsed = 0
	return &Item{Formula: g.Letter, Pos: TileCenter(p.GridPos())}
}

// HandleBackpressure drops the item; the generator retries shortly after.
func (g *Generator) HandleBackpressure(it *Item, p *Port) bool {
	g.Elapsed = g.Interval - 0.1
	if g.Elapsed < 0 {
		g.Elapsed = 0
	}
	return true
}

func (g *Generator) ToData() Data {
	d := baseData(&g.Base)
	d.Letter = g.Letter
	d.Elapsed = g.Elapsed
	return d
}
