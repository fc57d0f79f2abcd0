package model

// Collector is a sink that accepts every item and counts it by formula.
type Collector struct {
	Base

	Received map[string]int
	Last     *Item
}

func NewCollector(s Spec, rot int) *Collector {
	c := &Collector{Base: newBase(s, rot), Received: map[string]int{}}
	c.Kind = KindCollector
	c.adopt(c, s.buildPorts())
	return c
}

func (c *Collector) ReceiveItem(p *Port, it *Item) bool {
	if p.Kind != PortInput || it == nil {
		return false
	}
	c.Received[it.Formula]++
	it.Pos = c.Center()
	c.Last = it
	return true
}

func (c *Collector) Total() int {
	n := 0
	for _, v := range c.Received {
		n += v
	}
	return n
}

func (c *Collector) ToData() Data {
	d := baseData(&c.Base)
	if len(c.Received) > 0 {
		d.Received = make(map[string]int, len(c.Received))
		for k, v := range c.Received {
			d.Received[k] = v
		}
	}
	return d
}
