package roundrobin

// Cursor picks which of n ports is served next. It moves only past a port that
// was served; a served hand-off that bounced can be undone with Rewind.
type Cursor struct {
	Next int

	prev    int
	pending bool
}

// Turn returns the index whose turn it is: the first eligible index at or after
// Next, cycling. Ineligible (for example unlinked) ports are skipped. Returns -1
// when nothing is eligible.
func (c *Cursor) Turn(n int, eligible func(i int) bool) int {
	if n <= 0 {
		return -1
	}
	start := c.Next
	if start < 0 || start >= n {
		start = 0
	}
	for k := 0; k < n; k++ {
		i := (start + k) % n
		if eligible == nil || eligible(i) {
			return i
		}
	}
	return -1
}

// Advance moves the cursor past i.
func (c *Cursor) Advance(i, n int) {
	if n <= 0 {
		c.Next = 0
		return
	}
	c.prev = c.Next
	c.pending = true
	c.Next = (i + 1) % n
}

// Rewind undoes the last Advance. It is a no-op if nothing is pending.
func (c *Cursor) Rewind() {
	if !c.pending {
		return
	}
	c.Next = c.prev
	c.pending = false
}

// Commit forgets the pending Advance.
func (c *Cursor) Commit() { c.pending = false }

// Clamp keeps Next valid after the port list changed size.
func (c *Cursor) Clamp(n int) {
	c.pending = false
	if n <= 0 || c.Next < 0 || c.Next >= n {
		c.Next = 0
	}
}
