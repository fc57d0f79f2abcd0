package roundrobin

// IdleAdvance is the liveness exception to strict round robin on the receiving
// side. When the receiver stayed empty for the whole pass, the port whose turn
// it was made no offer, and some other port did offer, the cursor jumps to the
// next port that offered so an idle feeder does not stall active ones.
//
// Returns true when the cursor moved.
func IdleAdvance(c *Cursor, n int, wasEmpty bool, offered func(i int) bool, eligible func(i int) bool) bool {
	if !wasEmpty || n <= 1 || offered == nil {
		return false
	}
	sched := c.Turn(n, eligible)
	if sched < 0 || offered(sched) {
		return false
	}
	for k := 1; k < n; k++ {
		i := (sched + k) % n
		if eligible != nil && !eligible(i) {
			continue
		}
		if offered(i) {
			c.Next = i
			c.pending = false
			return true
		}
	}
	return false
}
