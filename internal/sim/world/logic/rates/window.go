package rates

// Allow is a fixed-window counter keyed on ticks. It returns the updated
// window start and count, whether this event fits under max, and how many
// ticks remain until the window resets when it does not.
// A zero window or non-positive max disables the limit.
func Allow(nowTick uint64, startTick uint64, count int, window uint64, max int) (newStart uint64, newCount int, ok bool, cooldownTicks uint64) {
	newStart = startTick
	newCount = count
	if window == 0 || max <= 0 {
		return newStart, newCount, true, 0
	}

	if nowTick < newStart || nowTick-newStart >= window {
		newStart = nowTick
		newCount = 0
	}
	newCount++
	if newCount <= max {
		return newStart, newCount, true, 0
	}
	return newStart, newCount, false, (newStart + window) - nowTick
}

// Window holds the state for Allow for one actor.
type Window struct {
	Start uint64
	Count int
}

// Take records one event at nowTick.
func (w *Window) Take(nowTick, window uint64, max int) (ok bool, cooldownTicks uint64) {
	w.Start, w.Count, ok, cooldownTicks = Allow(nowTick, w.Start, w.Count, window, max)
	return ok, cooldownTicks
}
