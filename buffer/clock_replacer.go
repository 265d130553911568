package buffer

func newClockReplacer() *clockReplacer {
	return &clockReplacer{hand: 0}
}

// victim sweeps the frames from the clock hand and returns the first
// unpinned frame whose reference bit is already clear, clearing bits as it
// passes. Two passes are enough: the first clears every unpinned frame's bit.
// When every frame is pinned nothing is modified and ok is false.
func (c *clockReplacer) victim(frames frameTable) (int, bool) {
	size := len(frames)
	if size == 0 {
		return INVALID_FRAME_ID, false
	}

	start := c.hand
	for range 2 * size {
		idx := c.hand
		f := &frames[idx]
		c.hand = (c.hand + 1) % size

		if f.isFree() {
			return idx, true
		}
		if !f.isEvictable() {
			continue
		}
		if f.referenced {
			f.referenced = false
			continue
		}
		return idx, true
	}

	// every frame pinned, so no reference bit was cleared on the way round
	c.hand = start
	return INVALID_FRAME_ID, false
}

type clockReplacer struct {
	hand int
}
