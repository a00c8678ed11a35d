package cache

// Metrics accumulates cache lookup statistics. Counters only ever grow;
// Clear and Invalidate do not reset them.
type Metrics struct {
	Hits   uint64
	Misses uint64
}

// HitRate returns hits / (hits + misses), computed from the current counters
// on every call. It is 0.0 before the first lookup, never NaN.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}
