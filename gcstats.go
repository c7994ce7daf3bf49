package gcheap

import "time"

// maxPauseHistory bounds the pause history kept for ReadGCStats.
const maxPauseHistory = 16

// GCStats collects information about recent garbage collections.
type GCStats struct {
	LastGC     time.Time       // time of last collection
	NumGC      int64           // number of garbage collections
	PauseTotal time.Duration   // total pause for all collections
	Pause      []time.Duration // pause history, most recent first
}

// ReadGCStats reads statistics about garbage collection into stats. The
// pause history holds at most the last 16 cycles.
func (h *Heap) ReadGCStats(stats *GCStats) {
	stats.LastGC = h.lastGC
	stats.NumGC = h.numGC
	stats.PauseTotal = h.pauseTotal
	stats.Pause = append(stats.Pause[:0], h.pauses...)
}

func (h *Heap) recordPause(pause time.Duration) {
	if len(h.pauses) < maxPauseHistory {
		h.pauses = append(h.pauses, 0)
	}
	copy(h.pauses[1:], h.pauses)
	h.pauses[0] = pause
}
