package route

import (
	"sort"

	"github.com/bbalwant/smart-tracking-system/internal/track"
)

// Store is the single authority for a package's merged route history and
// current position. It accepts samples from the one-time historical fetch
// and from the live stream in any order and keeps the history sorted by
// timestamp with duplicates discarded.
//
// Store does no locking; callers must serialize Merge calls (the session
// actor owns one Store and is its only writer).
type Store struct {
	thresholdDeg float64
	history      []track.LocationSample
	current      track.LocationSample
	hasCurrent   bool
}

func NewStore(thresholdDeg float64) *Store {
	if thresholdDeg <= 0 {
		thresholdDeg = track.DefaultDuplicateThresholdDeg
	}
	return &Store{thresholdDeg: thresholdDeg}
}

// Merge folds one sample into the history. Duplicates are discarded
// silently; that is steady-state behavior, not a fault. Returns true when
// the sample was inserted.
func (s *Store) Merge(sample track.LocationSample) bool {
	for _, existing := range s.history {
		if existing.SameEvent(sample, s.thresholdDeg) {
			return false
		}
	}

	s.history = append(s.history, sample)
	sort.SliceStable(s.history, func(i, j int) bool {
		return s.history[i].Timestamp.Before(s.history[j].Timestamp)
	})

	s.current = s.history[len(s.history)-1]
	s.hasCurrent = true
	return true
}

// MergeAll merges a batch in order and returns how many samples were
// inserted.
func (s *Store) MergeAll(samples []track.LocationSample) int {
	inserted := 0
	for _, sample := range samples {
		if s.Merge(sample) {
			inserted++
		}
	}
	return inserted
}

// History returns a copy of the merged history in timestamp order.
func (s *Store) History() []track.LocationSample {
	out := make([]track.LocationSample, len(s.history))
	copy(out, s.history)
	return out
}

// Current returns the chronologically last accepted sample.
func (s *Store) Current() (track.LocationSample, bool) {
	return s.current, s.hasCurrent
}

func (s *Store) Len() int {
	return len(s.history)
}

func (s *Store) ThresholdDeg() float64 {
	return s.thresholdDeg
}
