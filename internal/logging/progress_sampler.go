package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs on large batches while
// keeping the first update of every bucket and the final 100%.
type ProgressSampler struct {
	bucketSize int
	lastBatch  string
	lastBucket int
	done       bool
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// a bucket boundary (default 10%) or when a new batch starts.
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress update for batchID should be logged.
// A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent int, batchID string) bool {
	if s == nil {
		return true
	}
	batchID = strings.TrimSpace(batchID)
	if batchID != s.lastBatch {
		s.lastBatch = batchID
		s.lastBucket = -1
		s.done = false
	}
	if percent < 0 || s.done {
		return false
	}
	if percent >= 100 {
		s.done = true
		return true
	}
	if bucket := percent / s.bucketSize; bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBatch = ""
	s.lastBucket = -1
	s.done = false
}
