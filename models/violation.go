package models

import (
	"slices"
	"strings"
	"time"
)

// ViolationRecord is the automod history of one user in one guild.
type ViolationRecord struct {
	StrikeTimestamps []int64  `json:"strike_timestamps"` // unix seconds, classifier strikes only
	WarnedTerms      []string `json:"warned_terms"`      // lower-cased banned terms already warned for
}

// PruneStrikes drops strikes older than cutoff and returns how many remain.
func (r *ViolationRecord) PruneStrikes(cutoff time.Time) int {
	c := cutoff.Unix()
	kept := r.StrikeTimestamps[:0]
	for _, ts := range r.StrikeTimestamps {
		if ts >= c {
			kept = append(kept, ts)
		}
	}
	r.StrikeTimestamps = kept
	return len(kept)
}

// AddStrike appends a strike at now.
func (r *ViolationRecord) AddStrike(now time.Time) {
	r.StrikeTimestamps = append(r.StrikeTimestamps, now.Unix())
}

// HasWarned reports whether the user was already warned for term.
func (r *ViolationRecord) HasWarned(term string) bool {
	return slices.Contains(r.WarnedTerms, strings.ToLower(term))
}

// MarkWarned records term as warned. It returns false if it already was.
func (r *ViolationRecord) MarkWarned(term string) bool {
	t := strings.ToLower(term)
	if slices.Contains(r.WarnedTerms, t) {
		return false
	}
	r.WarnedTerms = append(r.WarnedTerms, t)
	return true
}

// Clone returns a deep copy of the record.
func (r ViolationRecord) Clone() ViolationRecord {
	return ViolationRecord{
		StrikeTimestamps: slices.Clone(r.StrikeTimestamps),
		WarnedTerms:      slices.Clone(r.WarnedTerms),
	}
}
