package transfer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the final state of one target feature after a run.
type Status int

const (
	StatusNoMatch Status = iota
	StatusAmbiguous
	StatusUpdated
	StatusWriteRejected
)

func (s Status) String() string {
	switch s {
	case StatusAmbiguous:
		return "ambiguous"
	case StatusUpdated:
		return "updated"
	case StatusWriteRejected:
		return "write_rejected"
	default:
		return "no_match"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is the log record of one visited target feature.
type Entry struct {
	TargetID   FeatureID
	Resolution Resolution
	Status     Status
}

// Err returns the per-feature warning for skipped or rejected features and
// nil for updated ones.
func (e Entry) Err() error {
	switch e.Status {
	case StatusNoMatch:
		return ErrNoMatch
	case StatusAmbiguous:
		return ErrAmbiguousMatch
	case StatusWriteRejected:
		return ErrWriteRejected
	default:
		return nil
	}
}

type entryJSON struct {
	TargetID FeatureID      `json:"targetId"`
	Status   Status         `json:"status"`
	Match    ResolutionKind `json:"match"`
	SourceID *FeatureID     `json:"sourceId,omitempty"`
	Value    any            `json:"value,omitempty"`
	Count    int            `json:"count,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		TargetID: e.TargetID,
		Status:   e.Status,
		Match:    e.Resolution.Kind,
		Count:    e.Resolution.Count,
	}
	if e.Resolution.Kind == UniqueMatch {
		id := e.Resolution.SourceID
		out.SourceID = &id
		out.Value = e.Resolution.Value
	}
	return json.Marshal(out)
}

// Summary counts entries per status.
type Summary struct {
	Visited       int `json:"visited"`
	Updated       int `json:"updated"`
	NoMatch       int `json:"noMatch"`
	Ambiguous     int `json:"ambiguous"`
	WriteRejected int `json:"writeRejected"`
}

// Result is the append-only log of one run plus the ids that were updated.
type Result struct {
	RunID      string        `json:"runId"`
	Rule       MatchRule     `json:"rule"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Entries    []Entry       `json:"entries"`
	Updated    []FeatureID   `json:"updated"`
	SourceSize int           `json:"sourceSize"`
}

func newResult(rule MatchRule) *Result {
	return &Result{
		RunID:     uuid.NewString(),
		Rule:      rule,
		StartedAt: time.Now(),
		Entries:   []Entry{},
		Updated:   []FeatureID{},
	}
}

func (r *Result) append(entry Entry) {
	r.Entries = append(r.Entries, entry)
	if entry.Status == StatusUpdated {
		r.Updated = append(r.Updated, entry.TargetID)
	}
}

// UpdatedCount returns the number of features written during the run.
func (r *Result) UpdatedCount() int {
	return len(r.Updated)
}

// Summary tallies the log.
func (r *Result) Summary() Summary {
	s := Summary{Visited: len(r.Entries)}
	for _, entry := range r.Entries {
		switch entry.Status {
		case StatusUpdated:
			s.Updated++
		case StatusNoMatch:
			s.NoMatch++
		case StatusAmbiguous:
			s.Ambiguous++
		case StatusWriteRejected:
			s.WriteRejected++
		}
	}
	return s
}
