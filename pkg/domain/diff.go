package domain

import "slices"

// SnapshotDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Status    *Status `json:"status,omitempty"`
	TurnOwner *string `json:"turn_owner,omitempty"`
	Turn      *int    `json:"turn,omitempty"`

	// Eliminated lists players removed from the rotation since the old snapshot.
	Eliminated []string `json:"eliminated,omitempty"`

	// Events contains only the log entries appended since the old snapshot.
	Events []Event `json:"events,omitempty"`

	// Result is set once, on the transition to StatusEnded.
	Result *GameResult `json:"result,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{
		SessionID: newSnap.SessionID,
	}

	if oldSnap == nil || oldSnap.Status != newSnap.Status {
		status := newSnap.Status
		diff.Status = &status
	}
	if oldSnap == nil || oldSnap.TurnOwner != newSnap.TurnOwner {
		owner := newSnap.TurnOwner
		diff.TurnOwner = &owner
	}
	if oldSnap == nil || oldSnap.Turn != newSnap.Turn {
		turn := newSnap.Turn
		diff.Turn = &turn
	}

	diff.Eliminated = newlyEliminated(oldSnap, newSnap)
	diff.Events = diffAppended(oldSnap, newSnap, func(s *Snapshot) []Event { return s.Events })

	if newSnap.Result != nil && (oldSnap == nil || oldSnap.Result == nil) {
		diff.Result = newSnap.Result.Clone()
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// newlyEliminated lists players eliminated in newSnap but not in oldSnap.
// The list follows seat order, so it is compared as a set.
func newlyEliminated(oldSnap, newSnap *Snapshot) []string {
	var out []string
	for _, id := range newSnap.Eliminated {
		if oldSnap == nil || !slices.Contains(oldSnap.Eliminated, id) {
			out = append(out, id)
		}
	}
	return out
}

// diffAppended assumes an append-only slice, which holds for the event log.
func diffAppended[T any](oldSnap, newSnap *Snapshot, field func(*Snapshot) []T) []T {
	newItems := field(newSnap)
	if oldSnap == nil {
		if len(newItems) == 0 {
			return nil
		}
		return append([]T(nil), newItems...)
	}
	oldLen := len(field(oldSnap))
	if len(newItems) > oldLen {
		return append([]T(nil), newItems[oldLen:]...)
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Status == nil &&
		d.TurnOwner == nil &&
		d.Turn == nil &&
		len(d.Eliminated) == 0 &&
		len(d.Events) == 0 &&
		d.Result == nil
}
