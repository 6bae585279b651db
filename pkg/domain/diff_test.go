package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	inProgress := StatusInProgress
	ended := StatusEnded
	p1, p2 := "p1", "p2"
	one, two := 1, 2

	base := func() *Snapshot {
		return &Snapshot{
			SessionID: "sess-1",
			Status:    StatusInProgress,
			TurnOwner: "p1",
			Turn:      1,
			Events:    []Event{{Type: EventSessionStarted, SessionID: "sess-1"}},
		}
	}

	tests := []struct {
		name     string
		old      *Snapshot
		new      *Snapshot
		wantDiff *SnapshotDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  base(),
			wantDiff: &SnapshotDiff{
				SessionID: "sess-1",
				Status:    &inProgress,
				TurnOwner: &p1,
				Turn:      &one,
				Events:    []Event{{Type: EventSessionStarted, SessionID: "sess-1"}},
			},
		},
		{
			name:     "No Changes",
			old:      base(),
			new:      base(),
			wantDiff: nil,
		},
		{
			name: "Turn Advances",
			old:  base(),
			new: func() *Snapshot {
				s := base()
				s.TurnOwner = "p2"
				s.Turn = 2
				s.Events = append(s.Events, Event{Type: EventActionApplied, PlayerID: "p1"})
				return s
			}(),
			wantDiff: &SnapshotDiff{
				SessionID: "sess-1",
				TurnOwner: &p2,
				Turn:      &two,
				Events:    []Event{{Type: EventActionApplied, PlayerID: "p1"}},
			},
		},
		{
			name: "Session Ends",
			old:  base(),
			new: func() *Snapshot {
				s := base()
				s.Status = StatusEnded
				s.Eliminated = []string{"p2"}
				s.Result = &GameResult{SessionID: "sess-1", Winners: []string{"p1"}}
				return s
			}(),
			wantDiff: &SnapshotDiff{
				SessionID:  "sess-1",
				Status:     &ended,
				Eliminated: []string{"p2"},
				Result:     &GameResult{SessionID: "sess-1", Winners: []string{"p1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			assert.Equal(t, tt.wantDiff, got)
		})
	}
}

func TestDiff_NilNew(t *testing.T) {
	assert.Nil(t, Diff(&Snapshot{SessionID: "x"}, nil))
}

func TestDiff_JSONOmitsUnchangedFields(t *testing.T) {
	old := &Snapshot{SessionID: "s", Status: StatusInProgress, TurnOwner: "a", Turn: 3}
	next := &Snapshot{SessionID: "s", Status: StatusInProgress, TurnOwner: "b", Turn: 3}

	d := Diff(old, next)
	require.NotNil(t, d)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s","turn_owner":"b"}`, string(raw))
}
