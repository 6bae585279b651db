package genius

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

// Runner plays a session from a terminal-like frontend. One human seat reads
// its actions from Input; every other seat is advanced by the engine.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms text before it is written to Output, e.g. to
// render markdown as ANSI.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run drives sessionID until it ends, reading actions for humanID. Lines
// have the form "<action> [key=value ...]"; "quit" or end of input stops
// the loop without ending the session.
func (r *Runner) Run(ctx context.Context, engine *Engine, sessionID, humanID string) (*domain.GameResult, error) {
	if r.Input == nil {
		return nil, errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return nil, errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewScanner(r.Input)

	lastTurn := -1
	for {
		snap, err := engine.GetState(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if snap.Status == domain.StatusEnded {
			r.print(renderResult(snap.Result))
			return snap.Result, nil
		}
		if snap.Status == domain.StatusNotStarted {
			return nil, domain.GameNotStarted()
		}

		if snap.TurnOwner != humanID {
			out, err := engine.Advance(ctx, sessionID)
			if err != nil && !settled(err) {
				return nil, err
			}
			if out.Waiting {
				// Another human holds the turn; its deadline is the next event.
				if err := sleepUntil(ctx, snap.Deadline); err != nil {
					return nil, err
				}
			}
			continue
		}

		if snap.Turn != lastTurn && !r.Headless {
			r.print(renderTurn(snap))
		}
		lastTurn = snap.Turn

		fmt.Fprint(r.Output, "> ")
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return nil, domain.IoError(err)
			}
			return nil, nil
		}
		line := strings.TrimSpace(lines.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil, nil
		}

		action := parseAction(humanID, line)
		if _, err := engine.SubmitAction(ctx, sessionID, action); err != nil {
			switch domain.KindOf(err) {
			case domain.KindInvalidAction, domain.KindPlayerNotFound:
			default:
				return nil, err
			}
			fmt.Fprintf(r.Output, "rejected: %v\n", err)
		}
	}
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	timer := time.NewTimer(max(time.Until(deadline), 0) + time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.IoError(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (r *Runner) print(text string) {
	if r.Renderer != nil {
		if rendered, err := r.Renderer(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(r.Output, text)
}

// parseAction reads "<type> [key=value ...]". Bare words after the type are
// collected under "args".
func parseAction(playerID, line string) domain.PlayerAction {
	fields := strings.Fields(line)
	payload := map[string]any{}
	var args []string
	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok && k != "" {
			payload[k] = v
			continue
		}
		args = append(args, f)
	}
	if len(args) > 0 {
		payload["args"] = args
	}
	if len(payload) == 0 {
		payload = nil
	}
	return domain.NewAction(playerID, fields[0], payload)
}

func renderTurn(snap domain.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s, turn %d\n\n", snap.GameType, snap.Turn)
	if !snap.Deadline.IsZero() {
		fmt.Fprintf(&b, "Act before %s.\n\n", snap.Deadline.Format("15:04:05"))
	}
	b.WriteString("Valid actions:\n\n")
	for _, a := range snap.Valid {
		fmt.Fprintf(&b, "- `%s`\n", a)
	}
	return b.String()
}

func renderResult(res *domain.GameResult) string {
	if res == nil {
		return "## Game over"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Game over: %s\n\n", res.Outcome)
	if len(res.Winners) > 0 {
		fmt.Fprintf(&b, "Winners: %s\n\n", strings.Join(res.Winners, ", "))
	}
	for _, id := range slices.Sorted(maps.Keys(res.FinalScores)) {
		fmt.Fprintf(&b, "- %s: %d\n", id, res.FinalScores[id])
	}
	return b.String()
}

// settled reports errors that only mean the session moved on meanwhile.
func settled(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindGameAlreadyEnded, domain.KindInvalidState:
		return true
	}
	return false
}
