package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// It falls back to the raw text when no renderer can be built.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// GamesTable renders the catalog as a markdown table.
func GamesTable(defs []games.Definition) string {
	var b strings.Builder
	b.WriteString("| Game | Category | Players | Turn timeout | Description |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "| `%s` | %s | %d-%d | %s | %s |\n",
			d.Type, d.Category, d.Defaults.MinPlayers, d.Defaults.MaxPlayers, d.Defaults.TurnTimeout, d.Description)
	}
	return b.String()
}

// ResultsTable renders finished games as a markdown table.
func ResultsTable(results []domain.GameResult) string {
	if len(results) == 0 {
		return "_No results yet._\n"
	}
	var b strings.Builder
	b.WriteString("| Session | Game | Winners | Turns | Duration | Outcome |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range results {
		winners := strings.Join(r.Winners, ", ")
		if winners == "" {
			winners = "-"
		}
		outcome := r.Outcome
		if r.Error != nil {
			outcome = fmt.Sprintf("%s (%s)", outcome, r.Error.Kind)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s |\n",
			shortID(r.SessionID), r.GameType, winners, r.TotalTurns, r.Duration.Round(time.Millisecond), outcome)
	}
	return b.String()
}

// Scoreboard renders the final scores of one result, best first.
func Scoreboard(r *domain.GameResult) string {
	if r == nil || len(r.FinalScores) == 0 {
		return ""
	}
	ids := slices.Sorted(maps.Keys(r.FinalScores))
	slices.SortStableFunc(ids, func(a, b string) int {
		return r.FinalScores[b] - r.FinalScores[a]
	})
	var b strings.Builder
	b.WriteString("| Player | Score |\n|---|---|\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "| %s | %d |\n", id, r.FinalScores[id])
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
