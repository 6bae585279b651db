package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"   ____            _           ", "#818cf8"},
	{"  / ___| ___ _ __ (_)_   _ ___ ", "#a78bfa"},
	{" | |  _ / _ \\ '_ \\| | | | / __|", "#c084fc"},
	{" | |_| |  __/ | | | | |_| \\__ \\", "#e879f9"},
	{"  \\____|\\___|_| |_|_|\\__,_|___/", "#f472b6"},
}

// PrintBanner writes the genius banner to w, colored when w's profile
// supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w, out.String("  session orchestration "+version).Faint())
	fmt.Fprintln(w)
}
