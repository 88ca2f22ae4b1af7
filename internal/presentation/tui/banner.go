package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the weave banner and the workflow title to w.
func PrintBanner(w io.Writer, title string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{` __      _____  __ ___   _____ `, "#818cf8"},
		{` \ \ /\ / / _ \/ _`+"`"+` \ \ / / _ \`, "#a78bfa"},
		{`  \ V  V /  __/ (_| |\ V /  __/`, "#c084fc"},
		{`   \_/\_/ \___|\__,_| \_/ \___|`, "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if title != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, termenv.String("  "+title).Bold())
	}
	fmt.Fprintln(w)
}
