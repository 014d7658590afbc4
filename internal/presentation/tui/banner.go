package tui

import (
	"fmt"
	"io"
)

// PrintBanner writes the statebridge banner to w.
func PrintBanner(w io.Writer) {
	p := Profile(w)
	lines := []struct {
		text  string
		color string
	}{
		{"     _        _       _          _     _", "#818cf8"},
		{" ___| |_ __ _| |_ ___| |__  _ __(_) __| | __ _  ___", "#a78bfa"},
		{"/ __| __/ _` | __/ _ \\ '_ \\| '__| |/ _` |/ _` |/ _ \\", "#c084fc"},
		{"\\__ \\ || (_| | ||  __/ |_) | |  | | (_| | (_| |  __/", "#e879f9"},
		{"|___/\\__\\__,_|\\__\\___|_.__/|_|  |_|\\__,_|\\__, |\\___|", "#f472b6"},
		{"                                         |___/", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
