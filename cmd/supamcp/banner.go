package main

import (
	"fmt"
	"io"

	"golang.org/x/term"
)

// isTTY returns true if the given file descriptor is a terminal.
func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// printBanner prints the supamcp ASCII art banner. When useColor is true,
// ANSI escape codes are used for a green/cyan gradient.
func printBanner(w io.Writer, useColor bool) {
	// ASCII art lines for "supamcp"
	lines := []string{
		`                                                 `,
		`  ___ _   _ _ __   __ _ _ __ ___   ___ _ __     `,
		` / __| | | | '_ \ / _' | '_ ' _ \ / __| '_ \   `,
		` \__ \ |_| | |_) | (_| | | | | | | (__| |_) |  `,
		` |___/\__,_| .__/ \__,_|_| |_| |_|\___| .__/   `,
		`           |_|                        |_|      `,
		`                                                 `,
	}

	if useColor {
		// Bold + Green → Cyan gradient
		colors := []string{
			"\033[1;32m", // bold green
			"\033[1;32m", // bold green
			"\033[1;92m", // bold bright green
			"\033[1;36m", // bold cyan
			"\033[1;96m", // bold bright cyan
			"\033[1;96m", // bold bright cyan
			"\033[0m",    // reset (blank line)
		}
		for i, line := range lines {
			color := colors[i%len(colors)]
			fmt.Fprintf(w, "%s%s\033[0m\n", color, line)
		}
	} else {
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}
}
