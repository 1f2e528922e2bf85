package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner shown when an interactive run
// starts. Colors fade from arcane purple to ember, degrading gracefully on
// terminals with narrow color support.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`                _                    _          `, "#818cf8"},
		{`   __ _  _ __  (_) _ __ ___    ___  (_) _ __  ___ `, "#a78bfa"},
		{`  / _' || '__| | || '_ ' _ \  / _ \ | || '__|/ _ \`, "#c084fc"},
		{` | (_| || |    | || | | | | || (_) || || |  |  __/`, "#e879f9"},
		{`  \__, ||_|    |_||_| |_| |_| \___/ |_||_|   \___|`, "#f472b6"},
		{`  |___/                                           `, "#fb7185"},
	}

	fmt.Println()
	for _, line := range lines {
		fmt.Println(termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Println()
}
