// Package display renders terminal output with raw ANSI escape codes.
//
// Colours respect NO_COLOR (https://no-color.org/) and are disabled when
// stdout is not a terminal. FORCE_COLOR turns them back on.
package display

import (
	"fmt"
	"os"
)

// Style is an ANSI SGR sequence.
type Style string

const (
	reset = "\033[0m"

	StyleBold   Style = "\033[1m"
	StyleDim    Style = "\033[2m"
	StyleGreen  Style = "\033[32m"
	StyleYellow Style = "\033[33m"
	StyleRed    Style = "\033[31m"
	StyleCyan   Style = "\033[36m"
	StyleGray   Style = "\033[90m"
	StyleAccent Style = StyleBold + StyleCyan
)

// enabled reports whether colour output is active. It is set once at init.
var enabled bool

func init() {
	enabled = shouldEnable()
}

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	return isTerminal(os.Stdout)
}

// isTerminal checks for a character device; no cgo or external deps.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// SetEnabled overrides the detected colour state, e.g. for --json.
func SetEnabled(b bool) {
	enabled = b
}

func Enabled() bool {
	return enabled
}

// Paint wraps text in style when colours are enabled.
func Paint(style Style, text string) string {
	if !enabled || style == "" {
		return text
	}
	return string(style) + text + reset
}

func Bold(text string) string   { return Paint(StyleBold, text) }
func Dim(text string) string    { return Paint(StyleDim, text) }
func Green(text string) string  { return Paint(StyleGreen, text) }
func Yellow(text string) string { return Paint(StyleYellow, text) }
func Red(text string) string    { return Paint(StyleRed, text) }
func Cyan(text string) string   { return Paint(StyleCyan, text) }
func Gray(text string) string   { return Paint(StyleGray, text) }

// Accent highlights the next prayer.
func Accent(text string) string { return Paint(StyleAccent, text) }

// Boldf formats and bolds a string.
func Boldf(format string, a ...interface{}) string {
	return Bold(fmt.Sprintf(format, a...))
}
