package prayer

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Display modes accepted by FormatOutput.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatCountdown          = "countdown"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
)

// Formats lists the built-in display modes, for help text and validation.
var Formats = []string{
	FormatTimeRemaining, FormatCountdown, FormatNextPrayerTime, FormatNameAndTime,
	FormatNameAndRemaining, FormatShortNameAndTime, FormatShortNameAndRemain, FormatFull,
}

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // "Asr"
	ShortName string // "A"
	Time      string // "15:02" or "3:02 PM"
	Remaining string // "2h 15m"
	Countdown string // "2:15:00"
	Hours     int
	Minutes   int
}

// FormatOutput renders p according to mode. timeFormat is a Go layout such
// as "15:04" or "3:04 PM". A mode containing "{{" is executed as a Go
// template over FormatData, e.g. "{{.Name}} in {{.Remaining}}".
func FormatOutput(p Prayer, now time.Time, mode string, timeFormat string) string {
	d := TimeRemaining(p, now)
	data := FormatData{
		Name:      p.Name,
		ShortName: ShortNames[p.Name],
		Time:      p.Time.Format(timeFormat),
		Remaining: FormatRemaining(d),
		Countdown: FormatClock(d),
		Hours:     int(d.Hours()),
		Minutes:   int(d.Minutes()) % 60,
	}

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, data)
	}

	switch mode {
	case FormatTimeRemaining:
		return data.Remaining
	case FormatCountdown:
		return data.Countdown
	case FormatNextPrayerTime:
		return data.Time
	case FormatNameAndRemaining:
		return data.Name + " " + data.Remaining
	case FormatShortNameAndTime:
		return data.ShortName + " " + data.Time
	case FormatShortNameAndRemain:
		return data.ShortName + " " + data.Remaining
	case FormatFull:
		return fmt.Sprintf("%s %s (%s)", data.Name, data.Time, data.Remaining)
	default:
		return data.Name + " " + data.Time
	}
}

func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}
	return sb.String()
}
