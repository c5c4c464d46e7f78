package explain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tablewise/salesight/internal/model"
)

var printer = message.NewPrinter(language.English)

// summarize renders a one-paragraph plain-language reading of an
// attribution: direction and size of the predicted change, then the
// strongest drivers in each direction.
func summarize(a *model.Attribution) string {
	direction := "rise"
	if a.Prediction < 0 {
		direction = "fall"
	}

	var up, down []string
	for _, c := range a.Contributions {
		entry := printer.Sprintf("%s (%+.1f)", c.Feature, c.Impact)
		if c.Impact >= 0 {
			if len(up) < 3 {
				up = append(up, entry)
			}
		} else if len(down) < 3 {
			down = append(down, entry)
		}
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf("Sales for %s are predicted to %s by %.1f on %s.",
		a.EntityID, direction, abs(a.Prediction), a.Date.Format("2006-01-02")))
	if len(up) > 0 {
		b.WriteString(printer.Sprintf(" Pushing up: %s.", strings.Join(up, ", ")))
	}
	if len(down) > 0 {
		b.WriteString(printer.Sprintf(" Pushing down: %s.", strings.Join(down, ", ")))
	}
	return b.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
