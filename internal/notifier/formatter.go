package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"FiftySentinel/internal/model"
)

// FormatReport renders a batch report as plain text for the console.
func FormatReport(r *model.Report) string {
	return formatReport(r, false)
}

// FormatTelegramReport renders a batch report as a Telegram HTML message.
func FormatTelegramReport(r *model.Report) string {
	return formatReport(r, true)
}

func formatReport(r *model.Report, rich bool) string {
	bold := func(s string) string { return s }
	esc := func(s string) string { return s }
	if rich {
		bold = func(s string) string { return "<b>" + html.EscapeString(s) + "</b>" }
		esc = html.EscapeString
	}

	var b strings.Builder
	title := "Fifty-percent rule scan"
	if rich {
		title = "📊 " + bold(title)
	}
	b.WriteString(fmt.Sprintf("%s | %s\n", title, r.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Run: %s | Tickers: %d | Took: %s\n",
		esc(shortID(r.RunID)), r.Tickers, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))

	signalGrans := r.GranularitiesFor(model.VariantSignal)
	if len(signalGrans) > 0 {
		b.WriteString("\n")
		for _, g := range signalGrans {
			syms := r.Signals[g]
			b.WriteString(fmt.Sprintf("%s (%d)\n", bold("Signals "+g.String()), len(syms)))
			b.WriteString("  " + esc(joinOrDash(syms)) + "\n")
		}
		if len(signalGrans) > 1 {
			b.WriteString(fmt.Sprintf("%s (%d)\n", bold("Signals "+joinGrans(signalGrans)), len(r.SignalIntersection)))
			b.WriteString("  " + esc(joinOrDash(r.SignalIntersection)) + "\n")
		}
	}

	dirGrans := r.GranularitiesFor(model.VariantDirection)
	if len(dirGrans) > 0 {
		b.WriteString("\n")
		for _, g := range dirGrans {
			dirs := r.Directions[g]
			b.WriteString(fmt.Sprintf("%s (%d)\n", bold("Directions "+g.String()), len(dirs)))
			b.WriteString("  " + esc(joinOrDash(directionPairs(dirs))) + "\n")
		}
		if len(dirGrans) > 1 {
			b.WriteString(fmt.Sprintf("%s (%d)\n", bold("Directions "+joinGrans(dirGrans)), len(r.DirectionIntersection)))
			b.WriteString("  " + esc(joinOrDash(r.DirectionIntersection)) + "\n")
		}
	}

	if len(r.Failed) > 0 {
		label := "Unavailable"
		if rich {
			label = "⚠️ " + bold(label)
		}
		b.WriteString(fmt.Sprintf("\n%s (%d): %s\n", label, len(r.Failed), esc(strings.Join(r.Failed, ", "))))
	}
	return b.String()
}

func directionPairs(dirs map[string]model.Direction) []string {
	pairs := make([]string, 0, len(dirs))
	for sym, d := range dirs {
		pairs = append(pairs, sym+" - "+string(d))
	}
	sort.Strings(pairs)
	return pairs
}

func joinGrans(grans []model.Granularity) string {
	names := make([]string, len(grans))
	for i, g := range grans {
		names[i] = g.String()
	}
	return strings.Join(names, " & ")
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
