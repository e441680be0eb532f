package render

import (
	"fmt"
	"strings"

	"tokensight/internal/domain"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSummary renders a backtest summary as aligned label/value lines. The
// rendering is driven entirely by the field format tags; it never inspects
// labels to decide how a value prints.
func FormatSummary(s domain.Summary) string {
	fields := s.Fields()

	width := 0
	for _, f := range fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%-*s  %s\n", width, f.Label, formatField(f))
	}
	return b.String()
}

func formatField(f domain.SummaryField) string {
	switch f.Format {
	case domain.FormatPercent:
		return fmt.Sprintf("%.2f%%", f.Value*100)
	default:
		if f.Value == float64(int64(f.Value)) {
			return FormatInt(int(f.Value))
		}
		return fmt.Sprintf("%.2f", f.Value)
	}
}

// FormatParams renders a tuned parameter set on one line.
func FormatParams(p domain.ParameterSet) string {
	return fmt.Sprintf("window=%d buy=%.2f sell=%.2f", p.Window, p.BuyThreshold, p.SellThreshold)
}

// FormatTuning renders the grid-search outcome: winning parameters plus the
// cumulative return they achieved.
func FormatTuning(t domain.TuningResult) string {
	return fmt.Sprintf("%s  final=%.4fx", FormatParams(t.Best), t.BestCumulative)
}
