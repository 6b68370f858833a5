package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Tier buckets a row's share of total time. It only affects presentation.
type Tier int

const (
	// TierLow is a share below 5%.
	TierLow Tier = iota
	// TierMedium is a share from 5% to 10% inclusive.
	TierMedium
	// TierHigh is a share above 10%.
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "low"
	}
}

// TierFor partitions share into [0, 0.05), [0.05, 0.10] and (0.10, ...).
func TierFor(share float64) Tier {
	switch {
	case share > 0.10:
		return TierHigh
	case share >= 0.05:
		return TierMedium
	default:
		return TierLow
	}
}

type styles struct {
	header   lipgloss.Style
	rank     lipgloss.Style
	sep      lipgloss.Style
	marker   lipgloss.Style
	project  lipgloss.Style
	home     lipgloss.Style
	external lipgloss.Style
	failed   lipgloss.Style
	duration lipgloss.Style
	tiers    [3]lipgloss.Style
}

// newStyles builds styles on a private renderer with a fixed color profile,
// so rendering never depends on the terminal the process happens to run in.
func newStyles(styled bool) styles {
	r := lipgloss.NewRenderer(io.Discard)
	if styled {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		header:   r.NewStyle().Bold(true),
		rank:     r.NewStyle().Faint(true),
		sep:      r.NewStyle().Faint(true).Foreground(lipgloss.Color("8")),
		marker:   r.NewStyle().Faint(true),
		project:  r.NewStyle().Foreground(lipgloss.Color("6")),
		home:     r.NewStyle(),
		external: r.NewStyle().Foreground(lipgloss.Color("1")),
		failed:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		duration: r.NewStyle().Bold(true),
		tiers: [3]lipgloss.Style{
			TierLow:    r.NewStyle().Foreground(lipgloss.Color("2")),
			TierMedium: r.NewStyle().Foreground(lipgloss.Color("3")),
			TierHigh:   r.NewStyle().Foreground(lipgloss.Color("1")),
		},
	}
}

// Width returns the display width of s with styling stripped.
func Width(s string) int {
	return lipgloss.Width(s)
}
