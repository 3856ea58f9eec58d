package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// FormatMoney formats an amount with comma separators and two decimals.
func FormatMoney(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// FormatQty formats a share count with comma separators.
func FormatQty(n int64) string {
	return humanize.Comma(n)
}

// FormatPrice formats a price, or "-" for zero.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}

// FormatPct formats a percentage with an explicit sign.
func FormatPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// signed renders v with the gain or loss style.
func signed(v float64, s string) string {
	switch {
	case v > 0:
		return gainStyle.Render(s)
	case v < 0:
		return lossStyle.Render(s)
	default:
		return s
	}
}

// fit pads or truncates s to exactly width terminal cells. Wide (CJK)
// characters count as two cells.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "")
	}
	return runewidth.FillRight(s, width)
}

// padOrTrunc fits a possibly styled line to width.
func padOrTrunc(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return ansi.Truncate(s, width, "")
}
