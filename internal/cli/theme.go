package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catppuccin Mocha subset.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
)

const (
	colorAccent  = colorPink
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtext0).Width(22)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	okStyle      = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	errStyle     = lipgloss.NewStyle().Foreground(colorError)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	pendingBadge = warnStyle.Render("pending")
	syncedBadge  = okStyle.Render("synced")
)

var printer = message.NewPrinter(language.English)

// formatAmount renders d with thousands separators and two decimals.
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}
	n := decimal.RequireFromString(whole).IntPart()
	return sign + printer.Sprintf("%d", n) + "." + frac
}

func formatCount(n int) string { return printer.Sprintf("%d", n) }

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func badge(pending bool) string {
	if pending {
		return pendingBadge
	}
	return syncedBadge
}
