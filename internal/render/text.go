package render

import (
	"fmt"
	"strings"

	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorRed    = lipgloss.Color("#D14D41")
	colorGreen  = lipgloss.Color("#879A39")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle = lipgloss.NewStyle().Width(16)
	totalStyle = lipgloss.NewStyle().Bold(true)
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

func statusStyle(s storage.BillStatus) lipgloss.Style {
	if s == storage.StatusPaid {
		return lipgloss.NewStyle().Foreground(colorGreen)
	}
	return lipgloss.NewStyle().Foreground(colorRed)
}

// Card renders a bill as a bordered terminal card.
func Card(b *storage.Bill) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Electricity Bill " + b.ID))
	sb.WriteString("\n")

	line := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	line("Consumer", b.HouseholdName)
	line("Service No.", b.ServiceNumber)
	line("Bill date", b.CreatedAt.Format(dateLayout))
	line("Due date", b.DueDate.Format(dateLayout))
	line("Status", statusStyle(b.Status).Render(string(b.Status)))
	sb.WriteString("\n")

	sb.WriteString(Breakdown(b.Breakdown, b.MinimumChargeApplied, b.CurrentCharge.StringFixed(2)))
	sb.WriteString("\n")
	line("Units", b.Units.String())
	line("Current charge", b.CurrentCharge.StringFixed(2))
	line("Fine", b.FineAmount.StringFixed(2))
	line("Previous dues", b.PreviousDues.StringFixed(2))
	sb.WriteString(totalStyle.Render(labelStyle.Render("Total") + b.TotalAmount.StringFixed(2)))

	return cardStyle.Render(sb.String())
}

// Breakdown renders slab lines as aligned columns.
func Breakdown(lines []tariff.SlabCharge, minimumApplied bool, amount string) string {
	if len(lines) == 0 {
		if minimumApplied {
			return fmt.Sprintf("%-10s %34s\n", "Minimum charge", amount)
		}
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-10s %8s %8s %12s\n", "Slab", "Units", "Rate", "Amount"))
	for _, l := range lines {
		sb.WriteString(fmt.Sprintf("%-10s %8s %8s %12s\n",
			l.Label, l.Units.String(), l.Rate.StringFixed(2), l.Amount.StringFixed(2)))
	}
	return sb.String()
}

// BillTable renders a compact list of bills, one per row.
func BillTable(bills []storage.Bill) string {
	if len(bills) == 0 {
		return "No bills found.\n"
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%-36s  %-10s  %-11s  %10s  %-6s", "ID", "Service", "Date", "Total", "Status")))
	sb.WriteString("\n")
	for _, b := range bills {
		sb.WriteString(fmt.Sprintf("%-36s  %-10s  %-11s  %10s  %s\n",
			b.ID, b.ServiceNumber, b.CreatedAt.Format(dateLayout), b.TotalAmount.StringFixed(2),
			statusStyle(b.Status).Render(string(b.Status))))
	}
	return sb.String()
}
