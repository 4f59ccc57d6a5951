package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/seamline/internal/gate"
	"github.com/roach88/seamline/internal/model"
	"github.com/roach88/seamline/internal/projection"
)

const barWidth = 20

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	nodeNameStyle  = lipgloss.NewStyle().Width(10)
	qtyStyle       = lipgloss.NewStyle().Width(7).Align(lipgloss.Right)
	percentStyle   = lipgloss.NewStyle().Width(5).Align(lipgloss.Right)
	doneBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	activeBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	emptyBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	blockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	noteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
)

// RenderProgress draws the progress board of one order.
func RenderProgress(p projection.Progress) string {
	var lines []string

	header := fmt.Sprintf("%s (%s)  %s  %d%%", p.OrderID, p.OrderNo, p.Status, p.Percent)
	if p.CurrentNode != "" {
		header += "  at " + p.CurrentNode
	}
	lines = append(lines, titleStyle.Render(header))
	if p.ComputedPercent != p.Percent {
		lines = append(lines, noteStyle.Render(fmt.Sprintf("computed from scans: %d%%", p.ComputedPercent)))
	}

	for i, n := range p.Nodes {
		marker := "  "
		if i == p.CurrentNodeIndex && p.CurrentNode != "" {
			marker = "> "
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			marker,
			nodeNameStyle.Render(n.Node),
			renderBar(n.Percent),
			percentStyle.Render(fmt.Sprintf("%d%%", n.Percent)),
			qtyStyle.Render(fmt.Sprintf("%d", n.CompletedQty)),
			noteStyle.Render(nodeNote(n)),
		)
		lines = append(lines, row)
	}

	if len(p.ParentCompletedAt) > 0 {
		parents := make([]string, 0, len(p.ParentCompletedAt))
		for name := range p.ParentCompletedAt {
			parents = append(parents, name)
		}
		sort.Strings(parents)
		for _, name := range parents {
			lines = append(lines, fmt.Sprintf("  %s done %s", name, p.ParentCompletedAt[name].Format(time.DateTime)))
		}
	}

	if repairs := blockedRepairs(p.Repairs); len(repairs) > 0 {
		lines = append(lines, titleStyle.Render("Rework"))
		for _, r := range repairs {
			lines = append(lines, blockedStyle.Render(fmt.Sprintf(
				"  %s  pool %d  repaired %d  remaining %d", r.BundleID, r.RepairPool, r.RepairedOut, r.Remaining)))
		}
	}

	lines = append(lines, renderClose(p.Close))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderSummary draws one line per order.
func RenderSummary(progress []projection.Progress) string {
	if len(progress) == 0 {
		return "No open orders."
	}
	lines := make([]string, 0, len(progress))
	for _, p := range progress {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			nodeNameStyle.Render(p.OrderID),
			renderBar(p.Percent),
			percentStyle.Render(fmt.Sprintf("%d%%", p.Percent)),
			"  ",
			p.CurrentNode,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderBar(percent int) string {
	filled := percent * barWidth / 100
	style := activeBarStyle
	if percent >= 100 {
		style = doneBarStyle
	}
	return " " + style.Render(strings.Repeat("█", filled)) +
		emptyBarStyle.Render(strings.Repeat("░", barWidth-filled))
}

func nodeNote(n model.NodeStats) string {
	var notes []string
	if n.FromProcurement {
		notes = append(notes, "from arrivals")
	}
	if n.DivisorEstimated && n.MatchedEvents > 0 {
		notes = append(notes, fmt.Sprintf("~%d sub-processes observed", n.SubProcesses))
	}
	if len(notes) == 0 {
		return ""
	}
	return "  " + strings.Join(notes, ", ")
}

func blockedRepairs(repairs []model.RepairStats) []model.RepairStats {
	var out []model.RepairStats
	for _, r := range repairs {
		if r.RepairPool > 0 {
			out = append(out, r)
		}
	}
	return out
}

func renderClose(d gate.Decision) string {
	switch {
	case d.CanClose:
		return okStyle.Render(fmt.Sprintf("Can close: %d of %d required qualified", d.Actual, d.Required))
	case d.Reason == gate.ReasonAlreadyClosed:
		return okStyle.Render("Closed")
	default:
		return noteStyle.Render(fmt.Sprintf("Cannot close (%s): %d of %d required, %d missing",
			d.Reason, d.Actual, d.Required, d.Missing))
	}
}
