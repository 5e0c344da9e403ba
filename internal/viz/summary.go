package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/imdp/internal/storage"
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "converged", "horizon-reached":
		return StatusRunning
	case "max-iterations-exceeded":
		return StatusWarning
	default:
		return StatusFailed
	}
}

// Summary renders the metadata of a stored run as a panel.
func Summary(meta storage.RunMetadata) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(MetricLabel.Render(label))
		b.WriteString(MetricValue.Render(value))
		b.WriteString("\n")
	}

	horizon := "infinite"
	if meta.Horizon > 0 {
		horizon = fmt.Sprintf("%d", meta.Horizon)
	}

	b.WriteString(HeaderStyle.Render(meta.ID))
	b.WriteString("\n")
	line("model", meta.Model)
	line("resolution", meta.Resolution)
	line("horizon", horizon)
	b.WriteString(MetricLabel.Render("status"))
	b.WriteString(statusStyle(meta.Status).Render(meta.Status))
	b.WriteString("\n")
	line("iterations", fmt.Sprintf("%d", meta.Iterations))
	line("residual", fmt.Sprintf("%.3g", meta.Residual))
	line("states", fmt.Sprintf("%d (%d target, %d avoid)", meta.States, meta.Target, meta.Avoid))
	line("inputs", fmt.Sprintf("%d", meta.Inputs))
	line("entries", fmt.Sprintf("%d", meta.Entries))
	if meta.Failures > 0 {
		b.WriteString(MetricLabel.Render("failures"))
		b.WriteString(StatusWarning.Render(fmt.Sprintf("%d vacuous rows", meta.Failures)))
		b.WriteString("\n")
	}
	line("abstraction", meta.Timings.Abstraction.String())
	line("synthesis", meta.Timings.Synthesis.String())
	if meta.Warning != "" {
		b.WriteString(StatusWarning.Render(meta.Warning))
		b.WriteString("\n")
	}

	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
