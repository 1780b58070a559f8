package deploy

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bigcalc/bigcalc/internal/deploy"
	"github.com/bigcalc/bigcalc/internal/ui"
)

// FormatReport renders one row per step.
func FormatReport(r *deploy.Report) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Step", "Status", "Duration", "Detail"})

	for _, s := range r.Steps {
		detail := s.Detail
		if s.Error != "" {
			detail = s.Error
		}
		t.AppendRow(table.Row{s.Name, formatStatus(s.Status), formatDuration(s), detail})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignCenter},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignLeft, WidthMax: 60},
	})

	return t.Render()
}

func formatStatus(s deploy.Status) string {
	switch s {
	case deploy.StatusSucceeded:
		return ui.RenderSuccess(string(s))
	case deploy.StatusFailed:
		return ui.RenderError(string(s))
	case deploy.StatusCanceled:
		return ui.RenderWarning(string(s))
	}
	return ui.RenderDim(string(s))
}

func formatDuration(s deploy.StepResult) string {
	if s.Status == deploy.StatusSkipped {
		return "-"
	}
	return s.Duration.Round(time.Millisecond).String()
}
