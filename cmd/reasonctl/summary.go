package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"

	"deepreason/internal/domain"
)

// renderSummary prints the workflow result table, a markdown verdict
// summary and humanized cost/time figures, per spec §6's CLI contract.
func renderSummary(resp domain.DeepReasoningResponse) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"FIELD", "VALUE"})
	t.AppendRow(table.Row{"success", resp.Success})
	t.AppendRow(table.Row{"path", resp.ReasoningDecision.Path})
	t.AppendRow(table.Row{"strategy", strategyLabel(resp.WorkflowResult.Metadata)})
	t.AppendRow(table.Row{"final_state", resp.WorkflowResult.FinalState})
	t.AppendRow(table.Row{"reflection_verdict", resp.ReflectionVerdict})
	t.AppendRow(table.Row{"commit_sha", resp.CommitSHA})
	t.AppendRow(table.Row{"changes", len(resp.WorkflowResult.Changes)})
	t.AppendRow(table.Row{"cost", humanizeUSD(resp.CostUSD)})
	t.AppendRow(table.Row{"time", humanizeDuration(resp.ExecutionTimeMS)})
	fmt.Println(t.Render())

	md := summaryMarkdown(resp)
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

func strategyLabel(metadata map[string]interface{}) string {
	if metadata == nil {
		return "fast-path"
	}
	if v, ok := metadata["strategy"].(string); ok && v != "" {
		return v
	}
	return "fast-path"
}

func summaryMarkdown(resp domain.DeepReasoningResponse) string {
	var b strings.Builder
	b.WriteString("## Deep Reasoning Result\n\n")
	if resp.Success {
		b.WriteString("Changes were produced and the reflection judge accepted them.\n\n")
	} else {
		b.WriteString("No committed changes; review the errors below.\n\n")
	}
	if len(resp.WorkflowResult.Errors) > 0 {
		b.WriteString("**Errors:**\n\n")
		for _, e := range resp.WorkflowResult.Errors {
			b.WriteString(fmt.Sprintf("- %s\n", e))
		}
	}
	return b.String()
}

func humanizeDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
