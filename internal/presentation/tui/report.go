package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
)

// BundleMarkdown renders an audit bundle as a clinician-facing report.
func BundleMarkdown(b *audit.Bundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Assessment %s\n\n", b.ID)
	fmt.Fprintf(&sb, "**%s**\n\n", b.Consensus)
	fmt.Fprintf(&sb, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Decision | `%s` |\n", b.FinalDecision)
	fmt.Fprintf(&sb, "| Terminal | `%s` |\n", b.Terminal)
	fmt.Fprintf(&sb, "| Path | `%s` |\n", b.Path)
	if b.InterruptReason != nil {
		fmt.Fprintf(&sb, "| Interrupt reason | `%s` |\n", *b.InterruptReason)
	}
	fmt.Fprintf(&sb, "| Requires escalation | %s |\n", yesNo(b.RequiresEscalation))
	fmt.Fprintf(&sb, "| Prescriber sign-off | %s |\n", yesNo(b.SignoffRequired))
	if b.Confidence != nil {
		fmt.Fprintf(&sb, "| Confidence | %.2f |\n", *b.Confidence)
	}
	fmt.Fprintf(&sb, "| Locale | %s |\n", b.Inputs.LocaleCode)
	sb.WriteString("\n")

	if b.FinalRegimen != nil {
		sb.WriteString("## Regimen\n\n")
		writeRegimen(&sb, b.FinalRegimen)
	}

	if b.Outcome != nil && len(b.Outcome.Rationale) > 0 {
		sb.WriteString("## Rationale\n\n")
		writeRationale(&sb, b.Outcome.Rationale)
	}

	if b.Validation != nil {
		sb.WriteString("## Validation\n\n")
		writeValidation(&sb, b.Validation)
	}

	if v := b.Verification; v != nil {
		sb.WriteString("## Verification\n\n")
		fmt.Fprintf(&sb, "Verdict: `%s` (confidence %.2f)\n\n", v.Verdict, v.Confidence)
		writeList(&sb, v.Issues)
	}

	if s := b.Summary; s != nil {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(s.Summary + "\n\n")
		writeList(&sb, s.Actions)
	}

	if b.FollowUp != nil {
		sb.WriteString("## Follow-up\n\n")
		writeFollowUp(&sb, b.FollowUp)
	}

	if len(b.Sources) > 0 {
		sb.WriteString("## Sources\n\n")
		for _, c := range b.Sources {
			if c.URL != "" {
				fmt.Fprintf(&sb, "- [%s](%s)\n", c.Title, c.URL)
			} else {
				fmt.Fprintf(&sb, "- %s\n", c.Title)
			}
		}
		sb.WriteString("\n")
	}

	if len(b.Degradations) > 0 {
		sb.WriteString("## Degradations\n\n")
		writeList(&sb, b.Degradations)
	}

	sb.WriteString("## Stage trail\n\n| Stage | Version | Error |\n|---|---|---|\n")
	for _, r := range b.Trail {
		fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", r.Stage, r.ComponentVersion, r.Error)
	}
	return sb.String()
}

// PlanMarkdown renders the deterministic plan returned without agents.
func PlanMarkdown(p triage.Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Plan: `%s`\n\n", p.Outcome.Decision)
	fmt.Fprintf(&sb, "- Requires escalation: %s\n", yesNo(p.RequiresEscalation))
	fmt.Fprintf(&sb, "- Prescriber sign-off: %s\n", yesNo(p.SignoffRequired))
	fmt.Fprintf(&sb, "- Engine: %s\n\n", p.EngineVersion)

	if p.Outcome.Regimen != nil {
		sb.WriteString("## Regimen\n\n")
		writeRegimen(&sb, p.Outcome.Regimen)
	}
	if len(p.Outcome.InteractionFlags) > 0 {
		sb.WriteString("## Interactions\n\n")
		writeList(&sb, p.Outcome.InteractionFlags)
	}
	if len(p.Outcome.Rationale) > 0 {
		sb.WriteString("## Rationale\n\n")
		writeRationale(&sb, p.Outcome.Rationale)
	}
	if p.Validation != nil {
		sb.WriteString("## Validation\n\n")
		writeValidation(&sb, p.Validation)
	}
	if p.FollowUp != nil {
		sb.WriteString("## Follow-up\n\n")
		writeFollowUp(&sb, p.FollowUp)
	}
	return sb.String()
}

func writeRegimen(sb *strings.Builder, r *domain.ProposedRegimen) {
	fmt.Fprintf(sb, "**%s** %s, %s for %s\n\n", r.Agent, r.Dose, r.Frequency, r.Duration)
}

func writeRationale(sb *strings.Builder, entries []domain.RationaleEntry) {
	for _, e := range entries {
		fmt.Fprintf(sb, "- `%s` %s\n", e.Rule, e.Text)
	}
	sb.WriteString("\n")
}

func writeValidation(sb *strings.Builder, v *domain.ValidationResult) {
	status := "pass"
	if !v.Pass {
		status = "fail"
	}
	fmt.Fprintf(sb, "Result: **%s** (severity `%s`)\n\n", status, v.Severity)
	for _, f := range v.Findings {
		fmt.Fprintf(sb, "- `%s` [%s] %s\n", f.Rule, f.Severity, f.Annotation)
	}
	if len(v.Findings) > 0 {
		sb.WriteString("\n")
	}
}

func writeFollowUp(sb *strings.Builder, f *domain.FollowUpPlan) {
	fmt.Fprintf(sb, "Reassess within: %s\n\n", f.ReassessWithin)
	sections := []struct {
		title string
		items []string
	}{
		{"Monitoring", f.MonitoringChecklist},
		{"Special instructions", f.SpecialInstructions},
		{"Seek care if", f.SeekCareIf},
		{"Provider actions", f.ProviderActions},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(sb, "### %s\n\n", s.title)
		writeList(sb, s.items)
	}
}

func writeList(sb *strings.Builder, items []string) {
	if len(items) == 0 {
		return
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	sb.WriteString("\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
