package activity

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/practice-api/internal/model"
)

const (
	defaultDuration = "30 Minutes"
	defaultGoals    = "general communication"
	defaultName     = "Generated Activity"
)

func durationLine(minutes int) string {
	if minutes <= 0 {
		return defaultDuration
	}
	return fmt.Sprintf("%d Minutes", minutes)
}

func goalsLine(goals []string) string {
	if len(goals) == 0 {
		return defaultGoals
	}
	return strings.Join(goals, ", ")
}

func draftPrompt(req *model.GenerateActivityRequest, notes string) string {
	idea := req.Idea
	if idea == "" {
		idea = "none"
	}
	var b strings.Builder
	b.WriteString("You are a speech-language therapy assistant.\n")
	b.WriteString("Design ONE age-appropriate activity (game / exercise).\n\n")
	fmt.Fprintf(&b, "Optional therapist idea: %s\n\n", idea)
	fmt.Fprintf(&b, "• Duration: %s\n", durationLine(req.Duration))
	fmt.Fprintf(&b, "• Target goals: %s\n\n", goalsLine(req.Goals))
	fmt.Fprintf(&b, "--- VISIT NOTES ---\n%s\n--------------------\n\n", notes)
	b.WriteString("Return ONLY valid JSON with exactly these keys:\n\n")
	b.WriteString("{\n")
	b.WriteString(`  "name":        "Catchy title, at most 10 words",` + "\n")
	b.WriteString(`  "description": "Plain-text overview, at most 150 words",` + "\n")
	b.WriteString(`  "materials":   ["item one", "... up to 10"]` + "\n")
	b.WriteString("}")
	return b.String()
}

func planPrompt(req *model.GenerateActivityRequest, notes string) string {
	var b strings.Builder
	b.WriteString("You are a speech-language therapy assistant.\n\n")
	if req.Name != "" {
		fmt.Fprintf(&b, "### %s\n<!-- KEEP this heading unchanged -->\n\n", req.Name)
	}
	b.WriteString("Using the information below, craft **one** complete activity.\n\n")
	if req.Idea != "" {
		fmt.Fprintf(&b, "Therapist's idea / focus: %s\n\n", req.Idea)
	}
	fmt.Fprintf(&b, "• Duration: %s\n", durationLine(req.Duration))
	fmt.Fprintf(&b, "• Target goals: %s\n", goalsLine(req.Goals))
	if len(req.Materials) > 0 {
		fmt.Fprintf(&b, "• Use ONLY these materials: %s\n", strings.Join(req.Materials, ", "))
	}
	fmt.Fprintf(&b, "\n--- VISIT NOTES ---\n%s\n---------------------\n\n", notes)
	b.WriteString("Return the plan in **Markdown**:\n\n")
	b.WriteString("### Activity Name\n")
	if req.Name != "" {
		fmt.Fprintf(&b, "<should be %q>\n\n", req.Name)
	} else {
		b.WriteString("<a short title>\n\n")
	}
	b.WriteString("### Requirements\n- <each material>\n\n")
	b.WriteString("### Instructions\n1. ...")
	return b.String()
}
