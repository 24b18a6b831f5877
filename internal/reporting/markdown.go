package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Reduction QA Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Channel: %s | Data version: %s\n\n", r.Channel, r.DataVersion))

	// Reduced tables
	sb.WriteString("## Reduced Tables\n\n")
	sb.WriteString("| Table | Rows |\n")
	sb.WriteString("|-------|------|\n")
	sb.WriteString(fmt.Sprintf("| Collisions | %d |\n", r.Summary.Collisions))
	sb.WriteString(fmt.Sprintf("| D candidates | %d |\n", r.Summary.DCandidates))
	sb.WriteString(fmt.Sprintf("| V0s | %d |\n", r.Summary.V0s))
	sb.WriteString(fmt.Sprintf("| Pairs | %d |\n", r.Summary.Pairs))
	sb.WriteString("\n")

	// Selection steps
	sb.WriteString("## Selection Steps\n\n")
	sb.WriteString("| Step | Collisions |\n")
	sb.WriteString("|------|------------|\n")
	for _, s := range r.SelectionSteps {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", s.Step, s.Collisions))
	}
	sb.WriteString("\n")

	// Spectra
	sb.WriteString("## Spectra\n\n")
	if len(r.Spectra) > 0 {
		sb.WriteString("| Spectrum | Entries | Peak | Underflow | Overflow |\n")
		sb.WriteString("|----------|---------|------|-----------|----------|\n")
		for _, s := range r.Spectra {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %d | %d |\n",
				s.Name, s.Entries, s.Peak, s.Underflow, s.Overflow))
		}
	} else {
		sb.WriteString("No spectra recorded.\n")
	}
	sb.WriteString("\n")

	// Pair yield
	sb.WriteString("## Pair Yield vs pT\n\n")
	if len(r.PairYield) > 0 {
		sb.WriteString("| pT (GeV/c) | Pairs |\n")
		sb.WriteString("|------------|-------|\n")
		for _, b := range r.PairYield {
			sb.WriteString(fmt.Sprintf("| %g-%g | %d |\n", b.PtLo, b.PtHi, b.Pairs))
		}
	} else {
		sb.WriteString("No pairs recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
