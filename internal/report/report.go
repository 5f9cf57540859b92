// Package report renders the completeness review for one device dossier:
// markdown for the API surface, HTML via goldmark, PDF via headless
// Chromium.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/josephbrant/regdossier/internal/completeness"
	"github.com/josephbrant/regdossier/internal/dossierctx"
)

// Category display order, highest weight first.
var categoryOrder = []string{
	completeness.CategoryClinicalContext,
	completeness.CategoryRiskContext,
	completeness.CategoryIdentity,
	completeness.CategoryClinicalEvidence,
	completeness.CategoryRegulatoryHistory,
	completeness.CategoryPriorPSURs,
	completeness.CategoryBaselines,
}

var categoryTitles = map[string]string{
	completeness.CategoryIdentity:          "Device Identity",
	completeness.CategoryClinicalContext:   "Clinical Context",
	completeness.CategoryRiskContext:       "Risk Context",
	completeness.CategoryClinicalEvidence:  "Clinical Evidence",
	completeness.CategoryRegulatoryHistory: "Regulatory History",
	completeness.CategoryPriorPSURs:        "Prior PSUR History",
	completeness.CategoryBaselines:         "Performance Baselines",
}

// BuildMarkdown assembles the dossier completeness report. The breakdown
// drives the scoring sections; the rendered context blocks show reviewers
// exactly what a generated document would be working from.
func BuildMarkdown(deviceCode, period string, breakdown completeness.Breakdown, ctx dossierctx.Context, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dossier Completeness Report\n\n")
	fmt.Fprintf(&b, "- Device: %s\n", sanitize(deviceCode))
	fmt.Fprintf(&b, "- Reporting period: %s\n", sanitize(period))
	fmt.Fprintf(&b, "- Date: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Overall score: **%d / 100** (%s)\n\n", breakdown.Score, readiness(breakdown.Score))

	if !ctx.DossierExists {
		fmt.Fprintf(&b, "> NO DOSSIER ON FILE: this review is based on a synthesized first-report context. "+
			"All sections below describe default assumptions, not reconciled device data.\n\n")
	}

	fmt.Fprintf(&b, "## Category Breakdown\n\n")
	fmt.Fprintf(&b, "| Category | Score | Max | Missing |\n")
	fmt.Fprintf(&b, "|----------|-------|-----|---------|\n")
	for _, name := range categoryOrder {
		cat, ok := breakdown.Categories[name]
		if !ok {
			continue
		}
		missing := "—"
		if len(cat.Missing) > 0 {
			missing = sanitizeCell(strings.Join(cat.Missing, ", "))
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", categoryTitles[name], cat.Score, cat.Max, missing)
	}
	b.WriteString("\n")

	if len(breakdown.CriticalMissing) > 0 {
		fmt.Fprintf(&b, "## Critical Gaps\n\n")
		fmt.Fprintf(&b, "The following fields block a compliant document and must be resolved before generation:\n\n")
		sorted := append([]string{}, breakdown.CriticalMissing...)
		sort.Strings(sorted)
		for _, field := range sorted {
			fmt.Fprintf(&b, "- `%s`\n", field)
		}
		b.WriteString("\n")
	}

	if len(breakdown.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for _, rec := range breakdown.Recommendations {
			fmt.Fprintf(&b, "- %s\n", sanitize(rec))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "## Dossier Context Preview\n\n")
	fmt.Fprintf(&b, "These are the context blocks a generated report would receive.\n\n")
	writeBlock(&b, "Product Summary", ctx.ProductSummary)
	writeBlock(&b, "Clinical Context", ctx.ClinicalBlock)
	writeBlock(&b, "Risk Context", ctx.RiskBlock)
	writeBlock(&b, "Regulatory History", ctx.RegulatoryBlock)
	writeBlock(&b, "Performance Baselines", ctx.BaselineBlock)
	writeBlock(&b, "Prior PSUR History", ctx.PriorPSURBlock)

	if ctx.Thresholds.Defaulted {
		fmt.Fprintf(&b, "> Review thresholds are defaults (complaint rate %.1f, serious incident rate %.1f per 10,000 units); the dossier defines none.\n\n",
			ctx.Thresholds.ComplaintRate, ctx.Thresholds.SeriousIncidentRate)
	}

	return b.String()
}

func writeBlock(b *strings.Builder, title, block string) {
	fmt.Fprintf(b, "### %s\n\n", title)
	if strings.TrimSpace(block) == "" {
		b.WriteString("_(empty)_\n\n")
		return
	}
	fmt.Fprintf(b, "%s\n\n", block)
}

// readiness maps the score to the review banding used across the product.
func readiness(score int) string {
	switch {
	case score >= 85:
		return "ready for generation"
	case score >= 60:
		return "usable with gaps"
	case score >= 30:
		return "substantial gaps"
	default:
		return "insufficient"
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	s = sanitize(s)
	return strings.ReplaceAll(s, "|", "\\|")
}
