package prompt

import (
	"fmt"
	"strings"
)

// ReportFields lists the top-level members the analysis contract requires.
var ReportFields = []string{
	"executiveSummary",
	"valuationRange",
	"burnRateFactor",
	"tam2025",
	"scores",
	"industryAverage",
	"growthProjections",
	"swot",
	"unitEconomics",
	"strategicAdvice",
}

// ScoreAxes are the fixed keys of both score mappings.
var ScoreAxes = []string{"market", "team", "product", "finance"}

const analystPersona = `You are a professional venture capital analyst and strategist. Analyse the startup summary below in depth and apply academic frameworks (SWOT, unit economics, PESTEL) to produce a structured investment report.`

const reportContract = `Respond with one valid JSON object only (no markdown, no commentary) that follows this contract:

Requirements:
- "executiveSummary": string, the investment thesis in a short paragraph.
- "valuationRange": string, estimated valuation range in US dollars.
- "burnRateFactor": string, one of "Optimized", "Risky", "Efficient".
- "tam2025": string, total addressable market estimate.
- "scores" and "industryAverage": objects with integer fields market, team, product, finance, each 0-100.
- "growthProjections": array of five objects {"year": string, "marketSize": string} for 2025 through 2029.
- "swot": object with string arrays strengths, weaknesses, opportunities, threats.
- "unitEconomics": object with string fields cac, ltv, payback, ratio.
- "strategicAdvice": array of strings.

Schema (example with placeholder values):
{
  "executiveSummary": "<string>",
  "valuationRange": "<string>",
  "burnRateFactor": "<Optimized|Risky|Efficient>",
  "tam2025": "<string>",
  "scores": {"market": 0, "team": 0, "product": 0, "finance": 0},
  "industryAverage": {"market": 0, "team": 0, "product": 0, "finance": 0},
  "growthProjections": [
    {"year": "2025", "marketSize": "<string>"},
    {"year": "2026", "marketSize": "<string>"},
    {"year": "2027", "marketSize": "<string>"},
    {"year": "2028", "marketSize": "<string>"},
    {"year": "2029", "marketSize": "<string>"}
  ],
  "swot": {
    "strengths": ["<string>"],
    "weaknesses": ["<string>"],
    "opportunities": ["<string>"],
    "threats": ["<string>"]
  },
  "unitEconomics": {"cac": "<string>", "ltv": "<string>", "payback": "<string>", "ratio": "<string>"},
  "strategicAdvice": ["<string>"]
}`

// Report builds the single prompt sent to the model for a startup summary.
func Report(topic string) string {
	var b strings.Builder
	b.WriteString(analystPersona)
	b.WriteString("\n\nStartup summary:\n")
	fmt.Fprintf(&b, "%q\n\n", strings.TrimSpace(topic))
	b.WriteString(reportContract)
	return b.String()
}
