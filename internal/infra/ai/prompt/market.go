package prompt

// MarketFields lists the top-level members of the market intelligence contract.
var MarketFields = []string{"globalSentiment", "sentimentScore", "trends", "hotSectors", "vcActivity"}

const market = `You are an expert market researcher. Produce a current "Market Intelligence" report for the global startup ecosystem, based on trends from a 2025/2026 perspective.

Respond with one valid JSON object only (no markdown, no commentary) that follows this contract:

Requirements:
- "globalSentiment": one of "Bullish", "Bearish", "Neutral".
- "sentimentScore": integer 0-100, where 100 is extremely bullish.
- "trends": array of objects {"title": string, "description": string, "impact": "High" or "Medium"}.
- "hotSectors": array of objects {"name": string, "growth": string growth estimate in percent, "reason": string}.
- "vcActivity": string, a short paragraph summarising investor activity.

Schema (example with placeholder values):
{
  "globalSentiment": "<Bullish|Bearish|Neutral>",
  "sentimentScore": 0,
  "trends": [{"title": "<string>", "description": "<string>", "impact": "<High|Medium>"}],
  "hotSectors": [{"name": "<string>", "growth": "<string>", "reason": "<string>"}],
  "vcActivity": "<string>"
}`

// Market returns the fixed market intelligence prompt.
func Market() string { return market }
