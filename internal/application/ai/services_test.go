package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domai "github.com/bryanwahyu/vc-analyst/internal/domain/ai"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
	"github.com/bryanwahyu/vc-analyst/internal/infra/ai/prompt"
)

const mealKitResponse = "Here is the analysis:\n```json\n" + `{
  "executiveSummary": "Recurring revenue with strong retention levers.",
  "valuationRange": "$8M - $12M",
  "burnRateFactor": "Risky",
  "tam2025": "$20B",
  "scores": {"market": 78, "team": 64, "product": 70, "finance": 55},
  "industryAverage": {"market": 60, "team": 60, "product": 60, "finance": 60},
  "growthProjections": [{"year": "2025", "marketSize": "$20B"}],
  "swot": {"strengths": ["brand"], "weaknesses": ["logistics"], "opportunities": ["B2B"], "threats": ["churn"]},
  "unitEconomics": {"cac": "$80", "ltv": "$320", "payback": "5 months", "ratio": "4:1"},
  "strategicAdvice": ["Reduce churn in month two"]
}` + "\n```\nGood luck!"

type fakeClient struct {
	calls   []string
	respond func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeClient) Generate(ctx context.Context, p string) (string, error) {
	f.calls = append(f.calls, p)
	return f.respond(ctx, p)
}

func reply(text string, err error) *fakeClient {
	return &fakeClient{respond: func(context.Context, string) (string, error) { return text, err }}
}

func TestReportGeneratorRejectsEmptyTopic(t *testing.T) {
	client := reply(mealKitResponse, nil)
	g := NewReportGenerator(client, time.Second, zaptest.NewLogger(t))

	for _, topic := range []string{"", "   \n\t"} {
		_, err := g.Generate(context.Background(), topic)
		assert.ErrorIs(t, err, report.ErrInvalidInput)
	}
	assert.Empty(t, client.calls)
}

func TestReportGeneratorMealKit(t *testing.T) {
	client := reply(mealKitResponse, nil)
	g := NewReportGenerator(client, time.Second, zaptest.NewLogger(t))

	payload, err := g.Generate(context.Background(), "A subscription meal-kit service")
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, prompt.Report("A subscription meal-kit service"), client.calls[0])

	scores, ok := payload["scores"].(map[string]any)
	require.True(t, ok)
	market, ok := scores["market"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, market, 0.0)
	assert.LessOrEqual(t, market, 100.0)
}

func TestReportGeneratorClientFailure(t *testing.T) {
	g := NewReportGenerator(reply("", errors.New("connection reset")), time.Second, zaptest.NewLogger(t))

	_, err := g.Generate(context.Background(), "idea")
	var genErr *domai.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.EqualError(t, genErr.Err, "connection reset")
}

func TestReportGeneratorQuota(t *testing.T) {
	g := NewReportGenerator(reply("", domai.ErrQuotaExceeded), time.Second, zaptest.NewLogger(t))

	_, err := g.Generate(context.Background(), "idea")
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}

func TestReportGeneratorProse(t *testing.T) {
	raw := "I am unable to evaluate this startup."
	g := NewReportGenerator(reply(raw, nil), time.Second, zaptest.NewLogger(t))

	payload, err := g.Generate(context.Background(), "idea")
	assert.Nil(t, payload)
	var extErr *domai.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, raw, extErr.Raw)
}

func TestReportGeneratorTimeout(t *testing.T) {
	client := &fakeClient{respond: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g := NewReportGenerator(client, 20*time.Millisecond, zaptest.NewLogger(t))

	_, err := g.Generate(context.Background(), "idea")
	var genErr *domai.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMarketGenerator(t *testing.T) {
	client := reply("```\n{\"globalSentiment\":\"Neutral\",\"sentimentScore\":50,\"trends\":[],\"hotSectors\":[],\"vcActivity\":\"steady\"}\n```", nil)
	g := NewMarketGenerator(client, time.Second, zaptest.NewLogger(t))

	payload, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Neutral", payload["globalSentiment"])
	assert.Equal(t, []string{prompt.Market()}, client.calls)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))

	// "é" is two bytes; cutting inside it backs up to the rune start
	assert.Equal(t, "a...", truncate("aéb", 2))
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("日本", 700), rawLogLimit)))
}
