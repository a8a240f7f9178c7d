package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	domai "github.com/bryanwahyu/vc-analyst/internal/domain/ai"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
	"github.com/bryanwahyu/vc-analyst/internal/infra/ai/extract"
	"github.com/bryanwahyu/vc-analyst/internal/infra/ai/prompt"
)

// rawLogLimit caps how much model output goes into a log line.
const rawLogLimit = 2000

type generator struct {
	client  domai.Client
	timeout time.Duration
	log     *zap.Logger
}

// run makes exactly one model call and extracts its payload.
func (g generator) run(ctx context.Context, kind, p string) (report.Payload, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	raw, err := g.client.Generate(ctx, p)
	if err != nil {
		g.log.Warn("model call failed", zap.String("kind", kind), zap.Error(err))
		return nil, &domai.GenerationError{Err: err}
	}

	payload, err := extract.Parse(raw)
	if err != nil {
		var extErr *domai.ExtractionError
		if errors.As(err, &extErr) {
			g.log.Warn("model output has no usable payload",
				zap.String("kind", kind),
				zap.Error(err),
				zap.String("raw", truncate(extErr.Raw, rawLogLimit)),
			)
		}
		return nil, err
	}
	return payload, nil
}

// ReportGenerator turns a startup summary into an analysis payload.
type ReportGenerator struct {
	gen generator
}

func NewReportGenerator(client domai.Client, timeout time.Duration, log *zap.Logger) *ReportGenerator {
	return &ReportGenerator{gen: generator{client: client, timeout: timeout, log: log.Named("report_generator")}}
}

// Generate rejects an empty topic before calling the model.
func (g *ReportGenerator) Generate(ctx context.Context, topic string) (report.Payload, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: summary is required", report.ErrInvalidInput)
	}
	return g.gen.run(ctx, "analysis", prompt.Report(topic))
}

// MarketGenerator produces the market intelligence report. Nothing is persisted.
type MarketGenerator struct {
	gen generator
}

func NewMarketGenerator(client domai.Client, timeout time.Duration, log *zap.Logger) *MarketGenerator {
	return &MarketGenerator{gen: generator{client: client, timeout: timeout, log: log.Named("market_generator")}}
}

func (g *MarketGenerator) Generate(ctx context.Context) (report.Payload, error) {
	return g.gen.run(ctx, "market_intel", prompt.Market())
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
