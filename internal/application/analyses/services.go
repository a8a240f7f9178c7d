package analyses

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
)

// Generator turns a startup summary into a payload.
type Generator interface {
	Generate(ctx context.Context, topic string) (report.Payload, error)
}

// Mirror copies a committed report into the secondary store.
type Mirror interface {
	Sync(ctx context.Context, r *report.Report, owner report.Owner) mirror.Outcome
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
	titleRunes       = 80
)

// Service runs the generate -> commit -> sync pipeline.
// Safe for concurrent use as long as its collaborators are.
type Service struct {
	Repo      report.Repository
	Generator Generator
	Mirror    Mirror
	Log       *zap.Logger
}

//
// ==== USE CASES ====
//

// SaveCommand persists a payload the caller already holds.
type SaveCommand struct {
	Owner   report.Owner
	Title   string
	Summary string
	Result  report.Payload
}

// GenerateCommand runs the full pipeline. Title falls back to the summary.
type GenerateCommand struct {
	Owner   report.Owner
	Title   string
	Summary string
}

// Result of a persisting use case. Mirror is informational only.
type Result struct {
	Report *report.Report
	Mirror mirror.Outcome
}

// Analyze generates a payload without persisting it.
func (s *Service) Analyze(ctx context.Context, summary string) (report.Payload, error) {
	return s.Generator.Generate(ctx, summary)
}

// Commit creates the primary record. The store assigns id and timestamp.
func (s *Service) Commit(ctx context.Context, ownerID, title, summary string, result report.Payload) (*report.Report, error) {
	switch {
	case strings.TrimSpace(ownerID) == "":
		return nil, fmt.Errorf("%w: owner is required", report.ErrInvalidInput)
	case strings.TrimSpace(title) == "":
		return nil, fmt.Errorf("%w: title is required", report.ErrInvalidInput)
	case strings.TrimSpace(summary) == "":
		return nil, fmt.Errorf("%w: summary is required", report.ErrInvalidInput)
	case result == nil:
		return nil, fmt.Errorf("%w: result is required", report.ErrInvalidInput)
	}

	r, err := s.Repo.Create(ctx, ownerID, strings.TrimSpace(title), summary, result)
	if err != nil {
		s.logger().Error("commit analysis", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, &report.PersistenceError{Op: "create", Err: err}
	}
	s.logger().Info("committed analysis", zap.String("owner_id", ownerID), zap.String("report_id", string(r.ID)))
	return r, nil
}

// Save commits then mirrors. A mirror outcome never turns into an error.
func (s *Service) Save(ctx context.Context, cmd SaveCommand) (Result, error) {
	r, err := s.Commit(ctx, cmd.Owner.ID, cmd.Title, cmd.Summary, cmd.Result)
	if err != nil {
		return Result{}, err
	}
	return Result{Report: r, Mirror: s.sync(ctx, r, cmd.Owner)}, nil
}

// GenerateAndSave runs generation, commit and sync in that order.
// Nothing is written when generation or extraction fails.
func (s *Service) GenerateAndSave(ctx context.Context, cmd GenerateCommand) (Result, error) {
	if strings.TrimSpace(cmd.Owner.ID) == "" {
		return Result{}, fmt.Errorf("%w: owner is required", report.ErrInvalidInput)
	}
	payload, err := s.Generator.Generate(ctx, cmd.Summary)
	if err != nil {
		return Result{}, err
	}
	// a cancelled request must not leave a record behind
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	title := cmd.Title
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle(cmd.Summary)
	}
	return s.Save(ctx, SaveCommand{Owner: cmd.Owner, Title: title, Summary: cmd.Summary, Result: payload})
}

func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]*report.Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit)
}

func (s *Service) Get(ctx context.Context, ownerID string, id report.ID) (*report.Report, error) {
	return s.Repo.Get(ctx, ownerID, id)
}

// Rename updates the title only. Summary and result are immutable.
func (s *Service) Rename(ctx context.Context, ownerID string, id report.ID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", report.ErrInvalidInput)
	}
	return s.Repo.UpdateTitle(ctx, ownerID, id, title)
}

// Delete removes the primary record. Mirrored copies are left as they are.
func (s *Service) Delete(ctx context.Context, ownerID string, id report.ID) error {
	return s.Repo.Delete(ctx, ownerID, id)
}

// DefaultTitle is the first line of the summary, cut to a readable length.
func DefaultTitle(summary string) string {
	line := strings.TrimSpace(summary)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if len(runes) > titleRunes {
		return strings.TrimSpace(string(runes[:titleRunes])) + "..."
	}
	return line
}

func (s *Service) sync(ctx context.Context, r *report.Report, owner report.Owner) mirror.Outcome {
	if s.Mirror == nil {
		return mirror.Skipped(mirror.ReasonStoreUnavailable)
	}
	return s.Mirror.Sync(ctx, r, owner)
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
