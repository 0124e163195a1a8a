package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/whatif-lab/internal/apperrors"
	"github.com/bryanwahyu/whatif-lab/internal/application"
	"github.com/bryanwahyu/whatif-lab/internal/domain/ai"
	"github.com/bryanwahyu/whatif-lab/internal/domain/scenario"
	"github.com/bryanwahyu/whatif-lab/internal/domain/video"
)

// DefaultTimeout bounds each outbound call.
const DefaultTimeout = 30 * time.Second

// rawLogLimit bounds how much rejected model output reaches the log.
const rawLogLimit = 512

// Service implements the analysis use-cases.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Gateway      ai.Gateway
	Instructions ai.Instructions
	Renderer     video.Renderer
	Research     scenario.ResearchProvider
	Repo         scenario.Repository
	// Archive is optional; nil disables snapshots.
	Archive scenario.Archiver
	Clock   application.Clock
	Logger  *zap.Logger
	Timeout time.Duration
}

//
// ==== USE CASES ====
//

// Analyze runs the enabled sections, attaches research and optional video,
// persists exactly one record and returns the composed result.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*scenario.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	kind, _ := cmd.kind()
	log := s.logger().With(zap.String("model", cmd.Model))

	result := &scenario.Result{}

	// entities dan timeline jalan paralel; error pertama membatalkan yang lain
	g, gctx := errgroup.WithContext(ctx)
	if cmd.entities() {
		g.Go(func() error {
			raw, err := s.complete(gctx, cmd, ai.SectionEntities)
			if err != nil {
				return fmt.Errorf("entities: %w", err)
			}
			entities, err := scenario.DecodeEntities(raw)
			if err != nil {
				s.logRejected(log, ai.SectionEntities, err)
				return fmt.Errorf("entities: %w", err)
			}
			result.Entities = entities
			return nil
		})
	}
	if cmd.timeline() {
		g.Go(func() error {
			raw, err := s.complete(gctx, cmd, ai.SectionTimeline)
			if err != nil {
				return fmt.Errorf("timeline: %w", err)
			}
			timeline, err := scenario.DecodeTimeline(raw)
			if err != nil {
				s.logRejected(log, ai.SectionTimeline, err)
				return fmt.Errorf("timeline: %w", err)
			}
			result.Timeline = timeline
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("analysis failed", zap.Error(err))
		return nil, err
	}

	research, err := s.Research.Sources(ctx, cmd.Scenario)
	if err != nil {
		return nil, fmt.Errorf("research sources: %w", err)
	}
	result.ResearchSources = research

	if cmd.video() && s.Renderer != nil {
		result.VideoGeneration = s.renderVideo(ctx, cmd, result)
	}

	saved, err := s.Repo.Create(ctx, &scenario.Record{
		Title:           scenario.TitleFor(cmd.Scenario),
		Description:     cmd.Scenario,
		Model:           cmd.Model,
		Type:            kind,
		Subjects:        cmd.Subjects,
		Background:      cmd.Background,
		Entities:        result.Entities,
		Timeline:        result.Timeline,
		ResearchSources: &research,
		VideoGeneration: result.VideoGeneration,
		CreatedAt:       s.now(),
	})
	if err != nil {
		log.Error("persist analysis failed", zap.Error(err))
		return nil, &apperrors.PersistenceError{Op: "create", Err: err}
	}
	log.Info("analysis stored",
		zap.Int64("id", saved.ID),
		zap.Bool("entities", result.HasEntities()),
		zap.Bool("timeline", result.HasTimeline()),
		zap.Bool("video", result.VideoGeneration != nil))

	s.archive(ctx, saved)

	return result, nil
}

// ValidateKey reports whether apiKey is accepted by the completion API.
func (s *Service) ValidateKey(ctx context.Context, apiKey string) bool {
	if strings.TrimSpace(apiKey) == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	return s.Gateway.ValidateKey(ctx, apiKey)
}

// Recent lists stored analyses, newest first, at most scenario.MaxRecent.
func (s *Service) Recent(ctx context.Context, limit int) ([]*scenario.Record, error) {
	records, err := s.Repo.Recent(ctx, scenario.ClampLimit(limit))
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "recent", Err: err}
	}
	return records, nil
}

// VideoStatus polls a render job.
func (s *Service) VideoStatus(ctx context.Context, apiKey, taskID string) (*video.Generation, error) {
	if strings.TrimSpace(taskID) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, &apperrors.ValidationError{Reason: "Task ID and API key required"}
	}
	if s.Renderer == nil {
		return nil, errors.New("video renderer not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	return s.Renderer.Status(ctx, apiKey, taskID)
}

func (s *Service) complete(ctx context.Context, cmd AnalyzeCommand, section ai.Section) (json.RawMessage, error) {
	instruction, err := s.Instructions.Instruction(section)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	return s.Gateway.Complete(ctx, cmd.APIKey, cmd.Model, cmd.Scenario, instruction)
}

// renderVideo never fails the analysis; errors are folded into the result.
func (s *Service) renderVideo(ctx context.Context, cmd AnalyzeCommand, result *scenario.Result) *video.Generation {
	req := video.Request{Scenario: cmd.Scenario}
	for _, e := range result.Entities {
		req.Focus = append(req.Focus, e.Name)
	}
	if len(result.Timeline) > 0 {
		first := result.Timeline[0]
		req.Opening = &video.Beat{Time: first.Time, Event: first.Event}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	gen, err := s.Renderer.Generate(ctx, cmd.MinimaxAPIKey, req)
	if err != nil {
		s.logger().Warn("video generation failed", zap.Error(err))
		reason := err.Error()
		var ue *apperrors.UpstreamError
		if errors.As(err, &ue) {
			reason = ue.Summary()
		}
		return &video.Generation{Error: "video generation failed: " + reason}
	}
	return gen
}

// archive upload snapshot; gagal di sini tidak menggagalkan request
func (s *Service) archive(ctx context.Context, rec *scenario.Record) {
	if s.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	loc, err := s.Archive.Archive(ctx, rec)
	if err != nil {
		s.logger().Warn("snapshot archive failed", zap.Int64("id", rec.ID), zap.Error(err))
		return
	}
	s.logger().Debug("snapshot archived", zap.Int64("id", rec.ID), zap.String("location", loc))
}

func (s *Service) logRejected(log *zap.Logger, section ai.Section, err error) {
	var pe *apperrors.ParseError
	if !errors.As(err, &pe) {
		return
	}
	raw := pe.Raw
	if len(raw) > rawLogLimit {
		raw = raw[:rawLogLimit] + "..."
	}
	log.Warn("model output rejected",
		zap.String("section", string(section)),
		zap.String("reason", pe.Err.Error()),
		zap.String("raw", raw))
}

func (s *Service) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
