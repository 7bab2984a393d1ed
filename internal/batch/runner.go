package batch

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"rapport/internal/registry"
	"rapport/internal/rubric"
)

// timestampLayout matches the results artifact's local-time format.
const timestampLayout = "2006-01-02T15:04:05"

// Options controls one batch run.
type Options struct {
	// RunID tags every row; empty derives batch_<unix-seconds> from Now.
	RunID string

	// Limit truncates the sample set to the first N samples. 0 keeps all.
	Limit int

	// Now supplies timestamps; nil uses time.Now. Injected for tests.
	Now func() time.Time
}

// Run scores every sample in the registry. The returned slice always has
// one row per (limited) input sample, in input order.
func Run(reg *registry.Registry, tables rubric.Tables, opts Options, logger *zap.Logger) []ResultRow {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runID := opts.RunID
	if runID == "" {
		runID = fmt.Sprintf("batch_%d", now().Unix())
	}

	samples := reg.Samples
	if opts.Limit > 0 && opts.Limit < len(samples) {
		samples = samples[:opts.Limit]
	}

	logger.Info("starting batch run",
		zap.String("run_id", runID),
		zap.Int("samples", len(samples)),
		zap.Int("personas", len(reg.Personas)),
		zap.Int("contexts", len(reg.Contexts)))

	rows := make([]ResultRow, 0, len(samples))
	for _, s := range samples {
		sampleUseCase := s.UseCase
		if sampleUseCase == "" {
			sampleUseCase = registry.UseCaseUnknown
		}

		ctx := reg.ContextByID(s.ContextID)
		if ctx == nil {
			rows = append(rows, ResultRow{
				RunID:     runID,
				SampleID:  s.SampleID,
				ContextID: s.ContextID,
				UseCase:   sampleUseCase,
				Error:     fmt.Sprintf("Missing context_id=%s", s.ContextID),
			})
			continue
		}

		persona := reg.PersonaByID(ctx.PersonaID)
		if persona == nil {
			rows = append(rows, ResultRow{
				RunID:     runID,
				SampleID:  s.SampleID,
				ContextID: s.ContextID,
				UseCase:   sampleUseCase,
				PersonaID: ctx.PersonaID,
				Error:     fmt.Sprintf("Missing persona_id=%s", ctx.PersonaID),
			})
			continue
		}

		scores := tables.Score(s.UserText, *persona, *ctx)
		ocq := scores.OCQ()
		violation := scores.Violation()

		useCase := ctx.UseCase
		if useCase == "" {
			useCase = sampleUseCase
		}

		rows = append(rows, ResultRow{
			RunID:         runID,
			SampleID:      s.SampleID,
			ContextID:     s.ContextID,
			UseCase:       useCase,
			PersonaID:     ctx.PersonaID,
			UserText:      s.UserText,
			Scores:        &scores,
			OCQ:           &ocq,
			SafeViolation: &violation,
			Timestamp:     now().Format(timestampLayout),
		})
	}

	errCount := 0
	for _, r := range rows {
		if r.IsError() {
			errCount++
		}
	}
	logger.Info("batch run complete",
		zap.String("run_id", runID),
		zap.Int("rows", len(rows)),
		zap.Int("errors", errCount))

	return rows
}
