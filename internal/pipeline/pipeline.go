// Package pipeline orchestrates the full document analysis run: text
// extraction, segmentation, concurrent oracle extraction, validation with
// repair, scoring, and result persistence.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bluereef-labs/mpagent/internal/extract"
	"github.com/bluereef-labs/mpagent/internal/model"
	"github.com/bluereef-labs/mpagent/internal/ocr"
	"github.com/bluereef-labs/mpagent/internal/preprocess"
	"github.com/bluereef-labs/mpagent/internal/scorer"
	"github.com/bluereef-labs/mpagent/internal/store"
	"github.com/bluereef-labs/mpagent/internal/validate"
)

// Oracle issues extraction and repair queries. Satisfied by
// *extract.Pipeline.
type Oracle interface {
	ExtractSegment(ctx context.Context, seg model.Segment, target model.Target) *extract.SegmentResult
	Repair(ctx context.Context, seg model.Segment, target model.Target, violation string) (*extract.Parsed, error)
}

// Runner executes analysis runs against a single store.
type Runner struct {
	store           store.Store
	ocr             ocr.Extractor
	oracle          Oracle
	engine          *scorer.Engine
	maxSegmentChars int
}

// New builds a Runner.
func New(st store.Store, ex ocr.Extractor, oracle Oracle, engine *scorer.Engine, maxSegmentChars int) *Runner {
	if maxSegmentChars <= 0 {
		maxSegmentChars = preprocess.DefaultMaxSegmentChars
	}
	return &Runner{
		store:           st,
		ocr:             ex,
		oracle:          oracle,
		engine:          engine,
		maxSegmentChars: maxSegmentChars,
	}
}

// Analyze registers a document and runs the full pipeline over one PDF,
// persisting the result.
func (r *Runner) Analyze(ctx context.Context, pdfPath, filename string) (*model.AnalysisResult, error) {
	doc, err := r.Register(ctx, filename)
	if err != nil {
		return nil, err
	}
	return r.Process(ctx, doc, pdfPath)
}

// Register creates the document record ahead of the run, so callers can
// poll its status while extraction is still in flight.
func (r *Runner) Register(ctx context.Context, filename string) (*model.Document, error) {
	doc, err := r.store.CreateDocument(ctx, model.Document{
		Filename: filename,
		Status:   model.StatusUploaded,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create document")
	}

	zap.L().Info("document registered",
		zap.String("document", doc.ID),
		zap.String("filename", filename),
	)
	return doc, nil
}

// Process runs the pipeline for a registered document. Failures mark the
// document failed; on context cancellation nothing further is persisted and
// a cancelled run never writes a result.
func (r *Runner) Process(ctx context.Context, doc *model.Document, pdfPath string) (*model.AnalysisResult, error) {
	result, err := r.process(ctx, doc, pdfPath)
	if err != nil {
		if ctx.Err() == nil {
			_ = r.store.UpdateDocumentStatus(context.WithoutCancel(ctx), doc.ID, model.StatusFailed)
		}
		return nil, err
	}
	return result, nil
}

func (r *Runner) process(ctx context.Context, doc *model.Document, pdfPath string) (*model.AnalysisResult, error) {
	rawPages, err := r.ocr.ExtractPages(ctx, pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: ocr %s", pdfPath)
	}

	pages := r.preprocessPages(rawPages)
	if err := r.store.UpdateDocumentPages(ctx, doc.ID, pages); err != nil {
		return nil, err
	}

	zap.L().Info("pages extracted",
		zap.String("document", doc.ID),
		zap.Int("pages", len(pages)),
	)
	return r.run(ctx, doc, pages)
}

func (r *Runner) preprocessPages(rawPages []string) []model.PageText {
	stripped := preprocess.StripRunningLines(rawPages)
	pages := make([]model.PageText, len(stripped))
	for i, text := range stripped {
		pages[i] = model.PageText{
			Number: i + 1,
			Text:   preprocess.Normalize(text),
		}
	}
	return pages
}

func (r *Runner) run(ctx context.Context, doc *model.Document, pages []model.PageText) (*model.AnalysisResult, error) {
	if err := r.store.UpdateDocumentStatus(ctx, doc.ID, model.StatusExtracting); err != nil {
		return nil, err
	}

	segments := preprocess.BuildSegments(doc.ID, pages, r.maxSegmentChars)
	extracted, err := r.extractAll(ctx, segments)
	if err != nil {
		return nil, err
	}

	if err := r.store.UpdateDocumentStatus(ctx, doc.ID, model.StatusValidating); err != nil {
		return nil, err
	}
	result := r.validateAll(ctx, doc, extracted)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: validation cancelled")
	}

	if err := r.store.UpdateDocumentStatus(ctx, doc.ID, model.StatusScoring); err != nil {
		return nil, err
	}
	r.score(result)

	for _, v := range validate.CrossValidate(result) {
		zap.L().Warn("cross-reference violation",
			zap.String("document", doc.ID),
			zap.String("violation", v),
		)
	}

	result.Status = r.finalStatus(extracted, result)
	result.CreatedAt = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled before persist")
	}
	if err := r.store.UpdateDocumentStatus(ctx, doc.ID, result.Status); err != nil {
		return nil, err
	}
	if err := r.store.PutResult(ctx, doc.ID, result); err != nil {
		return nil, err
	}

	zap.L().Info("analysis complete",
		zap.String("document", doc.ID),
		zap.String("status", string(result.Status)),
		zap.Int("zones", len(result.Zones)),
		zap.Int("objectives", len(result.Objectives)),
		zap.Int("citations", len(result.Citations)),
		zap.Int("failures", len(result.Failures)),
	)
	return result, nil
}

// extractAll fans segment×target tasks out over the oracle. Each task writes
// into its own pre-assigned slot, so assembly order is deterministic
// regardless of completion order.
func (r *Runner) extractAll(ctx context.Context, segments []model.Segment) ([]*extract.SegmentResult, error) {
	targets := model.Targets()
	results := make([]*extract.SegmentResult, len(segments)*len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for si, seg := range segments {
		for ti, target := range targets {
			slot := si*len(targets) + ti
			seg, target := seg, target
			g.Go(func() error {
				results[slot] = r.oracle.ExtractSegment(gctx, seg, target)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: extraction")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: extraction cancelled")
	}
	return results, nil
}

func (r *Runner) validateAll(ctx context.Context, doc *model.Document, extracted []*extract.SegmentResult) *model.AnalysisResult {
	v := validate.New(r.oracle)
	result := &model.AnalysisResult{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
	}

	var usage model.TokenUsage
	for _, res := range extracted {
		usage.Add(res.Usage)
		if res.Failed {
			result.Failures = append(result.Failures, model.SegmentFailure{
				SegmentID: res.Segment.ID,
				StartPage: res.Segment.StartPage,
				Target:    res.Target,
				Attempts:  res.Attempts,
				Error:     res.Err,
			})
			continue
		}
		switch res.Target {
		case model.TargetZonation:
			result.Zones = append(result.Zones, v.ValidateZones(ctx, res)...)
		case model.TargetObjectives:
			result.Objectives = append(result.Objectives, v.ValidateObjectives(ctx, res)...)
		case model.TargetCitations:
			result.Citations = append(result.Citations, v.ValidateCitations(ctx, res)...)
		}
	}
	result.TokenUsage = usage

	sortByPage(result)
	return result
}

// sortByPage orders each record class by source page. Slot-ordered assembly
// already yields this order; the sort guards the invariant against future
// re-segmentation changes.
func sortByPage(result *model.AnalysisResult) {
	sort.SliceStable(result.Zones, func(i, j int) bool {
		return result.Zones[i].Page < result.Zones[j].Page
	})
	sort.SliceStable(result.Objectives, func(i, j int) bool {
		return result.Objectives[i].Page < result.Objectives[j].Page
	})
	sort.SliceStable(result.Citations, func(i, j int) bool {
		return result.Citations[i].Page < result.Citations[j].Page
	})
	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].StartPage < result.Failures[j].StartPage
	})
}

func (r *Runner) score(result *model.AnalysisResult) {
	result.ZoneClassifications = r.engine.ClassifyZones(result.Zones)
	result.Classification = r.engine.OverallClassification(result.ZoneClassifications)
	result.Objectives = r.engine.ScoreObjectives(result.Objectives)
	result.Congruence = r.engine.ScoreCongruence(result.Objectives, result.Citations)
}

// finalStatus derives the terminal status. Every task failing yields failed;
// any failure or unverified record yields partial; otherwise complete.
func (r *Runner) finalStatus(extracted []*extract.SegmentResult, result *model.AnalysisResult) model.DocumentStatus {
	if len(extracted) > 0 && len(result.Failures) == len(extracted) {
		return model.StatusFailed
	}

	affected := map[string]bool{}
	for _, f := range result.Failures {
		switch f.Target {
		case model.TargetZonation:
			affected[model.ClassZonation] = true
		case model.TargetObjectives:
			affected[model.ClassObjectives] = true
		case model.TargetCitations:
			affected[model.ClassCitations] = true
		}
	}
	for _, z := range result.Zones {
		if z.Unverified {
			affected[model.ClassZonation] = true
		}
	}
	for _, o := range result.Objectives {
		if o.Unverified {
			affected[model.ClassObjectives] = true
		}
	}
	for _, c := range result.Citations {
		if c.Unverified {
			affected[model.ClassCitations] = true
		}
	}

	// Traceability gaps count as affected even without explicit flags.
	if !result.Complete() {
		if len(result.Congruence) != len(result.Objectives) {
			affected[model.ClassObjectives] = true
		}
		for _, z := range result.Zones {
			if z.Page <= 0 {
				affected[model.ClassZonation] = true
			}
		}
		for _, o := range result.Objectives {
			if o.Page <= 0 {
				affected[model.ClassObjectives] = true
			}
		}
		for _, c := range result.Citations {
			if c.Page <= 0 {
				affected[model.ClassCitations] = true
			}
		}
	}

	if len(affected) == 0 {
		return model.StatusComplete
	}
	for _, class := range []string{model.ClassZonation, model.ClassObjectives, model.ClassCitations} {
		if affected[class] {
			result.AffectedClasses = append(result.AffectedClasses, class)
		}
	}
	return model.StatusPartial
}
