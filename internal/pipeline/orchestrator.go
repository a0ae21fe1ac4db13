package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"segno/internal/config"
	"segno/internal/gates"
	"segno/internal/jobs"
	"segno/internal/logging"
	"segno/internal/render"
	"segno/internal/segment"
	"segno/internal/services"
	"segno/internal/sessions"
	"segno/internal/split"
	"segno/internal/storage"
	"segno/internal/vision"
)

// Orchestrator runs the processing state machine for one session at a time.
type Orchestrator struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *sessions.Store
	queue     *jobs.Store
	gateway   storage.Gateway
	renderer  Renderer
	segmenter Segmenter
	extractor Extractor
	splitter  Splitter
}

// New wires an orchestrator from its collaborators.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	store *sessions.Store,
	queue *jobs.Store,
	gateway storage.Gateway,
	renderer Renderer,
	segmenter Segmenter,
	extractor Extractor,
	splitter Splitter,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		store:     store,
		queue:     queue,
		gateway:   gateway,
		renderer:  renderer,
		segmenter: segmenter,
		extractor: extractor,
		splitter:  splitter,
	}
}

type runOptions struct {
	secondPass bool
}

// Process runs the first-pass pipeline for a freshly uploaded session.
func (o *Orchestrator) Process(ctx context.Context, sessionID string) error {
	return o.run(ctx, sessionID, runOptions{})
}

// RunSecondPass re-invokes extraction with the verification model against
// the same document. It never enqueues another second pass.
func (o *Orchestrator) RunSecondPass(ctx context.Context, sessionID string) error {
	return o.run(ctx, sessionID, runOptions{secondPass: true})
}

func (o *Orchestrator) run(ctx context.Context, sessionID string, opts runOptions) error {
	session, err := o.store.GetByID(ctx, sessionID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "load session", sessionID, err)
	}
	if session == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "load session", fmt.Sprintf("session %s does not exist", sessionID), nil)
	}

	logger := o.logger.With(logging.String(logging.FieldSessionID, session.ID))
	if opts.secondPass {
		session.SecondPassStatus = sessions.SecondPassRunning
		if err := o.store.Update(ctx, session); err != nil {
			return services.Wrap(services.ErrTransient, "pipeline", "mark second pass running", session.ID, err)
		}
	}

	runErr := o.execute(ctx, logger, session, opts)
	if runErr != nil && opts.secondPass {
		session.SecondPassStatus = sessions.SecondPassFailed
		session.ErrorMessage = runErr.Error()
		if updateErr := o.store.Update(ctx, session); updateErr != nil {
			logger.Warn("persist second-pass failure state", logging.Args(logging.Error(updateErr))...)
		}
	}
	return runErr
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, session *sessions.Session, opts runOptions) error {
	cache, err := render.NewCache(o.cfg, session.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "create render cache", session.ID, err)
	}
	defer func() {
		if releaseErr := cache.Release(); releaseErr != nil {
			logger.Warn("release render cache", logging.Args(logging.Error(releaseErr))...)
		}
	}()

	logger.Info("downloading original", logging.Args(logging.String(logging.FieldStage, "downloading"))...)
	info, err := o.download(ctx, session.StorageKey, cache.SourcePath())
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "download original", session.StorageKey, err)
	}
	if limit := int64(o.cfg.Pipeline.MaxFileSizeMB) << 20; limit > 0 && info.Size > limit {
		return o.failValidation(ctx, session, fmt.Sprintf("file size %d exceeds limit of %d MB", info.Size, o.cfg.Pipeline.MaxFileSizeMB))
	}

	pageCount, err := o.renderer.PageCount(cache.SourcePath())
	if err != nil {
		return o.failValidation(ctx, session, fmt.Sprintf("unreadable pdf: %v", err))
	}
	if o.cfg.Pipeline.MaxPages > 0 && pageCount > o.cfg.Pipeline.MaxPages {
		return o.failValidation(ctx, session, fmt.Sprintf("page count %d exceeds limit %d", pageCount, o.cfg.Pipeline.MaxPages))
	}
	session.PageCount = pageCount

	logger.Info("rendering pages", logging.Args(
		logging.String(logging.FieldStage, "rendering"),
		logging.Int("pages", pageCount),
	)...)
	images, err := o.renderer.RenderPages(ctx, cache.SourcePath(), cache.Dir())
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "pipeline", "render pages", session.ID, err)
	}

	headers, err := o.renderer.ExtractHeaders(cache.SourcePath(), o.cfg.Render.HeaderCropFraction)
	if err != nil {
		// An unreadable text layer is the same as no text layer.
		logger.Warn("text layer extraction failed", logging.Args(logging.Error(err))...)
		headers = nil
	}
	coverage := render.Coverage(headers)

	segAttempted := false
	var segResult segment.Result
	if coverage > 0 {
		segResult = o.segmenter.Segment(headers)
		segAttempted = true
		conf := segResult.Confidence
		session.SegmentationConfidence = &conf
		logger.Info("deterministic segmentation", logging.Args(
			logging.String(logging.FieldStage, "segmenting"),
			logging.Int("segments", len(segResult.Segments)),
			logging.Int("confidence", conf),
			logging.Float64("coverage", coverage),
		)...)
	} else {
		session.SegmentationConfidence = nil
	}

	seeds := o.seedLabels(ctx, logger, images, segAttempted, segResult)

	result, err := o.extractor.ExtractDocument(ctx, vision.ExtractRequest{
		PageImages: imagePaths(images),
		SeedLabels: seeds,
		Model:      o.modelFor(opts),
	})
	if err != nil {
		return err
	}

	extractionConf := result.ConfidenceScore
	session.ExtractionConfidence = &extractionConf
	metadata := result.Metadata
	if result.IsMultiPart {
		metadata.IsMultiPart = true
	}
	session.Metadata = &metadata
	session.SetFinalConfidence()
	final := *session.FinalConfidence

	logger.Info("extraction complete", logging.Args(
		logging.String(logging.FieldStage, "extracting"),
		logging.Int("extraction_confidence", extractionConf),
		logging.Int("final_confidence", final),
		logging.Bool("multi_part", metadata.IsMultiPart),
	)...)

	if final < o.cfg.Pipeline.SkipParseThreshold {
		return o.finishNoParse(ctx, logger, session, opts)
	}

	parts, err := o.splitAndUpload(ctx, session, cache, result.Instructions, pageCount)
	if err != nil {
		return err
	}
	session.Parts = parts
	session.ParseStatus = sessions.Parsed

	if final < o.cfg.Pipeline.AutoApproveThreshold {
		return o.finishSecondPassRoute(ctx, logger, session, opts)
	}
	return o.finishAutoApprove(ctx, logger, session, segAttempted, segResult, final, opts)
}

func (o *Orchestrator) finishNoParse(ctx context.Context, logger *slog.Logger, session *sessions.Session, opts runOptions) error {
	session.RoutingDecision = sessions.RouteNoParseSecondPass
	session.ParseStatus = sessions.NotParsed
	session.Parts = nil
	session.RequiresHumanReview = true
	o.stampSecondPassStatus(session, opts)
	if err := o.store.Update(ctx, session); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "persist session", session.ID, err)
	}
	logger.Info("routing decision", logging.Args(
		logging.String(logging.FieldStage, "gating"),
		logging.String("decision", string(session.RoutingDecision)),
	)...)
	return o.maybeEnqueueSecondPass(ctx, logger, session, opts)
}

func (o *Orchestrator) finishSecondPassRoute(ctx context.Context, logger *slog.Logger, session *sessions.Session, opts runOptions) error {
	session.RoutingDecision = sessions.RouteAutoParseSecondPass
	session.RequiresHumanReview = true
	o.stampSecondPassStatus(session, opts)
	if err := o.store.Update(ctx, session); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "persist session", session.ID, err)
	}
	logger.Info("routing decision", logging.Args(
		logging.String(logging.FieldStage, "gating"),
		logging.String("decision", string(session.RoutingDecision)),
		logging.Int("parts", len(session.Parts)),
	)...)
	return o.maybeEnqueueSecondPass(ctx, logger, session, opts)
}

func (o *Orchestrator) finishAutoApprove(
	ctx context.Context,
	logger *slog.Logger,
	session *sessions.Session,
	segAttempted bool,
	segResult segment.Result,
	final int,
	opts runOptions,
) error {
	session.RoutingDecision = sessions.RouteAutoParseAutoApprove

	if !o.cfg.Pipeline.AutonomousCommit {
		// Gating exists to protect autonomous commits; without that mode
		// every parse waits for a human.
		session.RequiresHumanReview = true
	} else {
		gateResult := gates.Evaluate(gates.Input{
			Parts:                  session.Parts,
			IsMultiPart:            session.Metadata != nil && session.Metadata.IsMultiPart,
			TotalPages:             session.PageCount,
			SegmentationAttempted:  segAttempted,
			SegmentationConfidence: segResult.Confidence,
			FinalConfidence:        final,
			MaxPagesPerPart:        o.cfg.Pipeline.MaxPagesPerPart,
			AutonomousThreshold:    o.cfg.Pipeline.AutonomousApprovalThreshold,
		})
		session.RequiresHumanReview = !gateResult.Passed
		if !gateResult.Passed {
			logger.Info("quality gate fired", logging.Args(
				logging.String(logging.FieldStage, "gating"),
				logging.String("gate", gateResult.Gate),
				logging.String("reason", gateResult.Reason),
			)...)
		}
	}

	if opts.secondPass {
		session.SecondPassStatus = sessions.SecondPassDone
	}
	if err := o.store.Update(ctx, session); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "persist session", session.ID, err)
	}
	logger.Info("routing decision", logging.Args(
		logging.String(logging.FieldStage, "gating"),
		logging.String("decision", string(session.RoutingDecision)),
		logging.Bool("requires_review", session.RequiresHumanReview),
	)...)

	if !session.RequiresHumanReview {
		if _, err := o.queue.Enqueue(ctx, jobs.TypeAutoCommit, session.ID, 0, o.cfg.Workflow.JobMaxAttempts); err != nil {
			return services.Wrap(services.ErrTransient, "pipeline", "enqueue auto commit", session.ID, err)
		}
	}
	return nil
}

// stampSecondPassStatus records where the verification pass stands for the
// routes that request (or conclude) one.
func (o *Orchestrator) stampSecondPassStatus(session *sessions.Session, opts runOptions) {
	if opts.secondPass {
		session.SecondPassStatus = sessions.SecondPassDone
		return
	}
	session.SecondPassStatus = sessions.SecondPassQueued
}

func (o *Orchestrator) maybeEnqueueSecondPass(ctx context.Context, logger *slog.Logger, session *sessions.Session, opts runOptions) error {
	if opts.secondPass {
		// A second pass never schedules another one; the session now waits
		// for a human.
		return nil
	}
	if _, err := o.queue.Enqueue(ctx, jobs.TypeSecondPass, session.ID, 0, o.cfg.Workflow.JobMaxAttempts); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "enqueue second pass", session.ID, err)
	}
	logger.Info("second pass enqueued", logging.Args(logging.String(logging.FieldJobType, string(jobs.TypeSecondPass)))...)
	return nil
}

func (o *Orchestrator) seedLabels(
	ctx context.Context,
	logger *slog.Logger,
	images []render.PageImage,
	segAttempted bool,
	segResult segment.Result,
) []vision.HeaderLabel {
	if !segAttempted {
		return nil
	}
	if segResult.Confidence >= o.cfg.Pipeline.SegmenterTrustThreshold {
		var seeds []vision.HeaderLabel
		for _, seg := range segResult.Segments {
			if seg.Label == "" {
				continue
			}
			seeds = append(seeds, vision.HeaderLabel{
				Page:       seg.FromPage,
				Label:      seg.Label,
				Confidence: segResult.Confidence,
			})
		}
		return seeds
	}

	// Low deterministic confidence with a text layer present: ask the model
	// to label the header crops first. The pass is advisory; its failure
	// must not fail the run.
	labels, err := o.extractor.LabelHeaders(ctx, headerPaths(images))
	if err != nil {
		logger.Warn("header labeling pass failed", logging.Args(logging.Error(err))...)
		return nil
	}
	return labels
}

func (o *Orchestrator) splitAndUpload(
	ctx context.Context,
	session *sessions.Session,
	cache *render.Cache,
	instructions []split.CuttingInstruction,
	pageCount int,
) ([]sessions.Part, error) {
	normalized, err := split.Normalize(instructions, pageCount)
	if err != nil {
		// Bad page math from the model; a retried attempt may extract sane
		// instructions.
		return nil, services.Wrap(services.ErrTransient, "pipeline", "normalize instructions", session.ID, err)
	}
	healed := split.FillGaps(normalized, pageCount)

	source, err := os.Open(cache.SourcePath())
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "open cached original", session.ID, err)
	}
	results, err := o.splitter.Split(source, healed)
	_ = source.Close()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "split document", session.ID, err)
	}

	parts := make([]sessions.Part, len(results))
	group, groupCtx := errgroup.WithContext(ctx)
	limit := o.cfg.Pipeline.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	group.SetLimit(limit)
	for i, result := range results {
		group.Go(func() error {
			key := storage.PartKey(o.cfg.Storage.KeyPrefix, session.ID, i+1)
			if _, err := o.gateway.Upload(groupCtx, key, "application/pdf", bytes.NewReader(result.Data)); err != nil {
				return fmt.Errorf("upload part %d: %w", i+1, err)
			}
			instr := result.Instruction
			parts[i] = sessions.Part{
				Instrument:    instr.Instrument,
				PartName:      instr.PartName,
				Section:       instr.Section,
				Transposition: instr.Transposition,
				PartNumber:    instr.PartNumber,
				FromPage:      instr.FromPage,
				ToPage:        instr.ToPage,
				StorageKey:    key,
				PageCount:     result.PageCount,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "upload parts", session.ID, err)
	}
	return parts, nil
}

// RunAutoCommit finalizes a gated session. It is a no-op when review became
// required after the job was queued, and idempotent for retried jobs.
func (o *Orchestrator) RunAutoCommit(ctx context.Context, sessionID string) error {
	session, err := o.store.GetByID(ctx, sessionID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "load session", sessionID, err)
	}
	if session == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "load session", fmt.Sprintf("session %s does not exist", sessionID), nil)
	}
	logger := o.logger.With(logging.String(logging.FieldSessionID, session.ID))
	if session.RequiresHumanReview {
		logger.Info("auto commit skipped, session now requires review")
		return nil
	}
	if session.CommittedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	session.CommittedAt = &now
	if err := o.store.Update(ctx, session); err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "persist commit", session.ID, err)
	}
	logger.Info("session committed autonomously")
	return nil
}

func (o *Orchestrator) download(ctx context.Context, key, dest string) (storage.ObjectInfo, error) {
	reader, info, err := o.gateway.Download(ctx, key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	defer reader.Close()

	file, err := os.Create(dest)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return storage.ObjectInfo{}, fmt.Errorf("copy original: %w", err)
	}
	if err := file.Close(); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("close %s: %w", dest, err)
	}
	return info, nil
}

// failValidation records a terminal data problem on the session and returns
// a non-retryable error.
func (o *Orchestrator) failValidation(ctx context.Context, session *sessions.Session, message string) error {
	session.ErrorMessage = message
	session.RequiresHumanReview = true
	if err := o.store.Update(ctx, session); err != nil {
		o.logger.Warn("persist validation failure", logging.Args(
			logging.String(logging.FieldSessionID, session.ID),
			logging.Error(err),
		)...)
	}
	return services.Wrap(services.ErrValidation, "pipeline", "validate upload", message, nil)
}

func (o *Orchestrator) modelFor(opts runOptions) string {
	if opts.secondPass && o.cfg.Vision.VerificationModel != "" {
		return o.cfg.Vision.VerificationModel
	}
	return ""
}

func imagePaths(images []render.PageImage) []string {
	paths := make([]string, len(images))
	for i, image := range images {
		paths[i] = image.ImagePath
	}
	return paths
}

func headerPaths(images []render.PageImage) []string {
	paths := make([]string, len(images))
	for i, image := range images {
		paths[i] = image.HeaderPath
	}
	return paths
}
