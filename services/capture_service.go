package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"backend/models"
	"backend/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// PhotoStore uploads a capture photo and returns its durable URL. Nil-able:
// analysis runs fine without a photo archive.
type PhotoStore func(imageData []byte, contentType, sessionID, kind string) (string, error)

// CaptureService orchestrates one FoodCaptureSession end to end: concurrent
// source gathering, synthesis, and the clarification detour when the evidence
// is ambiguous.
type CaptureService struct {
	db        *gorm.DB
	dish      *DishIdentifier
	portion   *PortionEstimator
	label     *LabelOCRExtractor
	barcode   *BarcodeResolver
	reference *ReferenceDatabaseMatcher
	engine    *SynthesisEngine
	dialogue  *ClarificationDialogue
	gate      *RekognitionService // optional food-presence pre-filter
	hub       *RealtimeHub        // optional
	photos    PhotoStore          // optional
	deadline  time.Duration
}

func NewCaptureService(
	db *gorm.DB,
	dish *DishIdentifier,
	portion *PortionEstimator,
	label *LabelOCRExtractor,
	barcode *BarcodeResolver,
	reference *ReferenceDatabaseMatcher,
	engine *SynthesisEngine,
	dialogue *ClarificationDialogue,
	gate *RekognitionService,
	hub *RealtimeHub,
	photos PhotoStore,
	deadline time.Duration,
) *CaptureService {
	return &CaptureService{
		db: db, dish: dish, portion: portion, label: label, barcode: barcode,
		reference: reference, engine: engine, dialogue: dialogue,
		gate: gate, hub: hub, photos: photos, deadline: deadline,
	}
}

// AnalyzeInput is one capture: the food photo, plus an optional barcode and
// an optional nutrition-label photo.
type AnalyzeInput struct {
	UserID           uint
	Photo            []byte
	PhotoContentType string
	LabelPhoto       []byte
	Barcode          string
}

// AnalyzeResult carries either a finalized record or an open clarification
// session, never both.
type AnalyzeResult struct {
	Record        *models.SynthesizedNutritionRecord `json:"record,omitempty"`
	Clarification *models.ClarificationSession       `json:"clarification,omitempty"`
}

// AnalyzeFoodCapture is the engine entry point. All requested sources run
// concurrently under one deadline; a source that misses the deadline is
// absent, never fatal. Ambiguity defers to the clarification dialogue.
func (cs *CaptureService) AnalyzeFoodCapture(ctx context.Context, in AnalyzeInput) (*AnalyzeResult, error) {
	capture := &models.FoodCaptureSession{
		ID:      uuid.NewString(),
		UserID:  in.UserID,
		Barcode: in.Barcode,
		Status:  models.CaptureInProgress,
	}
	if err := cs.db.WithContext(ctx).Create(capture).Error; err != nil {
		return nil, fmt.Errorf("failed to create capture session: %w", err)
	}
	cs.archivePhotos(capture, in)

	if cs.gate != nil && !cs.gate.ContainsFood(ctx, in.Photo) {
		cs.markSession(capture, models.CaptureFailed)
		return nil, fmt.Errorf("no food detected in photo: %w", ErrNoSourceAvailable)
	}

	src, stageErr, timedOut := cs.gatherSources(ctx, in)

	rec, err := cs.engine.Synthesize(src)
	if err != nil {
		cs.markSession(capture, models.CaptureFailed)
		return nil, classifyEmptyOutcome(stageErr, err, timedOut)
	}

	if need, reason := cs.engine.NeedsClarification(src, rec); need {
		session, err := cs.dialogue.Open(ctx, capture, src, reason)
		if err != nil {
			return nil, err
		}
		if cs.hub != nil {
			cs.hub.BroadcastEvent(in.UserID, "clarification.opened", session)
		}
		return &AnalyzeResult{Clarification: session}, nil
	}

	if err := cs.persistRecord(ctx, capture, rec); err != nil {
		return nil, err
	}
	return &AnalyzeResult{Record: rec}, nil
}

// gatherSources fans out to every requested source under the session
// deadline. Barcode and label OCR are independent of dish identification and
// run alongside it; portion estimation waits on the primary dish.
func (cs *CaptureService) gatherSources(ctx context.Context, in AnalyzeInput) (SourceSet, error, bool) {
	ctx, cancel := context.WithTimeout(ctx, cs.deadline)
	defer cancel()

	var src SourceSet
	var mu sync.Mutex
	var visionErr error
	setVisionErr := func(err error) {
		mu.Lock()
		if visionErr == nil || IsMalformed(err) {
			visionErr = err
		}
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	// Source absence is modelled as nil, so goroutines never return errors
	// that could cancel the siblings.
	g.Go(func() error {
		src.Barcode = cs.barcode.Resolve(gctx, in.Barcode)
		return nil
	})
	g.Go(func() error {
		if len(in.LabelPhoto) == 0 {
			return nil
		}
		extraction, err := cs.label.Extract(gctx, in.LabelPhoto)
		if err != nil {
			slog.Warn("CAPTURE: label extraction unavailable", "error", err)
			setVisionErr(err)
			return nil
		}
		src.Label = extraction
		return nil
	})
	g.Go(func() error {
		candidates, err := cs.dish.Identify(gctx, in.Photo)
		if err != nil {
			slog.Warn("CAPTURE: dish identification unavailable", "error", err)
			setVisionErr(err)
			return nil
		}
		src.Candidates = candidates

		primary := primaryOf(candidates)
		siblings := make([]string, 0, len(candidates)-1)
		for _, c := range candidates {
			if !c.IsPrimary {
				siblings = append(siblings, c.Name)
			}
		}

		estimate, err := cs.portion.Estimate(gctx, in.Photo, primary.Name, siblings)
		if err != nil {
			slog.Warn("CAPTURE: portion estimate unavailable", "error", err)
			setVisionErr(err)
		} else {
			src.Estimate = estimate
		}

		src.Reference = cs.reference.Match(gctx, primary.Name)
		return nil
	})
	_ = g.Wait()

	return src, visionErr, errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// classifyEmptyOutcome decides what an empty source set means for the caller:
// a malformed model response surfaces as such, a blown deadline with nothing
// gathered as a timeout, anything else as no source available.
func classifyEmptyOutcome(stageErr, synthErr error, timedOut bool) error {
	if stageErr != nil && IsMalformed(stageErr) {
		return stageErr
	}
	if timedOut {
		return ErrSessionTimeout
	}
	return synthErr
}

// RespondToClarification advances an open dialogue by one turn.
func (cs *CaptureService) RespondToClarification(ctx context.Context, userID uint, sessionID, reply string) (*AnalyzeResult, error) {
	var session models.ClarificationSession
	err := cs.db.WithContext(ctx).Preload("Turns").First(&session, "id = ? AND user_id = ?", sessionID, userID).Error
	if err != nil {
		return nil, fmt.Errorf("clarification session not found: %w", err)
	}

	var capture models.FoodCaptureSession
	if err := cs.db.WithContext(ctx).First(&capture, "id = ?", session.CaptureSessionID).Error; err != nil {
		return nil, fmt.Errorf("capture session not found: %w", err)
	}

	result, err := cs.dialogue.Advance(ctx, &session, reply)
	if err != nil {
		return nil, err
	}

	switch {
	case result.Confirmed != nil:
		rec, err := cs.synthesizeConfirmed(ctx, &session, result.Confirmed)
		if err != nil {
			return nil, err
		}
		if err := cs.persistRecord(ctx, &capture, rec); err != nil {
			return nil, err
		}
		if cs.hub != nil {
			cs.hub.BroadcastEvent(userID, "clarification.resolved", rec)
		}
		return &AnalyzeResult{Record: rec}, nil

	case result.Abandoned:
		rec := cs.fallbackRecord(&session)
		cs.markSession(&capture, models.CaptureAbandoned)
		if rec != nil {
			if err := cs.persistRecord(ctx, &capture, rec); err != nil {
				return nil, err
			}
			return &AnalyzeResult{Record: rec}, nil
		}
		cs.markSession(&capture, models.CaptureFailed)
		return nil, fmt.Errorf("%w: %w", ErrClarificationAbandoned, ErrNoSourceAvailable)

	default:
		return &AnalyzeResult{Clarification: result.Session}, nil
	}
}

// synthesizeConfirmed re-enters the engine deterministically with the
// confirmed dish fixed: candidate list collapses to the confirmation, the
// reference database is re-queried for it, and the snapshotted estimate
// supplies the portion multiplier. The dialogue is never re-opened from here.
func (cs *CaptureService) synthesizeConfirmed(ctx context.Context, session *models.ClarificationSession, confirmed *ConfirmedDish) (*models.SynthesizedNutritionRecord, error) {
	candidates := cs.dialogue.Candidates(session)
	estimate := cs.dialogue.FallbackEstimate(session)

	name := confirmed.Name
	if name == "" && len(candidates) > 0 {
		name = primaryOf(candidates).Name
	}

	src := SourceSet{
		Candidates: []models.DishCandidate{{Name: name, Confidence: 1.0, IsPrimary: true}},
		Label:      cs.dialogue.LabelExtraction(session),
	}
	if estimate != nil {
		e := *estimate
		if confirmed.Servings > 0 && confirmed.Servings != e.Servings {
			// User-stated quantity overrides the visual read.
			if e.Servings > 0 {
				f := confirmed.Servings / e.Servings
				e.Calories *= f
				e.Protein *= f
				e.Carbs *= f
				e.Fat *= f
				e.Fiber *= f
			}
			e.Servings = confirmed.Servings
			e.ServingDescription = fmt.Sprintf("%.2g serving(s), user confirmed", confirmed.Servings)
		}
		e.Confidence = 1.0 // the user vouched for dish and quantity
		src.Estimate = &e
	}
	src.Reference = cs.reference.Match(ctx, name)

	rec, err := cs.engine.Synthesize(src)
	if err != nil {
		return nil, err
	}

	if confirmed.IncludeAll && len(candidates) > 1 {
		cs.layerInSides(ctx, rec, candidates)
	}
	return rec, nil
}

// layerInSides folds reference-matched side dishes into a whole-plate record
// after the user asked for everything to be counted.
func (cs *CaptureService) layerInSides(ctx context.Context, rec *models.SynthesizedNutritionRecord, candidates []models.DishCandidate) {
	names := []string{rec.DishName}
	for _, c := range candidates {
		if c.IsPrimary || strings.EqualFold(c.Name, rec.DishName) {
			continue
		}
		m := cs.reference.Match(ctx, c.Name)
		if m == nil {
			continue
		}
		rec.Calories += m.Food.Calories
		rec.Protein += m.Food.Protein
		rec.Carbs += m.Food.Carbs
		rec.Fat += m.Food.Fat
		rec.Fiber += m.Food.Fiber
		names = append(names, c.Name)
	}
	if len(names) > 1 {
		rec.DishName = strings.Join(names, " with ")
	}
}

// fallbackRecord is the lowest-risk outcome of an abandoned dialogue: the
// original primary candidate's vision estimate, flagged for confirmation.
func (cs *CaptureService) fallbackRecord(session *models.ClarificationSession) *models.SynthesizedNutritionRecord {
	estimate := cs.dialogue.FallbackEstimate(session)
	candidates := cs.dialogue.Candidates(session)
	if estimate == nil {
		return nil
	}

	src := SourceSet{Candidates: candidates, Estimate: estimate}
	rec, err := cs.engine.Synthesize(src)
	if err != nil {
		return nil
	}
	rec.NeedsConfirmation = true
	for i := range rec.Provenance {
		if rec.Provenance[i].Source == models.SourceAIVision && rec.Provenance[i].Used {
			rec.Provenance[i].Reason = "clarification abandoned, flagged fallback to primary candidate estimate"
		}
	}
	return rec
}

func (cs *CaptureService) persistRecord(ctx context.Context, capture *models.FoodCaptureSession, rec *models.SynthesizedNutritionRecord) error {
	rec.UserID = capture.UserID
	rec.CaptureSessionID = capture.ID
	rec.Warnings = utils.WarningsToString(utils.AssessRecordSafety(
		rec.Calories, rec.Protein, rec.Carbs, rec.Fat, rec.Fiber, 0, 0))

	if err := cs.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}

	capture.RecordID = &rec.ID
	if capture.Status != models.CaptureAbandoned {
		capture.Status = models.CaptureResolved
	}
	if err := cs.db.WithContext(ctx).Save(capture).Error; err != nil {
		return fmt.Errorf("failed to update capture session: %w", err)
	}

	if cs.hub != nil {
		cs.hub.BroadcastEvent(capture.UserID, "capture.resolved", rec)
	}
	slog.Info("CAPTURE: record persisted",
		"session", capture.ID, "dish", rec.DishName, "source", rec.Source,
		"calories", rec.Calories, "confidence", rec.Confidence,
		"needs_confirmation", rec.NeedsConfirmation)
	return nil
}

func (cs *CaptureService) markSession(capture *models.FoodCaptureSession, status string) {
	capture.Status = status
	if err := cs.db.Save(capture).Error; err != nil {
		slog.Warn("CAPTURE: failed to update session status", "session", capture.ID, "error", err)
	}
}

func (cs *CaptureService) archivePhotos(capture *models.FoodCaptureSession, in AnalyzeInput) {
	if cs.photos == nil {
		return
	}
	if url, err := cs.photos(in.Photo, in.PhotoContentType, capture.ID, "food"); err == nil {
		capture.PhotoURL = url
	} else {
		slog.Warn("CAPTURE: photo archive failed", "error", err)
	}
	if len(in.LabelPhoto) > 0 {
		if url, err := cs.photos(in.LabelPhoto, in.PhotoContentType, capture.ID, "label"); err == nil {
			capture.LabelPhotoURL = url
		}
	}
	if capture.PhotoURL != "" || capture.LabelPhotoURL != "" {
		if err := cs.db.Save(capture).Error; err != nil {
			slog.Warn("CAPTURE: failed to save photo references", "error", err)
		}
	}
}
