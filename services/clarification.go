package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"backend/models"
	"backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClarificationDialogue drives the bounded disambiguation loop. No state is
// held in process between turns; everything lives in the persisted session so
// each turn is a plain request/response pair.
type ClarificationDialogue struct {
	db       *gorm.DB
	vision   VisionInvoker
	retry    *utils.RetryPolicy
	maxTurns int
}

func NewClarificationDialogue(db *gorm.DB, vision VisionInvoker, retry *utils.RetryPolicy, maxTurns int) *ClarificationDialogue {
	return &ClarificationDialogue{db: db, vision: vision, retry: retry, maxTurns: maxTurns}
}

// ConfirmedDish is a resolved dialogue outcome: one dish plus quantity,
// ready to re-enter synthesis deterministically.
type ConfirmedDish struct {
	Name       string
	Servings   float64
	IncludeAll bool // user confirmed the whole plate, sides included
}

// TurnResult is what one Advance call produced. Exactly one of Confirmed,
// Abandoned, or a still-open Session-with-new-question applies.
type TurnResult struct {
	Session   *models.ClarificationSession
	Confirmed *ConfirmedDish
	Abandoned bool
}

// Open creates the persisted session with a question and quick-reply options
// derived from the known candidates, and moves it straight to awaiting the
// user.
func (cd *ClarificationDialogue) Open(ctx context.Context, capture *models.FoodCaptureSession, src SourceSet, reason string) (*models.ClarificationSession, error) {
	options := make([]string, 0, len(src.Candidates)+2)
	for _, c := range src.Candidates {
		options = append(options, c.Name)
	}
	if len(src.Candidates) > 1 {
		options = append(options, "all of them")
	}
	options = append(options, "none of these")

	optionsJSON, _ := json.Marshal(options)
	candidatesJSON, _ := json.Marshal(src.Candidates)
	estimateJSON := []byte("null")
	if src.Estimate != nil {
		estimateJSON, _ = json.Marshal(src.Estimate)
	}
	labelJSON := []byte("null")
	if src.Label != nil {
		labelJSON, _ = json.Marshal(src.Label)
	}

	session := &models.ClarificationSession{
		ID:               uuid.NewString(),
		CaptureSessionID: capture.ID,
		UserID:           capture.UserID,
		State:            models.ClarificationAwaitingUser,
		Question:         buildQuestion(src.Candidates, reason),
		OptionsJSON:      string(optionsJSON),
		CandidatesJSON:   string(candidatesJSON),
		EstimateJSON:     string(estimateJSON),
		LabelJSON:        string(labelJSON),
		MaxTurns:         cd.maxTurns,
	}
	if err := cd.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to persist clarification session: %w", err)
	}

	slog.Info("CLARIFY: opened", "session", session.ID, "reason", reason)
	return session, nil
}

// Advance processes one user reply. The turn either resolves to a confirmed
// dish, needs another bounded turn, or abandons (turn limit / cancellation).
func (cd *ClarificationDialogue) Advance(ctx context.Context, session *models.ClarificationSession, reply string) (*TurnResult, error) {
	if session.State != models.ClarificationAwaitingUser && session.State != models.ClarificationCreated {
		return nil, fmt.Errorf("clarification session %s is %s, not awaiting a response", session.ID, session.State)
	}

	turn := models.ClarificationTurn{
		SessionID: session.ID,
		Position:  len(session.Turns) + 1,
		Question:  session.Question,
		UserReply: reply,
	}
	if err := cd.db.WithContext(ctx).Create(&turn).Error; err != nil {
		return nil, fmt.Errorf("failed to persist clarification turn: %w", err)
	}
	session.Turns = append(session.Turns, turn)

	var candidates []models.DishCandidate
	_ = json.Unmarshal([]byte(session.CandidatesJSON), &candidates)

	outcome := cd.interpret(ctx, candidates, reply)
	switch {
	case outcome.cancel:
		cd.transition(ctx, session, models.ClarificationAbandoned)
		return &TurnResult{Session: session, Abandoned: true}, nil

	case outcome.confirmed != nil:
		cd.transition(ctx, session, models.ClarificationResolved)
		return &TurnResult{Session: session, Confirmed: outcome.confirmed}, nil
	}

	// Unresolved: another turn, unless the bound is hit.
	if len(session.Turns) >= session.MaxTurns {
		slog.Info("CLARIFY: turn limit reached, abandoning", "session", session.ID, "turns", len(session.Turns))
		cd.transition(ctx, session, models.ClarificationAbandoned)
		return &TurnResult{Session: session, Abandoned: true}, nil
	}

	session.Question = outcome.followUp
	session.State = models.ClarificationAwaitingUser
	if err := cd.db.WithContext(ctx).Save(session).Error; err != nil {
		return nil, fmt.Errorf("failed to persist clarification state: %w", err)
	}
	return &TurnResult{Session: session}, nil
}

// FallbackEstimate returns the snapshotted vision estimate for the abandoned
// path, or nil when stage 2 never produced one.
func (cd *ClarificationDialogue) FallbackEstimate(session *models.ClarificationSession) *models.NutritionEstimate {
	var est *models.NutritionEstimate
	if err := json.Unmarshal([]byte(session.EstimateJSON), &est); err != nil {
		return nil
	}
	return est
}

// LabelExtraction returns the snapshotted label read, if one was gathered
// before the dialogue opened. The confirmed re-entry needs it so a readable
// label still outranks the vision estimate after disambiguation.
func (cd *ClarificationDialogue) LabelExtraction(session *models.ClarificationSession) *models.NutritionLabelExtraction {
	var label *models.NutritionLabelExtraction
	if err := json.Unmarshal([]byte(session.LabelJSON), &label); err != nil {
		return nil
	}
	return label
}

// Candidates returns the snapshotted stage-1 candidates.
func (cd *ClarificationDialogue) Candidates(session *models.ClarificationSession) []models.DishCandidate {
	var cands []models.DishCandidate
	_ = json.Unmarshal([]byte(session.CandidatesJSON), &cands)
	return cands
}

func (cd *ClarificationDialogue) transition(ctx context.Context, session *models.ClarificationSession, state string) {
	session.State = state
	if err := cd.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Warn("CLARIFY: failed to persist transition", "session", session.ID, "state", state, "error", err)
	}
}

type replyOutcome struct {
	confirmed *ConfirmedDish
	cancel    bool
	followUp  string
}

var servingsPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:x\b|servings?\b|portions?\b)`)

// interpret resolves a reply against the candidate set: structured quick
// replies first, then a model call for free text. A reply that matches
// nothing asks a narrower follow-up instead of failing.
func (cd *ClarificationDialogue) interpret(ctx context.Context, candidates []models.DishCandidate, reply string) replyOutcome {
	text := strings.ToLower(strings.TrimSpace(reply))

	switch text {
	case "", "cancel", "stop", "none", "none of these", "skip":
		return replyOutcome{cancel: true}
	}

	servings := 1.0
	if m := servingsPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 && v <= 20 {
			servings = v
		}
	}

	if strings.Contains(text, "all of them") || strings.Contains(text, "everything") ||
		text == "all" || strings.Contains(text, "both") {
		name := ""
		if len(candidates) > 0 {
			name = primaryOf(candidates).Name
		}
		return replyOutcome{confirmed: &ConfirmedDish{Name: name, Servings: servings, IncludeAll: true}}
	}

	// Bare numeric quick reply: "1" picks the first option, one serving.
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(candidates) {
		return replyOutcome{confirmed: &ConfirmedDish{Name: candidates[n-1].Name, Servings: 1}}
	}

	for _, c := range candidates {
		if strings.Contains(text, strings.ToLower(c.Name)) {
			return replyOutcome{confirmed: &ConfirmedDish{Name: c.Name, Servings: servings}}
		}
	}

	// Free text: let the model map it onto the known candidates.
	if out := cd.interpretFreeText(ctx, candidates, reply); out != nil {
		return *out
	}

	return replyOutcome{followUp: fmt.Sprintf(
		"Sorry, I didn't catch that. Which of these is it: %s? You can also reply with a number of servings, or \"cancel\".",
		candidateNames(candidates))}
}

const interpretSystem = `You map a user's reply in a food-logging dialogue onto a known dish list.

Reply with ONLY a JSON object, no prose, no markdown formatting:
{
  "matched_dish": string,   // exact name from the list, or "" when no match
  "servings": number,       // portion count mentioned, 0 when unstated
  "include_all": boolean,   // user wants the whole plate counted
  "cancel": boolean         // user wants to stop
}`

func (cd *ClarificationDialogue) interpretFreeText(ctx context.Context, candidates []models.DishCandidate, reply string) *replyOutcome {
	prompt := fmt.Sprintf("Known dishes: %s.\nUser reply: %q", candidateNames(candidates), reply)

	var raw string
	err := cd.retry.Do(ctx, func() error {
		var ierr error
		raw, ierr = cd.vision.Invoke(ctx, interpretSystem, prompt, nil)
		return ierr
	})
	if err != nil {
		slog.Warn("CLARIFY: free-text interpretation failed", "error", err)
		return nil
	}

	var parsed struct {
		MatchedDish string  `json:"matched_dish"`
		Servings    float64 `json:"servings"`
		IncludeAll  bool    `json:"include_all"`
		Cancel      bool    `json:"cancel"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil
	}

	if parsed.Cancel {
		return &replyOutcome{cancel: true}
	}
	servings := parsed.Servings
	if servings <= 0 {
		servings = 1
	}
	if parsed.IncludeAll {
		name := ""
		if len(candidates) > 0 {
			name = primaryOf(candidates).Name
		}
		return &replyOutcome{confirmed: &ConfirmedDish{Name: name, Servings: servings, IncludeAll: true}}
	}
	for _, c := range candidates {
		if strings.EqualFold(c.Name, parsed.MatchedDish) {
			return &replyOutcome{confirmed: &ConfirmedDish{Name: c.Name, Servings: servings}}
		}
	}
	return nil
}

func buildQuestion(candidates []models.DishCandidate, reason string) string {
	if len(candidates) >= 2 {
		return fmt.Sprintf("I can see a few possibilities here (%s). Which should I log — %s? You can also say how many servings.",
			reason, candidateNames(candidates))
	}
	if len(candidates) == 1 {
		return fmt.Sprintf("I think this is %s, but I'm not certain (%s). Is that right? You can correct me or say how many servings.",
			candidates[0].Name, reason)
	}
	return "I couldn't identify this food confidently. What is it, and how many servings?"
}

func candidateNames(candidates []models.DishCandidate) string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
