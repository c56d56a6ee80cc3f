package services

import (
	"context"
	"testing"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDialogue(t *testing.T, mv *mockVision) (*ClarificationDialogue, *models.ClarificationSession) {
	t.Helper()
	db := testDB(t)
	cd := NewClarificationDialogue(db, mv, testRetry(), 4)

	capture := &models.FoodCaptureSession{ID: "cap-1", UserID: 7, Status: models.CaptureInProgress}
	require.NoError(t, db.Create(capture).Error)

	src := SourceSet{
		Candidates: []models.DishCandidate{
			{Name: "burrito", Confidence: 0.8, IsPrimary: true},
			{Name: "wrap", Confidence: 0.75},
		},
		Estimate: &models.NutritionEstimate{
			Calories: 500, Protein: 22, Carbs: 55, Fat: 20, Fiber: 5,
			Confidence: 0.8, Servings: 1, Source: models.SourceAIVision,
		},
	}
	session, err := cd.Open(context.Background(), capture, src, "top candidates too close")
	require.NoError(t, err)
	return cd, session
}

func TestOpenPersistsQuestionAndOptions(t *testing.T) {
	_, session := newTestDialogue(t, newMockVision())

	assert.Equal(t, models.ClarificationAwaitingUser, session.State)
	assert.Contains(t, session.Question, "burrito")
	assert.Contains(t, session.Question, "wrap")
	assert.Contains(t, session.OptionsJSON, "all of them")
	assert.Contains(t, session.OptionsJSON, "none of these")
	assert.Equal(t, 4, session.MaxTurns)
}

func TestAdvanceResolvesOnCandidateNameReply(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())

	res, err := cd.Advance(context.Background(), session, "it's the burrito")
	require.NoError(t, err)
	require.NotNil(t, res.Confirmed)
	assert.Equal(t, "burrito", res.Confirmed.Name)
	assert.Equal(t, 1.0, res.Confirmed.Servings)
	assert.Equal(t, models.ClarificationResolved, session.State)
}

func TestAdvanceParsesServings(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())

	res, err := cd.Advance(context.Background(), session, "burrito, 2 servings")
	require.NoError(t, err)
	require.NotNil(t, res.Confirmed)
	assert.Equal(t, 2.0, res.Confirmed.Servings)
}

func TestAdvanceNumericQuickReply(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())

	res, err := cd.Advance(context.Background(), session, "2")
	require.NoError(t, err)
	require.NotNil(t, res.Confirmed)
	assert.Equal(t, "wrap", res.Confirmed.Name, "bare number picks the nth candidate")
}

func TestAdvanceAllOfThem(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())

	res, err := cd.Advance(context.Background(), session, "all of them")
	require.NoError(t, err)
	require.NotNil(t, res.Confirmed)
	assert.True(t, res.Confirmed.IncludeAll)
	assert.Equal(t, "burrito", res.Confirmed.Name, "primary anchors the whole-plate record")
}

func TestAdvanceCancelAbandons(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())

	res, err := cd.Advance(context.Background(), session, "none of these")
	require.NoError(t, err)
	assert.True(t, res.Abandoned)
	assert.Equal(t, models.ClarificationAbandoned, session.State)
}

func TestAdvanceUnmatchedReplyAsksFollowUp(t *testing.T) {
	mv := newMockVision()
	mv.queue("food-logging dialogue", `{"matched_dish":"","servings":0,"include_all":false,"cancel":false}`)
	cd, session := newTestDialogue(t, mv)

	res, err := cd.Advance(context.Background(), session, "hmm not sure")
	require.NoError(t, err)
	assert.Nil(t, res.Confirmed)
	assert.False(t, res.Abandoned)
	assert.Contains(t, session.Question, "burrito, wrap")
	assert.Len(t, session.Turns, 1)
}

func TestAdvanceFreeTextInterpretedByModel(t *testing.T) {
	mv := newMockVision()
	mv.queue("food-logging dialogue", `{"matched_dish":"wrap","servings":1.5,"include_all":false,"cancel":false}`)
	cd, session := newTestDialogue(t, mv)

	res, err := cd.Advance(context.Background(), session, "the tortilla thing, one and a half")
	require.NoError(t, err)
	require.NotNil(t, res.Confirmed)
	assert.Equal(t, "wrap", res.Confirmed.Name)
	assert.Equal(t, 1.5, res.Confirmed.Servings)
}

func TestAdvanceTurnLimitAbandons(t *testing.T) {
	mv := newMockVision()
	mv.queue("food-logging dialogue", `{"matched_dish":"","servings":0,"include_all":false,"cancel":false}`)
	cd, session := newTestDialogue(t, mv)

	var res *TurnResult
	var err error
	for i := 0; i < session.MaxTurns; i++ {
		res, err = cd.Advance(context.Background(), session, "no idea")
		require.NoError(t, err)
	}
	assert.True(t, res.Abandoned, "dialogue must abandon at the turn bound")
	assert.Equal(t, models.ClarificationAbandoned, session.State)
	assert.Len(t, session.Turns, session.MaxTurns)
}

func TestAdvanceRejectsClosedSession(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())
	_, err := cd.Advance(context.Background(), session, "cancel")
	require.NoError(t, err)

	_, err = cd.Advance(context.Background(), session, "burrito")
	assert.Error(t, err, "a closed session takes no further turns")
}

func TestSnapshotsSurviveRoundTrip(t *testing.T) {
	cd, session := newTestDialogue(t, newMockVision())

	cands := cd.Candidates(session)
	require.Len(t, cands, 2)
	assert.Equal(t, "burrito", cands[0].Name)

	est := cd.FallbackEstimate(session)
	require.NotNil(t, est)
	assert.Equal(t, 500.0, est.Calories)
}
