package services

import (
	"context"
	"testing"
	"time"

	"backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdentifier(mv *mockVision) *DishIdentifier {
	return NewDishIdentifier(mv, utils.NewMemoryCache(), testRetry(), time.Hour, 5)
}

func TestIdentifyParsesAndOrdersCandidates(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", `{"candidates":[
		{"name":"french fries","confidence":0.7,"is_primary":false},
		{"name":"hamburger","confidence":0.92,"is_primary":true}
	]}`)

	cands, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "hamburger", cands[0].Name, "ordered by confidence")
	assert.True(t, cands[0].IsPrimary)
	assert.False(t, cands[1].IsPrimary)
}

func TestIdentifyRepairsMissingPrimary(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", `{"candidates":[
		{"name":"pizza","confidence":0.9,"is_primary":false},
		{"name":"flatbread","confidence":0.5,"is_primary":false}
	]}`)

	cands, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.True(t, cands[0].IsPrimary, "top candidate becomes primary when none is flagged")
}

func TestIdentifyStripsMarkdownFences(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", "Here you go:\n```json\n{\"candidates\":[{\"name\":\"sushi\",\"confidence\":0.88,\"is_primary\":true}]}\n```")

	cands, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "sushi", cands[0].Name)
}

func TestIdentifyCorrectiveRetryOnMalformedReply(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", "I think this is a hamburger!")
	mv.queue("identify food", `{"candidates":[{"name":"hamburger","confidence":0.9,"is_primary":true}]}`)

	cands, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "hamburger", cands[0].Name)
	assert.Equal(t, 2, mv.callCount("identify food"), "exactly one corrective retry")
}

func TestIdentifyMalformedAfterRetryFailsLoudly(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", "not json")
	mv.queue("identify food", "still not json")

	_, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Equal(t, 2, mv.callCount("identify food"))
}

func TestIdentifyRejectsIngredientLevelNames(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", `{"candidates":[{"name":"bun","confidence":0.9,"is_primary":true}]}`)
	mv.queue("identify food", `{"candidates":[{"name":"hamburger","confidence":0.9,"is_primary":true}]}`)

	cands, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "hamburger", cands[0].Name, "ingredient-level list triggers the corrective retry")
}

func TestIdentifyDropsStrayIngredientCandidate(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", `{"candidates":[
		{"name":"hamburger","confidence":0.9,"is_primary":true},
		{"name":"lettuce","confidence":0.5,"is_primary":false}
	]}`)

	cands, err := newTestIdentifier(mv).Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	require.Len(t, cands, 1, "the stray ingredient is filtered, not fatal")
	assert.Equal(t, "hamburger", cands[0].Name)
	assert.Equal(t, 1, mv.callCount("identify food"), "a usable list must not burn the corrective retry")
}

func TestIdentifyUsesCache(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", `{"candidates":[{"name":"ramen","confidence":0.9,"is_primary":true}]}`)

	di := newTestIdentifier(mv)
	img := []byte("same-photo")

	_, err := di.Identify(context.Background(), img)
	require.NoError(t, err)
	_, err = di.Identify(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, 1, mv.callCount("identify food"), "second call must hit the cache")
}

func TestIdentifyCapsCandidateCount(t *testing.T) {
	mv := newMockVision()
	mv.queue("identify food", `{"candidates":[
		{"name":"pad thai","confidence":0.9,"is_primary":true},
		{"name":"spring roll","confidence":0.8,"is_primary":false},
		{"name":"satay","confidence":0.7,"is_primary":false}
	]}`)

	di := NewDishIdentifier(mv, utils.NewMemoryCache(), testRetry(), time.Hour, 2)
	cands, err := di.Identify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}
