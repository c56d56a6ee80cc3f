package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"backend/models"
	"backend/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mockVision scripts vision replies per stage, keyed by a substring of the
// system prompt. Each matching call pops the next scripted reply.
type mockVision struct {
	replies map[string][]string // system-prompt substring -> queued replies
	errs    map[string]error    // substring -> error returned instead
	calls   []string            // system prompts seen, in order
}

func newMockVision() *mockVision {
	return &mockVision{replies: map[string][]string{}, errs: map[string]error{}}
}

func (m *mockVision) queue(promptPart, reply string) {
	m.replies[promptPart] = append(m.replies[promptPart], reply)
}

func (m *mockVision) fail(promptPart string, err error) {
	m.errs[promptPart] = err
}

func (m *mockVision) Invoke(ctx context.Context, system, user string, images [][]byte) (string, error) {
	m.calls = append(m.calls, system)
	for part, err := range m.errs {
		if strings.Contains(system, part) {
			return "", err
		}
	}
	for part, queued := range m.replies {
		if !strings.Contains(system, part) {
			continue
		}
		if len(queued) == 0 {
			return "", nil
		}
		reply := queued[0]
		if len(queued) > 1 {
			m.replies[part] = queued[1:]
		}
		return reply, nil
	}
	return "", nil
}

func (m *mockVision) callCount(promptPart string) int {
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c, promptPart) {
			n++
		}
	}
	return n
}

func testRetry() *utils.RetryPolicy {
	return &utils.RetryPolicy{InitialInterval: time.Millisecond, Multiplier: 1, MaxAttempts: 3, Jitter: 0}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.FoodCaptureSession{},
		&models.ClarificationSession{},
		&models.ClarificationTurn{},
		&models.SynthesizedNutritionRecord{},
		&models.ProvenanceEntry{},
		&models.ReferenceFood{},
		&models.CachedProduct{},
	))
	return db
}

func seedReference(t *testing.T, db *gorm.DB, foods ...models.ReferenceFood) {
	t.Helper()
	for i := range foods {
		if foods[i].NormalizedName == "" {
			foods[i].NormalizedName = utils.NormalizeFoodName(foods[i].Name)
		}
		require.NoError(t, db.Create(&foods[i]).Error)
	}
}
