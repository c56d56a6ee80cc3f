package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backend/utils"
)

// visionStage bundles what every vision-backed stage needs: the model client,
// the shared response cache and the retry policy. Stages embed it.
type visionStage struct {
	vision VisionInvoker
	cache  utils.ResponseCache
	retry  *utils.RetryPolicy
	ttl    time.Duration
}

const correctiveSuffix = "\n\nYour previous reply was not valid JSON matching the required schema. " +
	"Reply again with ONLY the JSON object, no prose, no markdown fences."

// invokeJSON runs one cached, retried vision call and strictly parses the
// reply into out. An unparseable reply gets exactly one corrective retry;
// failing that the caller receives a MalformedResponseError, never a silent
// nil. validate checks the decoded shape, not just JSON syntax.
func (vs *visionStage) invokeJSON(ctx context.Context, stage, system, user string, images [][]byte, cacheCtx []string, out any, validate func() error) error {
	key := utils.CacheKey(images[0], stage, cacheCtx...)
	if cached, ok := vs.cache.Get(ctx, key); ok {
		if err := json.Unmarshal([]byte(cached), out); err == nil && validate() == nil {
			slog.Info("VISION: cache hit", "stage", stage)
			return nil
		}
		// Unusable cache entry, fall through to a fresh call.
	}

	prompt := user
	var lastRaw string
	for corrective := 0; corrective < 2; corrective++ {
		var raw string
		err := vs.retry.Do(ctx, func() error {
			var ierr error
			raw, ierr = vs.vision.Invoke(ctx, system, prompt, images)
			return ierr
		})
		if err != nil {
			return fmt.Errorf("%s: vision call failed: %w", stage, err)
		}
		lastRaw = raw

		cleaned := extractJSON(raw)
		if err := json.Unmarshal([]byte(cleaned), out); err == nil {
			if verr := validate(); verr == nil {
				vs.cache.Set(ctx, key, cleaned, vs.ttl)
				return nil
			} else if corrective == 0 {
				slog.Warn("VISION: shape validation failed, corrective retry", "stage", stage, "error", verr)
			}
		} else if corrective == 0 {
			slog.Warn("VISION: JSON parse failed, corrective retry", "stage", stage, "error", err)
		}
		prompt = user + correctiveSuffix
	}

	return &MalformedResponseError{Stage: stage, Raw: lastRaw, Err: fmt.Errorf("response failed schema validation after corrective retry")}
}

// extractJSON strips markdown fences and any prose around the outermost JSON
// object. Models occasionally wrap output despite instructions.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
