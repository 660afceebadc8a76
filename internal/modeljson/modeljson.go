// Package modeljson cleans up and decodes the loosely formatted JSON that
// vision models return.
package modeljson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/body-analyzer/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// Sanitize removes code fences, comments, and trailing commas from a model response
func Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// ParseLandmarks decodes a landmark response. Responses that carry no usable
// JSON yield an empty result with an explanatory description rather than an
// error; callers decide whether missing landmarks are fatal.
func ParseLandmarks(raw string) (*types.LandmarkResult, error) {
	raw = Sanitize(raw)

	if !strings.HasPrefix(raw, "{") {
		return &types.LandmarkResult{Description: "Model returned non-JSON response"}, nil
	}

	var result types.LandmarkResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return &types.LandmarkResult{Description: "Failed to parse model response"}, nil
	}

	landmarks := result.Landmarks[:0]
	for _, lm := range result.Landmarks {
		lm.Name = normalizeName(lm.Name)
		if lm.Name == "" {
			continue
		}
		landmarks = append(landmarks, lm)
	}
	result.Landmarks = landmarks

	return &result, nil
}

// normalizeName maps "Left Shoulder" and "left-shoulder" onto "left_shoulder"
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name
}
