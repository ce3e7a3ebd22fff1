package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

var codeBlockExpr = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ErrNotArray is returned when the model answered with JSON that is not a list.
var ErrNotArray = errors.New("ai response is not a json array")

// ParseRankedResults extracts the JSON array from a model reply, optionally fenced,
// and coerces each element into a RankedResult. Missing or mistyped fields default
// to zero values; elements that are not objects are skipped.
func ParseRankedResults(text string) ([]domain.RankedResult, error) {
	payload := strings.TrimSpace(text)
	if match := codeBlockExpr.FindStringSubmatch(text); match != nil {
		payload = strings.TrimSpace(match[1])
	}

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, fmt.Errorf("decode ai response: %w", err)
	}

	items, ok := decoded.([]any)
	if !ok {
		return nil, ErrNotArray
	}

	results := make([]domain.RankedResult, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		results = append(results, domain.RankedResult{
			Index:   int(toNumber(fields["index"])),
			Title:   toString(fields["title"]),
			Score:   toNumber(fields["score"]),
			Summary: toString(fields["summary"]),
			Tags:    toStrings(fields["tags"]),
		})
	}

	return results, nil
}

// Reconcile orders results by descending score and keeps at most topN.
// Equal scores keep the order the model returned them in.
func Reconcile(results []domain.RankedResult, topN int) []domain.RankedResult {
	sorted := make([]domain.RankedResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if topN < 0 {
		topN = 0
	}
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return parsed
		}
	}
	return 0
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, toString(item))
	}
	return out
}
