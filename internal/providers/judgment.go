package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"tiervc/pkg/contracts/domain"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseJudgment decodes a model answer into T. It tries the whole answer,
// then every fenced code block, then each balanced {...} object found by a
// string-aware scan. Every key in required must be present. The text
// is only ever decoded as JSON.
func ParseJudgment[T any](raw string, required []string) (T, error) {
	var zero T

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return zero, ErrEmptyResponse
	}

	var lastErr error
	for _, candidate := range candidates(trimmed) {
		v, err := decodeJudgment[T](candidate, required)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return zero, ErrMissingJSON
	}
	return zero, lastErr
}

// ParseMarketJudgment decodes a market analyst answer
func ParseMarketJudgment(raw string) (domain.MarketJudgment, error) {
	return ParseJudgment[domain.MarketJudgment](raw, domain.MarketJudgmentKeys)
}

// ParseTeamJudgment decodes a team analyst answer
func ParseTeamJudgment(raw string) (domain.TeamJudgment, error) {
	return ParseJudgment[domain.TeamJudgment](raw, domain.TeamJudgmentKeys)
}

// ParseFinalJudgment decodes a judge answer
func ParseFinalJudgment(raw string) (domain.FinalJudgment, error) {
	return ParseJudgment[domain.FinalJudgment](raw, domain.FinalJudgmentKeys)
}

func candidates(text string) []string {
	out := []string{}
	if strings.HasPrefix(text, "{") {
		out = append(out, text)
	}
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if block := strings.TrimSpace(m[1]); block != "" {
			out = append(out, block)
		}
	}
	for rest := text; ; {
		obj, end, ok := findJSONObject(rest)
		if !ok {
			break
		}
		out = append(out, obj)
		rest = rest[end:]
	}
	return out
}

func decodeJudgment[T any](candidate string, required []string) (T, error) {
	var zero T

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMissingJSON, err)
	}

	var missing []string
	for _, key := range required {
		if v, ok := fields[key]; !ok || string(v) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return zero, &MissingFieldError{Fields: missing}
	}

	var v T
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedField, err)
	}
	return v, nil
}

// findJSONObject returns the first balanced top-level object in input and
// the offset just past it, ignoring braces inside string literals.
func findJSONObject(input string) (string, int, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			if depth > 0 {
				inString = !inString
			}
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return input[start : i+1], i + 1, true
			}
		}
	}
	return "", 0, false
}
