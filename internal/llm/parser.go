package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ParseQueries decodes the query-generation output. Output must be strict
// JSON per the prompt contract.
func ParseQueries(raw string) ([]string, error) {
	cleaned, err := strictJSON(raw)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, errors.New("invalid LLM JSON output")
	}

	var queries []string
	for _, q := range parsed.Queries {
		q = strings.TrimSpace(q)
		if q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, errors.New("no queries in LLM output")
	}
	return queries, nil
}

// ParseCandidates decodes the extraction output. Candidates without a name
// are dropped; an empty list is a valid result, not an error.
func ParseCandidates(raw string) ([]Candidate, error) {
	cleaned, err := strictJSON(raw)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Bars []Candidate `json:"bars"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, errors.New("invalid LLM JSON output")
	}

	var candidates []Candidate
	for _, c := range parsed.Bars {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// strictJSON enforces the JSON-only output contract, tolerating the one
// deviation models keep making: a ```json fence around the payload.
func strictJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if !json.Valid([]byte(trimmed)) {
		return "", errors.New("llm returned non-json output")
	}
	return trimmed, nil
}
