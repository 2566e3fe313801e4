package llm

import (
	"fmt"
	"strings"
)

func BuildQueryPrompt(city string, numQueries int) string {
	return fmt.Sprintf(`
You are a search query generator for finding craft cocktail bars.

Your task:
- Produce %d distinct web search queries for cocktail bars in %s.
- Output MUST be valid JSON.
- Output MUST start with { and end with }.
- Output MUST contain ONLY JSON.
- NO explanations.
- NO markdown.

Required JSON schema:
{
  "queries": ["string"]
}
`, numQueries, city)
}

func BuildExtractPrompt(city string, results []string) string {
	return fmt.Sprintf(`
You are a data extraction engine.

Your task:
- From the search results below, extract cocktail bars located in %s.
- Output MUST be valid JSON.
- Output MUST start with { and end with }.
- Output MUST contain ONLY JSON.
- NO explanations.
- NO markdown.
- Skip listicles, review sites and anything that is not a specific bar.

If no bars can be extracted, return this exact JSON:
{
  "bars": []
}

Required JSON schema:
{
  "bars": [
    {
      "name": "string",
      "description": "string",
      "website": "string or null",
      "cocktail_menu_url": "string or null"
    }
  ]
}

SEARCH RESULTS:
%s`, city, strings.Join(results, "\n---\n"))
}
