package bar

import (
	"net/url"
	"strings"
)

// Matching weights and thresholds. Name similarity dominates; website and
// city only count when both records carry the signal, otherwise their
// weight folds back into the name.
const (
	nameWeight    = 0.80
	websiteWeight = 0.12
	cityWeight    = 0.08

	// MergeThreshold and above is "same bar". Below DistinctThreshold is
	// "different bar". The band between resolves to distinct: merging two
	// unrelated businesses is worse than storing a duplicate.
	MergeThreshold    = 0.87
	DistinctThreshold = 0.70
)

// MatchDecision classifies a similarity score against the thresholds.
type MatchDecision int

const (
	MatchDistinct MatchDecision = iota
	MatchAmbiguous
	MatchMerge
)

// Decide maps a score to a decision. The ambiguous band exists so the
// conservative tie-break is explicit rather than an accident of a single
// cutoff.
func Decide(score float64) MatchDecision {
	switch {
	case score >= MergeThreshold:
		return MatchMerge
	case score >= DistinctThreshold:
		return MatchAmbiguous
	default:
		return MatchDistinct
	}
}

// ShouldMerge is the store's policy: merge on MatchMerge only. Ambiguous
// scores stay distinct.
func ShouldMerge(score float64) bool {
	return Decide(score) == MatchMerge
}

// Score compares two bar records and returns a similarity in [0,1].
// Pure, deterministic and symmetric. Exact normalized-name equality is
// always 1.0 regardless of the other fields.
func Score(a, b *Record) float64 {
	an := normalizedOf(a)
	bn := normalizedOf(b)

	if an == "" || bn == "" {
		return 0
	}
	if an == bn {
		return 1.0
	}

	nameSim := editSimilarity(matchKey(an), matchKey(bn))

	score := nameWeight * nameSim
	weight := nameWeight

	if ad, bd := websiteDomain(a.Website), websiteDomain(b.Website); ad != "" && bd != "" {
		weight += websiteWeight
		if ad == bd {
			score += websiteWeight
		}
	}

	if a.City != "" && b.City != "" {
		weight += cityWeight
		if strings.EqualFold(a.City, b.City) {
			score += cityWeight
		}
	}

	return score / weight
}

func normalizedOf(r *Record) string {
	if r.NormalizedName != "" {
		return r.NormalizedName
	}
	return NormalizeName(r.Name)
}

// matchKey strips articles and generic venue words from a normalized name so
// "the tipsy gull" and "tipsy gull bar" compare on "tipsy gull".
// If stripping would remove everything, the full name is kept.
func matchKey(normalized string) string {
	fields := strings.Fields(normalized)
	kept := fields[:0]
	for _, f := range fields {
		if genericNameWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return normalized
	}
	return strings.Join(kept, " ")
}

var genericNameWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true,
	"bar": true, "bars": true,
	"cocktail": true, "cocktails": true,
	"lounge": true, "tavern": true, "pub": true, "saloon": true,
}

// editSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)).
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ar := []rune(a)
	br := []rune(b)
	longest := len(ar)
	if len(br) > longest {
		longest = len(br)
	}
	if longest == 0 {
		return 0
	}
	return 1.0 - float64(levenshtein(ar, br))/float64(longest)
}

// levenshtein computes edit distance with a two-row DP.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// websiteDomain extracts the registrable-ish host from a URL, dropping the
// scheme and a leading www.
func websiteDomain(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	return host
}
