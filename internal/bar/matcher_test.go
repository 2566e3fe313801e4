package bar

import "testing"

func rec(name, city, website string) *Record {
	return &Record{
		Name:           name,
		NormalizedName: NormalizeName(name),
		City:           city,
		Website:        website,
	}
}

// --------------------------------------------------
// TESTS
// --------------------------------------------------

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Tipsy Gull", "the tipsy gull"},
		{"  Death & Co.  ", "death co"},
		{"Herbs & Rye", "herbs rye"},
		{"Canon: Whiskey and Bitters Emporium", "canon whiskey and bitters emporium"},
		{"ATTABOY", "attaboy"},
		{"Bar-None / Downtown", "bar none downtown"},
	}

	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScore_ExactNormalizedNameIsMax(t *testing.T) {
	a := rec("The Tipsy Gull", "Seattle", "https://tipsygull.com")
	b := rec("the tipsy  gull!", "Portland", "https://somewhere-else.com")

	if score := Score(a, b); score != 1.0 {
		t.Errorf("expected 1.0 for exact normalized names, got %f", score)
	}
}

func TestScore_Symmetric(t *testing.T) {
	pairs := [][2]*Record{
		{rec("The Tipsy Gull", "Seattle", ""), rec("Tipsy Gull Bar", "Seattle", "")},
		{rec("Canon", "Seattle", "https://canonseattle.com"), rec("Cannon", "Seattle", "")},
		{rec("Death & Co", "New York", ""), rec("Attaboy", "New York", "")},
		{rec("Herbs & Rye", "Las Vegas", ""), rec("Herbs and Rye", "Las Vegas", "")},
	}

	for _, p := range pairs {
		ab := Score(p[0], p[1])
		ba := Score(p[1], p[0])
		if ab != ba {
			t.Errorf("score(%q,%q)=%f but score(%q,%q)=%f",
				p[0].Name, p[1].Name, ab, p[1].Name, p[0].Name, ba)
		}
	}
}

func TestScore_GenericWordsDoNotSplitAMatch(t *testing.T) {
	a := rec("The Tipsy Gull", "Seattle", "")
	b := rec("Tipsy Gull Bar", "Seattle", "")

	score := Score(a, b)
	if !ShouldMerge(score) {
		t.Errorf("expected merge for article/suffix variants, score=%f", score)
	}
}

func TestScore_UnrelatedBarsStayDistinct(t *testing.T) {
	a := rec("Death & Co", "Seattle", "")
	b := rec("The Velvet Tango Room", "Seattle", "")

	score := Score(a, b)
	if Decide(score) != MatchDistinct {
		t.Errorf("expected distinct for unrelated names, score=%f", score)
	}
}

func TestScore_SharedWebsiteDomainRaisesScore(t *testing.T) {
	withSite := Score(
		rec("Tipsy Gull Cocktails", "Seattle", "https://www.tipsygull.com/menu"),
		rec("Tipsy Gull Seattle", "Seattle", "http://tipsygull.com"),
	)
	withoutSite := Score(
		rec("Tipsy Gull Cocktails", "Seattle", ""),
		rec("Tipsy Gull Seattle", "Seattle", ""),
	)

	if withSite <= withoutSite {
		t.Errorf("shared domain should raise score: with=%f without=%f", withSite, withoutSite)
	}
}

func TestDecide_ThresholdBoundary(t *testing.T) {
	if Decide(MergeThreshold) != MatchMerge {
		t.Error("score exactly at merge threshold must merge")
	}
	if Decide(MergeThreshold-0.0001) != MatchAmbiguous {
		t.Error("score just below merge threshold must not merge")
	}
	if Decide(DistinctThreshold) != MatchAmbiguous {
		t.Error("score at distinct threshold sits in the ambiguous band")
	}
	if Decide(DistinctThreshold-0.0001) != MatchDistinct {
		t.Error("score below distinct threshold is distinct")
	}
}

func TestShouldMerge_AmbiguousBandResolvesToDistinct(t *testing.T) {
	// "canon" vs "cannon" lands between the thresholds: close enough to
	// suspect, not close enough to silently merge two businesses.
	a := rec("Canon", "Seattle", "")
	b := rec("Cannon", "Seattle", "")

	score := Score(a, b)
	if Decide(score) != MatchAmbiguous {
		t.Fatalf("expected ambiguous score for one-edit short names, got %f", score)
	}
	if ShouldMerge(score) {
		t.Error("ambiguous scores must not merge")
	}
}

func TestScore_DeterministicAcrossCalls(t *testing.T) {
	a := rec("The Last Word", "Seattle", "https://lastwordseattle.com")
	b := rec("Last Word Bar", "Seattle", "")

	first := Score(a, b)
	for i := 0; i < 10; i++ {
		if got := Score(a, b); got != first {
			t.Fatalf("score not deterministic: %f then %f", first, got)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"tipsy gull", "tipsy gull", 0},
		{"tipsy gull", "tipsy gul", 1},
	}

	for _, tc := range cases {
		if got := levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestWebsiteDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.tipsygull.com/menu", "tipsygull.com"},
		{"http://tipsygull.com", "tipsygull.com"},
		{"tipsygull.com", "tipsygull.com"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := websiteDomain(tc.in); got != tc.want {
			t.Errorf("websiteDomain(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
