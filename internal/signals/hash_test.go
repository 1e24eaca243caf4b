package signals

import (
	"strings"
	"testing"
)

func TestHashText_NormalizationInvariance(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{"case change", "Great Artwork!", "great artwork", true},
		{"extra whitespace", "great   artwork", "great artwork", true},
		{"surrounding whitespace", "  hand thrown bowl  ", "hand thrown bowl", true},
		{"diacritics folded", "café ceramics", "cafe ceramics", true},
		{"different tokens", "great artwork", "terrible artwork", false},
		{"added token", "great artwork", "great artwork today", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ha, hb := HashText(tc.a), HashText(tc.b)
			if (ha == hb) != tc.same {
				t.Fatalf("HashText(%q)=%s HashText(%q)=%s, want same=%v", tc.a, ha, tc.b, hb, tc.same)
			}
		})
	}
}

func TestFuzzyHash_IgnoresRareTokens(t *testing.T) {
	t.Run("short tokens dropped", func(t *testing.T) {
		a := "buy cheap jewelry buy cheap jewelry buy cheap jewelry at"
		b := "buy cheap jewelry buy cheap jewelry buy cheap jewelry on"
		if FuzzyHash(a) != FuzzyHash(b) {
			t.Fatalf("fuzzy hashes should match when only short filler tokens differ")
		}
	})

	t.Run("singletons fall outside the dominant cut", func(t *testing.T) {
		dominant := strings.Join([]string{
			"clay", "wheel", "glaze", "kiln", "fire", "trim", "wedge", "slip",
			"bisque", "stain", "oxide", "sgraffito", "handle", "spout", "foot",
			"rim", "lid", "cone", "shard", "mold",
		}, " ")
		a := dominant + " " + dominant + " seldom"
		b := dominant + " " + dominant + " unusual"
		if FuzzyHash(a) != FuzzyHash(b) {
			t.Fatalf("fuzzy hashes should match when only a rare trailing token differs")
		}
	})

	if FuzzyHash("buy cheap jewelry") == FuzzyHash("hand thrown bowl") {
		t.Fatalf("unrelated texts must not collide")
	}
}

func TestJaccardSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "blue glazed vase", "blue glazed vase", 1},
		{"disjoint", "wooden spoon", "glass pendant", 0},
		{"empty", "", "anything", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := JaccardSimilarity(tc.a, tc.b); got != tc.want {
				t.Fatalf("JaccardSimilarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}

	partial := JaccardSimilarity("blue glazed vase", "blue ceramic vase")
	if partial <= 0 || partial >= 1 {
		t.Fatalf("partial overlap should be strictly between 0 and 1, got %v", partial)
	}
}

func TestTokenize_FoldsAndFilters(t *testing.T) {
	got := Tokenize("  Héllo,   WORLD!  ")
	want := []string{"hello", "world"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize returned %v, want %v", got, want)
		}
	}
}
