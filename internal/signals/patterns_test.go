package signals

import "testing"

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func TestScanToxicPatterns(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		violation string
	}{
		{"promo spam", "Buy now buy now buy now!!!", ViolationSpamPattern},
		{"keyboard mash", "look at this wowwwwwwwwww", ViolationSpamPattern},
		{"violence", "I will kill you if you post that again", ViolationViolence},
		{"privacy email", "contact her at jane.doe@example.com", ViolationPrivacy},
		{"privacy phone", "his number is 555-123-4567", ViolationPrivacy},
		{"profanity", "this is fucking terrible work", ViolationProfanity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scan := ScanToxicPatterns(tc.text)
			if scan.Score <= 0 {
				t.Fatalf("expected positive score for %q, got %v", tc.text, scan.Score)
			}
			if !containsString(scan.Violations, tc.violation) {
				t.Fatalf("expected violation %q in %v", tc.violation, scan.Violations)
			}
		})
	}
}

func TestScanToxicPatterns_CleanText(t *testing.T) {
	scan := ScanToxicPatterns("A hand thrown stoneware bowl with a matte celadon glaze.")
	if scan.Score != 0 {
		t.Fatalf("clean text should score 0, got %v", scan.Score)
	}
	if len(scan.Violations) != 0 {
		t.Fatalf("clean text should have no violations, got %v", scan.Violations)
	}
}

func TestScanToxicPatterns_ScoreCapped(t *testing.T) {
	text := "kill all of them, gas the vermin, subhuman untermensch, I will kill you, shoot up"
	scan := ScanToxicPatterns(text)
	if scan.Score > 1 {
		t.Fatalf("score must be capped at 1, got %v", scan.Score)
	}
	if scan.Score < 1 {
		t.Fatalf("heavily violating text should reach the cap, got %v", scan.Score)
	}
}

func TestMaxRuneRun(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"aaab", 3},
		{"!!!!!!!!", 8},
		{"héééllo", 3},
	}
	for _, tc := range cases {
		if got := maxRuneRun(tc.text); got != tc.want {
			t.Fatalf("maxRuneRun(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestMaxTokenRun(t *testing.T) {
	if got := maxTokenRun("buy now buy now buy now"); got != 3 {
		t.Fatalf("maxTokenRun = %d, want 3", got)
	}
	if got := maxTokenRun("each word appears once"); got != 1 {
		t.Fatalf("maxTokenRun = %d, want 1", got)
	}
}
