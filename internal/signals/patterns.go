package signals

import (
	"regexp"
	"strings"
)

// Violation categories produced by ScanToxicPatterns.
const (
	ViolationProfanity   = "profanity"
	ViolationHate        = "hate_speech"
	ViolationSexual      = "sexual_content"
	ViolationViolence    = "violence"
	ViolationPrivacy     = "privacy_leak"
	ViolationSpamPattern = "spam_pattern"
)

type patternCategory struct {
	label    string
	weight   float64
	patterns []*regexp.Regexp
}

// Each match adds the category weight to the score; the total is capped at 1.
// Weights reflect how strongly a single hit should count against the text.
var toxicCategories = []patternCategory{
	{
		label:  ViolationProfanity,
		weight: 0.3,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(fuck\w*|shit\w*|bitch\w*|asshole\w*|bastard)\b`),
			regexp.MustCompile(`\b(damn\s+you|piece\s+of\s+sh\W?t)\b`),
		},
	},
	{
		label:  ViolationHate,
		weight: 0.6,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(kill\s+all|gas\s+the|go\s+back\s+to\s+your)\b`),
			regexp.MustCompile(`\b(subhuman|vermin|untermensch)\b`),
		},
	},
	{
		label:  ViolationSexual,
		weight: 0.4,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(porn\w*|nude\s+pics?|sexting|onlyfans)\b`),
			regexp.MustCompile(`\b(explicit\s+content|nsfw\s+link)\b`),
		},
	},
	{
		label:  ViolationViolence,
		weight: 0.5,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(i\s+will\s+kill|gonna\s+hurt\s+you|beat\s+you\s+up)\b`),
			regexp.MustCompile(`\b(shoot\s+up|bomb\s+threat|stab\s+you)\b`),
		},
	},
	{
		label:  ViolationPrivacy,
		weight: 0.4,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
			regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`),
			regexp.MustCompile(`\b(home\s+address|lives\s+at|doxx\w*)\b`),
		},
	},
	{
		label:  ViolationSpamPattern,
		weight: 0.2,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(buy\s+now|click\s+here|limited\s+offer|free\s+money|dm\s+for\s+promo)\b`),
			regexp.MustCompile(`(https?://\S+\s*){3,}`),
		},
	},
}

// Repeated-token runs are the classic flood shape ("buy now buy now buy
// now"); three repetitions of the same token counts as a spam pattern hit.
var repeatedTokenThreshold = 3

// Keyboard-mash runs ("aaaaaaaa", "!!!!!!!!") of this many identical runes
// count as a spam pattern hit.
var repeatedRuneThreshold = 8

type ToxicScan struct {
	Score      float64
	Violations []string
}

// ScanToxicPatterns applies every category pattern set over the lower-cased
// text. Each match adds the category weight; the total score is capped at 1
// and Violations is the set of triggered category labels.
func ScanToxicPatterns(text string) ToxicScan {
	lower := strings.ToLower(text)
	score := 0.0
	var violations []string
	for _, cat := range toxicCategories {
		hits := 0
		for _, re := range cat.patterns {
			hits += len(re.FindAllStringIndex(lower, -1))
		}
		if cat.label == ViolationSpamPattern {
			if maxTokenRun(lower) >= repeatedTokenThreshold {
				hits++
			}
			if maxRuneRun(lower) >= repeatedRuneThreshold {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score += float64(hits) * cat.weight
		violations = append(violations, cat.label)
	}
	if score > 1 {
		score = 1
	}
	return ToxicScan{Score: score, Violations: violations}
}

// maxRuneRun returns the length of the longest run of one repeated rune.
func maxRuneRun(text string) int {
	best, run := 0, 0
	var prev rune = -1
	for _, r := range text {
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > best {
			best = run
		}
	}
	return best
}

// maxTokenRun returns the highest repetition count of any single token.
func maxTokenRun(text string) int {
	counts := map[string]int{}
	best := 0
	for _, tok := range Tokenize(text) {
		counts[tok]++
		if counts[tok] > best {
			best = counts[tok]
		}
	}
	return best
}
