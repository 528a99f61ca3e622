package pipeline

import (
	"regexp"
	"strings"
)

type DetectResult struct {
	IsList bool
	Score  float64
	Reason string
}

var (
	detectKeywords = []string{"donat", "clan", "vault", "mod", "arcane", "prime", "blueprint", "stance", "aura"}
	reQtyLine      = regexp.MustCompile(`(?m)^\s*\d+\s*[xX ]`)
)

// DetectDonationList scores whether free text looks like a donation list.
// The watch mode uses it to skip unrelated files dropped into the folder.
func DetectDonationList(text string) DetectResult {
	lower := strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}

	qtyLines := len(reQtyLine.FindAllString(text, -1))
	if qtyLines >= 2 {
		score += 0.4
	} else if qtyLines == 1 {
		score += 0.2
	}

	if score > 1 {
		score = 1
	}

	isList := score >= 0.4
	reason := "rules_negative"
	if isList {
		reason = "rules_positive"
	}
	return DetectResult{IsList: isList, Score: score, Reason: reason}
}
