package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"platval/internal"
	"platval/internal/util"
)

var (
	reComment = regexp.MustCompile(`^(#|//)`)
	reLabel   = regexp.MustCompile(`^([A-Za-z][A-Za-z /&-]*):\s*(.*)$`)
	reQty     = regexp.MustCompile(`(?i)^(\d+)(?:\s*[x×]\s+|\s+(?:copies\s+of|copy\s+of|of)\s+|\s+)(.+)$`)
	reEntry   = regexp.MustCompile(`,\s*`)
)

// ParseEntries runs the line parser over the whole input. Section labels
// ("warframe mods:", "arcanes:") set the category hint for the lines that
// follow; blank and comment lines are dropped; lines that cannot yield a
// request are recorded as failures and skipped, never fatal.
func ParseEntries(entries []internal.RawLineEntry) ([]internal.ParsedRequest, []internal.ParseFailure) {
	requests := make([]internal.ParsedRequest, 0, len(entries))
	failures := []internal.ParseFailure{}

	hint := internal.CategoryUnknown
	for _, entry := range entries {
		reqs, newHint, fails := parseLine(entry, hint)
		hint = newHint
		requests = append(requests, reqs...)
		failures = append(failures, fails...)
	}
	return requests, failures
}

func parseLine(entry internal.RawLineEntry, hint internal.Category) ([]internal.ParsedRequest, internal.Category, []internal.ParseFailure) {
	text := util.NormalizeSpaces(entry.Text)
	if text == "" || reComment.MatchString(text) {
		return nil, hint, nil
	}

	// "stances: 3 tranquil cleave" carries an inline label; a bare
	// "stances:" line only switches the hint for following lines.
	if m := reLabel.FindStringSubmatch(text); m != nil {
		hint = hintForLabel(m[1])
		text = strings.TrimSpace(m[2])
		if text == "" {
			return nil, hint, nil
		}
	}

	requests := []internal.ParsedRequest{}
	failures := []internal.ParseFailure{}
	for _, part := range reEntry.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		req, reason := parseEntry(entry, part, hint)
		if reason != "" {
			failures = append(failures, internal.ParseFailure{LineNo: entry.LineNo, Text: part, Reason: reason})
			continue
		}
		requests = append(requests, req)
	}
	return requests, hint, failures
}

func parseEntry(entry internal.RawLineEntry, text string, hint internal.Category) (internal.ParsedRequest, string) {
	quantity := 1
	name := text

	if m := reQty.FindStringSubmatch(text); m != nil {
		parsed, err := strconv.Atoi(m[1])
		if err != nil || parsed < 1 {
			return internal.ParsedRequest{}, "quantity must be a positive integer"
		}
		quantity = parsed
		name = strings.TrimSpace(m[2])
	} else if regexp.MustCompile(`^\d+$`).MatchString(text) {
		return internal.ParsedRequest{}, "quantity without an item name"
	}

	if name == "" {
		return internal.ParsedRequest{}, "empty item name"
	}

	return internal.ParsedRequest{
		LineNo:   entry.LineNo,
		Source:   entry.Source,
		RawLine:  entry.Text,
		Name:     name,
		Quantity: quantity,
		Hint:     hint,
	}, ""
}

func hintForLabel(label string) internal.Category {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "arcane"):
		return internal.CategoryArcane
	case strings.Contains(l, "mod"), strings.Contains(l, "stance"), strings.Contains(l, "aura"):
		return internal.CategoryMod
	case strings.Contains(l, "item"), strings.Contains(l, "part"), strings.Contains(l, "blueprint"), strings.Contains(l, "prime"):
		return internal.CategoryItem
	default:
		return internal.CategoryUnknown
	}
}
