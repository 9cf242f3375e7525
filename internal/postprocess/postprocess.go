// Package postprocess removes common LLM artifacts from translation output
// so that what remains can be split into definition candidates.
package postprocess

import (
	"regexp"
	"strings"
)

// ListSeparator joins the items of a list answer into one line. It is one of
// the delimiters the resolver splits candidates on.
const ListSeparator = "、"

// Clean removes LLM artifacts from text and returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Quote wrapping removal
//  4. Multi-line list answers folded into a single "、"-separated line
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	text = foldListLines(text)
	return strings.TrimSpace(text)
}

// Go's RE2 has no backreferences, so each tag pair is spelled out.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// An opened tag whose closing tag never came (output was cut off).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// echoPatterns are anchored at the start and require a colon (ASCII or
// full-width) to keep false positives down.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]?\s*`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:japanese |translated )?(?:translation|text|meaning)s?\s*[:：]`),
	regexp.MustCompile(`(?i)^(?:the )?(?:japanese )?(?:translation|translated text|meaning)s?\s*[:：]`),
	regexp.MustCompile(`^(?:翻訳|訳|意味)\s*[:：]`),
}

func removeInstructionEchoes(text string) string {
	// "Sure, " alone is not an echo; only strip it when a real echo follows.
	if loc := echoPatterns[0].FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		for _, re := range echoPatterns[1:] {
			if re.MatchString(rest) {
				text = rest
				break
			}
		}
	}
	for _, re := range echoPatterns[1:] {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'“', '”'},
	{'‘', '’'},
	{'「', '」'},
	{'『', '』'},
}

// removeQuoteWrapping strips one matching pair of outer quotes when they wrap
// the whole text.
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	for _, pair := range quotePairs {
		if runes[0] == pair[0] && runes[n-1] == pair[1] {
			return strings.TrimSpace(string(runes[1 : n-1]))
		}
	}
	return text
}

// listMarkerRe matches a leading bullet or enumeration marker: "-", "*", "・",
// "1.", "2)", "①".
var listMarkerRe = regexp.MustCompile(`^(?:[-*・•]|\d+[.)．]|[①-⑳])\s*`)

func foldListLines(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return text
	}
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(listMarkerRe.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return strings.Join(items, ListSeparator)
}
