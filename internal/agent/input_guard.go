// Package agent runs the conversation loop: user message in, tool
// dispatch rounds, final answer out.
//
// InputGuard scans user messages for known injection patterns. The
// action is configurable via guard.action:
//   - "log":   info-level logging (quiet)
//   - "warn":  warning-level logging (default)
//   - "block": reject the message with an error
//   - "off":   disable scanning entirely
package agent

import "regexp"

// guardPattern pairs a reportable name with a compiled regex.
type guardPattern struct {
	name string
	re   *regexp.Regexp
}

// guardPatterns is the built-in scan set, compiled once and shared by
// every loop. Planning questions phrase hypotheticals as "imagine you
// are at a dark site" or "what if I observed from Chile", so the role
// patterns stay narrow; false positives are why "warn" is the default
// action rather than "block".
var guardPatterns = []guardPattern{
	{"ignore_instructions", regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|preceding)\s+(instructions?|rules?|prompts?|directives?|guidelines?)`)},
	{"role_override", regexp.MustCompile(`(?i)(you are now|from now on you are|pretend you are|act as if you are)\s+`)},
	{"system_tags", regexp.MustCompile(`(?i)</?system>|\[SYSTEM\]|\[INST\]|<<SYS>>|<\|im_start\|>system`)},
	{"instruction_injection", regexp.MustCompile(`(?i)(new instructions?:|override:|system prompt:|<\|system\|>)`)},
	{"null_bytes", regexp.MustCompile("\x00")},
	{"delimiter_escape", regexp.MustCompile(`(?i)(end of system|begin user input|</?(instructions?|rules|prompt|context)>)`)},
}

// InputGuard scans user messages before they reach the model. The zero
// value scans nothing; NewInputGuard loads the built-in patterns.
type InputGuard struct {
	patterns []guardPattern
}

func NewInputGuard() *InputGuard {
	return &InputGuard{patterns: guardPatterns}
}

// Scan returns the names of the patterns the message matched, nil when
// the message is clean.
func (g *InputGuard) Scan(message string) []string {
	if message == "" {
		return nil
	}
	var matched []string
	for _, p := range g.patterns {
		if p.re.MatchString(message) {
			matched = append(matched, p.name)
		}
	}
	return matched
}
