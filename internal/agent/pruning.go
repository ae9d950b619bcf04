package agent

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nightwatch-astro/nightwatch/internal/config"
	"github.com/nightwatch-astro/nightwatch/internal/providers"
)

// Pruning defaults. Only tool results older than the last few assistant
// messages are ever touched; user messages and final answers are not.
const (
	defaultKeepLastAssistants   = 3
	defaultSoftTrimRatio        = 0.3
	defaultHardClearRatio       = 0.5
	defaultMinPrunableToolChars = 50000
	softTrimHeadChars           = 1500
	softTrimTailChars           = 1500
	softTrimMaxChars            = 4000
	hardClearPlaceholder        = "[Old tool result content cleared]"
	charsPerTokenFallback       = 4
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// estimateTokens counts tokens with the cl100k_base encoding. When the
// encoding cannot be loaded (offline), a chars/4 heuristic stands in.
func estimateTokens(text string) int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return len(text)/charsPerTokenFallback + 1
	}
	return len(encoder.Encode(text, nil, nil))
}

func estimateMessageTokens(m providers.Message) int {
	return estimateTokens(m.Content)
}

type pruningSettings struct {
	keepLastAssistants   int
	softTrimRatio        float64
	hardClearRatio       float64
	minPrunableToolChars int
}

func resolvePruningSettings(cfg *config.ContextPruningConfig) pruningSettings {
	s := pruningSettings{
		keepLastAssistants:   defaultKeepLastAssistants,
		softTrimRatio:        defaultSoftTrimRatio,
		hardClearRatio:       defaultHardClearRatio,
		minPrunableToolChars: defaultMinPrunableToolChars,
	}
	if cfg == nil {
		return s
	}
	if cfg.KeepLastAssistants > 0 {
		s.keepLastAssistants = cfg.KeepLastAssistants
	}
	if cfg.SoftTrimRatio > 0 && cfg.SoftTrimRatio <= 1 {
		s.softTrimRatio = cfg.SoftTrimRatio
	}
	if cfg.HardClearRatio > 0 && cfg.HardClearRatio <= 1 {
		s.hardClearRatio = cfg.HardClearRatio
	}
	if cfg.MinPrunableToolChars > 0 {
		s.minPrunableToolChars = cfg.MinPrunableToolChars
	}
	return s
}

// pruneHistory trims old tool results so the projected history stays
// within maxHistoryTokens. Two passes: soft trim keeps the head and tail
// of long results; hard clear replaces whole results with a placeholder.
// The conversation itself is never modified, only the outgoing slice.
func pruneHistory(msgs []providers.Message, maxHistoryTokens int, cfg *config.ContextPruningConfig) []providers.Message {
	if cfg != nil && !cfg.Enabled {
		return msgs
	}
	if maxHistoryTokens <= 0 || len(msgs) == 0 {
		return msgs
	}

	settings := resolvePruningSettings(cfg)

	cutoff := findAssistantCutoff(msgs, settings.keepLastAssistants)
	if cutoff < 0 {
		return msgs
	}

	totalTokens := 0
	for _, m := range msgs {
		totalTokens += estimateMessageTokens(m)
	}
	ratio := float64(totalTokens) / float64(maxHistoryTokens)
	if ratio < settings.softTrimRatio {
		return msgs
	}

	var prunable []int
	for i := 0; i < cutoff; i++ {
		if msgs[i].Role == "tool" && msgs[i].Content != "" {
			prunable = append(prunable, i)
		}
	}
	if len(prunable) == 0 {
		return msgs
	}

	// Pass 1: soft trim long tool results.
	out := msgs
	copied := false
	for _, idx := range prunable {
		msg := msgs[idx]
		if len(msg.Content) <= softTrimMaxChars {
			continue
		}
		if !copied {
			out = make([]providers.Message, len(msgs))
			copy(out, msgs)
			copied = true
		}
		trimmed := fmt.Sprintf("%s\n...\n%s\n\n[Tool result trimmed: kept first %d and last %d of %d chars.]",
			takeHead(msg.Content, softTrimHeadChars),
			takeTail(msg.Content, softTrimTailChars),
			softTrimHeadChars, softTrimTailChars, len(msg.Content))
		totalTokens += estimateTokens(trimmed) - estimateMessageTokens(msg)
		out[idx] = providers.Message{Role: msg.Role, Content: trimmed, ToolCallID: msg.ToolCallID, Name: msg.Name}
	}

	ratio = float64(totalTokens) / float64(maxHistoryTokens)
	if ratio < settings.hardClearRatio {
		return out
	}

	prunableChars := 0
	for _, idx := range prunable {
		prunableChars += len(out[idx].Content)
	}
	if prunableChars < settings.minPrunableToolChars {
		return out
	}

	// Pass 2: hard clear until back under the ratio.
	if !copied {
		out = make([]providers.Message, len(msgs))
		copy(out, msgs)
	}
	for _, idx := range prunable {
		if ratio < settings.hardClearRatio {
			break
		}
		msg := out[idx]
		totalTokens += estimateTokens(hardClearPlaceholder) - estimateMessageTokens(msg)
		out[idx] = providers.Message{Role: msg.Role, Content: hardClearPlaceholder, ToolCallID: msg.ToolCallID, Name: msg.Name}
		ratio = float64(totalTokens) / float64(maxHistoryTokens)
	}
	return out
}

// findAssistantCutoff returns the index of the Nth-from-last assistant
// message. Messages at or after it are protected. Returns -1 when fewer
// than keepLast assistant messages exist.
func findAssistantCutoff(msgs []providers.Message, keepLast int) int {
	if keepLast <= 0 {
		return len(msgs)
	}
	remaining := keepLast
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" {
			remaining--
			if remaining == 0 {
				return i
			}
		}
	}
	return -1
}

func takeHead(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func takeTail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
