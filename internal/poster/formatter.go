package poster

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// BlueskyMaxLength is the maximum character count for a Bluesky post.
	BlueskyMaxLength = 300

	// TwitterMaxLength is the maximum character count for a Twitter post.
	TwitterMaxLength = 280
)

// FitsInLimit checks if the text fits within the limit.
func FitsInLimit(text string, limit int) bool {
	return utf8.RuneCountInString(text) <= limit
}

// Truncate shortens text to at most limit runes, cutting at a word boundary
// and appending "..." when anything was removed.
func Truncate(text string, limit int) string {
	if FitsInLimit(text, limit) {
		return text
	}
	if limit <= 3 {
		return string([]rune(text)[:max(limit, 0)])
	}

	available := limit - 3
	truncated := string([]rune(text)[:available])

	// Find last space to avoid cutting mid-word
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 { // Only use word boundary if not too far back
		truncated = truncated[:lastSpace]
	}

	return strings.TrimRight(truncated, " .,;:!?") + "..."
}

// parseResetHeader reads a rate-limit reset header holding unix seconds.
// Returns the zero time when the header is absent or malformed.
func parseResetHeader(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
