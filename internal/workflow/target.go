package workflow

import (
	"strconv"
	"strings"
)

var cancelWords = []string{"cancel", "/cancel", "❌ cancel"}

// IsCancel reports whether text is a cancel keyword.
func IsCancel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, w := range cancelWords {
		if t == w {
			return true
		}
	}
	return false
}

// ParseTarget extracts the channel reference from a reply: the origin of a
// forwarded message wins over the text, which must be a bare numeric id.
func ParseTarget(ev Event) (int64, bool) {
	if ev.ForwardedChatID != 0 {
		return ev.ForwardedChatID, true
	}
	id, err := strconv.ParseInt(strings.TrimSpace(ev.Text), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
