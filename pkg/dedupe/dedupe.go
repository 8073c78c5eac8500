// Package dedupe drops repeated messages using a sampled content fingerprint.
package dedupe

import (
	"strconv"

	"github.com/xhad/chatexport/internal/models"
)

const (
	sampleThreshold = 300
	headLen         = 200
	tailLen         = 100
)

// Fingerprint summarises content. Content up to 300 characters is its own
// fingerprint; longer content is sampled as the first 200 characters, the last
// 100 and the total length. Lengths are counted in runes.
func Fingerprint(content string) string {
	runes := []rune(content)
	if len(runes) <= sampleThreshold {
		return content
	}
	return string(runes[:headLen]) + string(runes[len(runes)-tailLen:]) + strconv.Itoa(len(runes))
}

// Key is the equivalence key of a message.
func Key(m models.Message) string {
	return m.Role.String() + ":" + Fingerprint(m.Content)
}

// Dedupe keeps the first message for every key and preserves order.
func Dedupe(messages []models.Message) []models.Message {
	seen := make(map[string]bool, len(messages))
	out := make([]models.Message, 0, len(messages))

	for _, m := range messages {
		k := Key(m)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}

	return out
}
