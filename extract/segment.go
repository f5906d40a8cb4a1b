package extract

import (
	"regexp"
	"strings"

	"broker_inbox/models"
)

// headerRe matches the "[timestamp] sender: " prefix of a chat-export entry.
// The sender never spans a line or contains a colon.
var headerRe = regexp.MustCompile(`\[([^\[\]]+)\]\s*([^:\n]+?):\s*`)

// Segment splits a chat-export blob into discrete messages, in source order.
// A body runs from the end of its header to the start of the next header (or
// end of input) and is preserved verbatim, embedded newlines included.
// Entries whose body is empty after trimming are dropped. Input with no
// bracketed entries yields an empty slice, not an error.
func Segment(blob string) []models.RawMessage {
	headers := headerRe.FindAllStringSubmatchIndex(blob, -1)
	if len(headers) == 0 {
		return nil
	}

	msgs := make([]models.RawMessage, 0, len(headers))
	for i, h := range headers {
		end := len(blob)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}

		body := strings.TrimSpace(blob[h[1]:end])
		if body == "" {
			continue
		}

		msgs = append(msgs, models.RawMessage{
			Timestamp: strings.TrimSpace(blob[h[2]:h[3]]),
			Sender:    strings.TrimSpace(blob[h[4]:h[5]]),
			Body:      body,
		})
	}

	return msgs
}
