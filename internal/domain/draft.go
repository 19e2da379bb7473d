package domain

import "strings"

// SegmentDelimiter separates the two reflection segments in a merged payload.
const SegmentDelimiter = "— — —"

// Draft is the in-progress visitor input, accumulated across stages and
// consumed once at final submission.
type Draft struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	SegmentOne string `json:"segment_one"`
	SegmentTwo string `json:"segment_two"`
}

// Payload merges the segments into the text destined for delivery. The second
// segment is optional; when present it follows a delimiter line.
func (d *Draft) Payload() string {
	one := strings.TrimSpace(d.SegmentOne)
	two := strings.TrimSpace(d.SegmentTwo)
	if two == "" {
		return one
	}
	return one + "\n\n" + SegmentDelimiter + "\n\n" + two
}

// Clear empties every draft field.
func (d *Draft) Clear() {
	*d = Draft{}
}
