// Package thread holds the message-thread data model shared by the tracker,
// the classifier path and the provider adapters.
package thread

import "strings"

// Record is one message as observed in a thread snapshot.
// An empty RawTimestamp means the scraper found no timestamp.
type Record struct {
	Text         string `json:"text"`
	IsOwn        bool   `json:"isOwn"`
	RawTimestamp string `json:"rawTimestamp,omitempty"`
}

// Direction of a turn as seen by a provider.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Turn is the provider-facing form of a record.
type Turn struct {
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
}

// DirectionOf maps ownership to a turn direction.
func DirectionOf(r Record) Direction {
	if r.IsOwn {
		return DirectionOut
	}
	return DirectionIn
}

// History returns the last n records as turns, oldest first.
func History(records []Record, n int) []Turn {
	records = Tail(records, n)
	turns := make([]Turn, 0, len(records))
	for _, r := range records {
		turns = append(turns, Turn{Direction: DirectionOf(r), Text: r.Text})
	}
	return turns
}

// Tail returns the last n records. n <= 0 returns an empty slice.
func Tail(records []Record, n int) []Record {
	if n <= 0 {
		return nil
	}
	if len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}

// ContextWindow returns the trimmed texts of the last n records before the
// newest one. It is the bounded window the intent classifier consumes.
func ContextWindow(records []Record, n int) []string {
	if len(records) == 0 {
		return nil
	}
	prior := Tail(records[:len(records)-1], n)
	out := make([]string, 0, len(prior))
	for _, r := range prior {
		if t := strings.TrimSpace(r.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// LastOwn returns the newest own record.
func LastOwn(records []Record) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].IsOwn {
			return records[i], true
		}
	}
	return Record{}, false
}

// LastInbound returns the newest record that is not own.
func LastInbound(records []Record) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].IsOwn {
			return records[i], true
		}
	}
	return Record{}, false
}
