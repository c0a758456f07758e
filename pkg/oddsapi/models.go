package oddsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Usage holds the quota counters exactly as the response headers carried them.
type Usage struct {
	Remaining string `json:"remaining"`
	Used      string `json:"used"`
}

// Map renders the counters under their display names.
func (u Usage) Map() map[string]string {
	return map[string]string{
		"Remaining requests": u.Remaining,
		"Used requests":      u.Used,
	}
}

func usageFromHeader(h http.Header) Usage {
	return Usage{
		Remaining: h.Get(HeaderRequestsRemaining),
		Used:      h.Get(HeaderRequestsUsed),
	}
}

// Typed views over the raw payloads. Decoding is optional; unknown fields are
// dropped here but the raw message returned by the client is never touched.

type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime Timestamp   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate Timestamp `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

type Market struct {
	Key        string     `json:"key"`
	LastUpdate *Timestamp `json:"last_update,omitempty"`
	Outcomes   []Outcome  `json:"outcomes"`
}

// Outcome prices are decimal or american depending on the requested odds format.
type Outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

type Score struct {
	ID           string       `json:"id"`
	SportKey     string       `json:"sport_key"`
	SportTitle   string       `json:"sport_title"`
	CommenceTime Timestamp    `json:"commence_time"`
	Completed    bool         `json:"completed"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	Scores       []ScoreEntry `json:"scores"`      // nil until the game starts
	LastUpdate   *Timestamp   `json:"last_update"` // nil until the first score
}

type ScoreEntry struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// Timestamp accepts both date formats the API emits: RFC 3339 strings (iso)
// and integer seconds (unix).
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse iso timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	secs, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse unix timestamp %s: %w", data, err)
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// DecodeSports decodes a ListSports payload.
func DecodeSports(raw json.RawMessage) ([]Sport, error) {
	var out []Sport
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode sports: %w", err)
	}
	return out, nil
}

// DecodeEvents decodes a GetOdds payload.
func DecodeEvents(raw json.RawMessage) ([]Event, error) {
	var out []Event
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode odds events: %w", err)
	}
	return out, nil
}

// DecodeScores decodes a GetScores payload.
func DecodeScores(raw json.RawMessage) ([]Score, error) {
	var out []Score
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	return out, nil
}
