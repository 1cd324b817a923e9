// Package types contains common types used across the application
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnrankedRank orders unranked records after every ranked one.
const UnrankedRank = 999

// Environments lists the TrackMania United environments in display order.
var Environments = []string{"Stadium", "Island", "Speed", "Rally", "Alpine", "Bay", "Coast"}

// Record is one lap result for a player on a track, as captured from Dedimania.
type Record struct {
	Player      string        `json:"player"`
	Nickname    string        `json:"nickname,omitempty"`
	Track       string        `json:"track"`
	Environment string        `json:"environment,omitempty"`
	Time        time.Duration `json:"time"`
	Rank        int           `json:"rank"`
	Mode        string        `json:"mode,omitempty"`
	Server      string        `json:"server,omitempty"`
	RecordedAt  time.Time     `json:"recorded_at"`
	CapturedAt  time.Time     `json:"captured_at"`
}

// Normalize trims fields and lowercases the login.
func (r *Record) Normalize() {
	r.Player = strings.ToLower(strings.TrimSpace(r.Player))
	r.Nickname = strings.TrimSpace(r.Nickname)
	r.Track = strings.TrimSpace(r.Track)
	r.Environment = strings.TrimSpace(r.Environment)
	r.Mode = strings.TrimSpace(r.Mode)
	r.Server = strings.TrimSpace(r.Server)
}

// Validate reports the first field that breaks the record contract.
func (r Record) Validate() error {
	switch {
	case r.Player == "":
		return fmt.Errorf("%w: player is empty", ErrInvalidRecord)
	case r.Track == "":
		return fmt.Errorf("%w: track is empty for %s", ErrInvalidRecord, r.Player)
	case r.Time < 0:
		return fmt.Errorf("%w: negative time for %s on %s", ErrInvalidRecord, r.Player, r.Track)
	case r.Rank < 0:
		return fmt.Errorf("%w: negative rank for %s on %s", ErrInvalidRecord, r.Player, r.Track)
	case r.RecordedAt.IsZero():
		return fmt.Errorf("%w: missing record date for %s on %s", ErrInvalidRecord, r.Player, r.Track)
	case r.CapturedAt.IsZero():
		return fmt.Errorf("%w: missing capture time for %s on %s", ErrInvalidRecord, r.Player, r.Track)
	}
	return nil
}

// Key identifies the (player, track) pair.
func (r Record) Key() string {
	return r.Player + "\x00" + r.Track
}

// Ranked reports whether Dedimania gave the record a numeric rank.
func (r Record) Ranked() bool {
	return r.Rank > 0
}

// EffectiveRank is the rank used for ordering; unranked sorts last.
func (r Record) EffectiveRank() int {
	if r.Rank <= 0 {
		return UnrankedRank
	}
	return r.Rank
}

// Challenge is per-track metadata from Dedimania.
type Challenge struct {
	Name         string    `json:"name"`
	UID          string    `json:"uid,omitempty"`
	Environment  string    `json:"environment,omitempty"`
	TotalRecords int       `json:"total_records"`
	LastUpdated  time.Time `json:"last_updated"`
}

// PlayerFailure describes a player whose page could not be ingested.
type PlayerFailure struct {
	Player string `json:"player"`
	Error  string `json:"error"`
}

// Ingest run outcomes.
const (
	RunOK      = "ok"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// IngestRun summarises one fetch of the whole roster.
type IngestRun struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Players    int             `json:"players"`
	Fetched    int             `json:"fetched"`
	Written    int             `json:"written"`
	Duplicates int             `json:"duplicates"`
	Invalid    int             `json:"invalid"`
	Challenges int             `json:"challenges"`
	Status     string          `json:"status"`
	Failures   []PlayerFailure `json:"failures,omitempty"`
}

// ParseLapTime parses Dedimania lap times such as "45.12", "1:23.45" or
// "1:02:03.45".
func ParseLapTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty lap time", ErrInvalidRecord)
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: lap time %q", ErrInvalidRecord, s)
	}
	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%w: lap time %q", ErrInvalidRecord, s)
	}
	total := time.Duration(secs * float64(time.Second))
	unit := time.Minute
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: lap time %q", ErrInvalidRecord, s)
		}
		total += time.Duration(n) * unit
		unit *= 60
	}
	return total.Round(time.Millisecond), nil
}

// FormatLapTime renders a lap time as m:ss.cc.
func FormatLapTime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	cs := d.Milliseconds() / 10
	m := cs / 6000
	s := (cs % 6000) / 100
	return fmt.Sprintf("%d:%02d.%02d", m, s, cs%100)
}

// PlainNickname strips TrackMania formatting codes such as "$f00", "$o" and
// "$l[url]" from a nickname. "$$" is a literal dollar.
func PlainNickname(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] != '$' {
			b.WriteRune(rs[i])
			continue
		}
		if i+1 >= len(rs) {
			break
		}
		next := rs[i+1]
		switch {
		case next == '$':
			b.WriteRune('$')
			i++
		case isHex(next):
			// Colour codes are up to three hex digits.
			j := i + 1
			for j < len(rs) && j < i+4 && isHex(rs[j]) {
				j++
			}
			i = j - 1
		case (next == 'l' || next == 'L' || next == 'h' || next == 'H') && i+2 < len(rs) && rs[i+2] == '[':
			end := i + 3
			for end < len(rs) && rs[end] != ']' {
				end++
			}
			i = end
		default:
			i++
		}
	}
	return strings.TrimSpace(b.String())
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
