// Package stats computes reports from a consistent snapshot of the store.
//
// Every function here is pure: it reads the Snapshot it is given and never
// touches the database, the clock or global state.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

// Snapshot is everything a report reads, taken in one read transaction.
type Snapshot struct {
	// Records holds the current record per (player, track).
	Records []types.Record
	// History holds every distinct record ever captured, oldest first.
	History []types.Record
	// Challenges is keyed by track name.
	Challenges map[string]types.Challenge
}

// Challenge looks up track metadata.
func (s Snapshot) Challenge(track string) (types.Challenge, bool) {
	c, ok := s.Challenges[track]
	return c, ok
}

// InWindow returns the records whose RecordedAt falls inside w.
func InWindow(records []types.Record, w window.Window) []types.Record {
	if w.IsAll() {
		return records
	}
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if w.Contains(r.RecordedAt) {
			out = append(out, r)
		}
	}
	return out
}

// Driven returns every record driven inside w. All time reads the current
// rows. A bounded window reads the history as well, since a row improved
// later no longer shows the record that was driven inside w.
func (s Snapshot) Driven(w window.Window) []types.Record {
	if w.IsAll() {
		return s.Records
	}
	out := InWindow(s.History, w)
	return append(out, InWindow(s.Records, w)...)
}

// BestPerTrack keeps the best ranked record per (player, track). Unranked
// counts as worst; on equal ranks the newer record wins. Output order is
// stable: by player, then track.
func BestPerTrack(records []types.Record) []types.Record {
	best := make(map[string]types.Record, len(records))
	for _, r := range records {
		cur, ok := best[r.Key()]
		if !ok || better(r, cur) {
			best[r.Key()] = r
		}
	}
	out := make([]types.Record, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player != out[j].Player {
			return out[i].Player < out[j].Player
		}
		return out[i].Track < out[j].Track
	})
	return out
}

func better(a, b types.Record) bool {
	if a.EffectiveRank() != b.EffectiveRank() {
		return a.EffectiveRank() < b.EffectiveRank()
	}
	return a.RecordedAt.After(b.RecordedAt)
}

// LatestNicknames maps each login to its most recent non-empty nickname.
func LatestNicknames(records []types.Record) map[string]string {
	nicks := make(map[string]string)
	seen := make(map[string]time.Time)
	for _, r := range records {
		if r.Nickname == "" {
			continue
		}
		if at, ok := seen[r.Player]; !ok || r.RecordedAt.After(at) {
			seen[r.Player] = r.RecordedAt
			nicks[r.Player] = r.Nickname
		}
	}
	return nicks
}

// byPlayer groups records per login.
func byPlayer(records []types.Record) map[string][]types.Record {
	out := make(map[string][]types.Record)
	for _, r := range records {
		out[r.Player] = append(out[r.Player], r)
	}
	return out
}

// dayKey is the calendar day of t in loc.
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(window.DateLayout)
}

// distinctDays counts calendar days with at least one record.
func distinctDays(records []types.Record, loc *time.Location) int {
	days := make(map[string]struct{})
	for _, r := range records {
		days[dayKey(r.RecordedAt, loc)] = struct{}{}
	}
	return len(days)
}

// distinctTracks counts tracks in records.
func distinctTracks(records []types.Record) int {
	tracks := make(map[string]struct{})
	for _, r := range records {
		tracks[r.Track] = struct{}{}
	}
	return len(tracks)
}

// containsFold reports whether s contains sub ignoring case.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// location defaults a nil location to UTC.
func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
