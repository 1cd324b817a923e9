// Package roster holds the set of team logins reports are computed for.
package roster

import (
	"sort"
	"strings"

	"github.com/okian/dedidash/internal/domain/types"
)

// Roster is an immutable set of lowercased Dedimania logins.
type Roster struct {
	logins []string
	set    map[string]struct{}
}

// New builds a roster, trimming, lowercasing and dropping duplicates and
// blanks. Order of first appearance is kept.
func New(logins ...string) Roster {
	r := Roster{set: make(map[string]struct{}, len(logins))}
	for _, l := range logins {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := r.set[l]; ok {
			continue
		}
		r.set[l] = struct{}{}
		r.logins = append(r.logins, l)
	}
	return r
}

// Contains reports whether login is on the roster.
func (r Roster) Contains(login string) bool {
	_, ok := r.set[strings.ToLower(strings.TrimSpace(login))]
	return ok
}

// Logins returns a copy of the logins in configured order.
func (r Roster) Logins() []string {
	out := make([]string, len(r.logins))
	copy(out, r.logins)
	return out
}

// Sorted returns the logins in alphabetical order.
func (r Roster) Sorted() []string {
	out := r.Logins()
	sort.Strings(out)
	return out
}

// Len is the number of players.
func (r Roster) Len() int { return len(r.logins) }

// Empty reports whether the roster has no players.
func (r Roster) Empty() bool { return len(r.logins) == 0 }

// Without returns a roster minus the given logins.
func (r Roster) Without(logins ...string) Roster {
	drop := New(logins...)
	keep := make([]string, 0, len(r.logins))
	for _, l := range r.logins {
		if !drop.Contains(l) {
			keep = append(keep, l)
		}
	}
	return New(keep...)
}

// Filter keeps the records of roster players.
func (r Roster) Filter(records []types.Record) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Player) {
			out = append(out, rec)
		}
	}
	return out
}
