package stats

import (
	"fmt"
	"sort"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
)

// MinSharedTracks is how many common tracks make two players rivals.
const MinSharedTracks = 3

// Rivalries pairs players of r that share at least MinSharedTracks tracks
// and counts who holds the better best rank on each.
func Rivalries(records []types.Record, r roster.Roster) []types.Rivalry {
	// track -> player -> best effective rank
	best := make(map[string]map[string]int)
	for _, rec := range records {
		if !r.Contains(rec.Player) {
			continue
		}
		m, ok := best[rec.Track]
		if !ok {
			m = make(map[string]int)
			best[rec.Track] = m
		}
		if cur, ok := m[rec.Player]; !ok || rec.EffectiveRank() < cur {
			m[rec.Player] = rec.EffectiveRank()
		}
	}

	type tally struct{ shared, winsA, winsB int }
	pairs := make(map[[2]string]*tally)
	for _, players := range best {
		logins := make([]string, 0, len(players))
		for p := range players {
			logins = append(logins, p)
		}
		sort.Strings(logins)
		for i := 0; i < len(logins); i++ {
			for j := i + 1; j < len(logins); j++ {
				a, b := logins[i], logins[j]
				key := [2]string{a, b}
				t, ok := pairs[key]
				if !ok {
					t = &tally{}
					pairs[key] = t
				}
				t.shared++
				switch {
				case players[a] < players[b]:
					t.winsA++
				case players[b] < players[a]:
					t.winsB++
				}
			}
		}
	}

	var out []types.Rivalry
	for key, t := range pairs {
		if t.shared < MinSharedTracks {
			continue
		}
		rv := types.Rivalry{SharedTracks: t.shared}
		switch {
		case t.winsA > t.winsB:
			rv.Leader, rv.Challenger, rv.LeaderWins, rv.ChallengerWins = key[0], key[1], t.winsA, t.winsB
		case t.winsB > t.winsA:
			rv.Leader, rv.Challenger, rv.LeaderWins, rv.ChallengerWins = key[1], key[0], t.winsB, t.winsA
		default:
			rv.Leader, rv.Challenger, rv.LeaderWins, rv.ChallengerWins = key[0], key[1], t.winsA, t.winsB
			rv.Tied = true
		}
		rv.Score = fmt.Sprintf("%d-%d", rv.LeaderWins, rv.ChallengerWins)
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SharedTracks != out[j].SharedTracks {
			return out[i].SharedTracks > out[j].SharedTracks
		}
		if out[i].Leader != out[j].Leader {
			return out[i].Leader < out[j].Leader
		}
		return out[i].Challenger < out[j].Challenger
	})
	return out
}
