package stats

import (
	"sort"
	"time"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

// WeeklyOptions tunes the weekly report.
type WeeklyOptions struct {
	// RivalryExcluded logins never appear in rivalries.
	RivalryExcluded roster.Roster
	// Location decides calendar days and hours for highlights.
	Location *time.Location
	// ChampionServer names the server whose tracks earn the server
	// champion highlight. Empty skips the award.
	ChampionServer string
}

// Weekly compares roster activity in w against the window of equal length
// before it. Every roster player gets a row, even with no records.
func Weekly(snap Snapshot, r roster.Roster, w window.Window, opts WeeklyOptions) types.WeeklyReport {
	loc := location(opts.Location)
	history := r.Filter(snap.History)
	current := InWindow(history, w)

	report := types.WeeklyReport{
		Window: w,
		Prior:  w.Prior(),
		Empty:  len(current) == 0,
	}

	cur := activity(history, w)
	var prior map[string]counts
	if !w.IsAll() {
		prior = activity(history, report.Prior)
	}
	nicks := LatestNicknames(history)

	report.Players = make([]types.PlayerDelta, 0, r.Len())
	for _, login := range r.Logins() {
		c, p := cur[login], prior[login]
		report.Players = append(report.Players, types.PlayerDelta{
			Player:        login,
			Nickname:      nicks[login],
			New:           c.new,
			Improved:      c.improved,
			Total:         c.new + c.improved,
			PriorNew:      p.new,
			PriorImproved: p.improved,
			PriorTotal:    p.new + p.improved,
			Delta:         (c.new + c.improved) - (p.new + p.improved),
		})
	}
	sort.SliceStable(report.Players, func(i, j int) bool {
		a, b := report.Players[i], report.Players[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Player < b.Player
	})

	if report.Empty {
		return report
	}

	report.Rivalries = Rivalries(current, r.Without(opts.RivalryExcluded.Logins()...))
	report.TrackOwners = TrackOwners(current)
	report.Highlights = Highlights(current, snap, loc)
	if h, ok := ServerChampion(current, snap, opts.ChampionServer); ok {
		report.Highlights = append(report.Highlights, h)
	}
	report.Fun = Fun(current)
	return report
}

type counts struct {
	new      int
	improved int
}

// activity counts history entries inside w per player. The first entry ever
// seen for a (player, track) pair is new, every later one an improvement.
func activity(history []types.Record, w window.Window) map[string]counts {
	pairs := make(map[string][]types.Record)
	for _, h := range history {
		pairs[h.Key()] = append(pairs[h.Key()], h)
	}

	out := make(map[string]counts)
	for _, entries := range pairs {
		sort.Slice(entries, func(i, j int) bool { return entries[i].RecordedAt.Before(entries[j].RecordedAt) })
		for i, e := range entries {
			if !w.Contains(e.RecordedAt) {
				continue
			}
			c := out[e.Player]
			if i == 0 {
				c.new++
			} else {
				c.improved++
			}
			out[e.Player] = c
		}
	}
	return out
}

// TrackOwners lists tracks where a player holds rank 1, newest holder wins.
func TrackOwners(records []types.Record) []types.TrackOwner {
	owners := make(map[string]types.TrackOwner)
	for _, rec := range records {
		if rec.Rank != 1 {
			continue
		}
		if cur, ok := owners[rec.Track]; ok && !rec.RecordedAt.After(cur.RecordedAt) {
			continue
		}
		owners[rec.Track] = types.TrackOwner{
			Track:       rec.Track,
			Player:      rec.Player,
			Environment: rec.Environment,
			RecordedAt:  rec.RecordedAt,
		}
	}
	out := make([]types.TrackOwner, 0, len(owners))
	for _, o := range owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Track < out[j].Track })
	return out
}

// Fun computes team totals.
func Fun(records []types.Record) types.FunStats {
	fun := types.FunStats{TotalRecords: len(records)}
	players := make(map[string]struct{})
	perTrack := make(map[string]int)
	for _, r := range records {
		players[r.Player] = struct{}{}
		perTrack[r.Track]++
	}
	fun.UniquePlayers = len(players)
	fun.UniqueTracks = len(perTrack)
	for track, n := range perTrack {
		if n > fun.HottestTrackRecords || (n == fun.HottestTrackRecords && track < fun.HottestTrack) {
			fun.HottestTrack = track
			fun.HottestTrackRecords = n
		}
	}
	return fun
}
