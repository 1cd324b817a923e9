package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/okian/dedidash/internal/domain/scoring"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

// Analytics tuning.
const (
	recentLimit      = 20
	sketchAccuracy   = 0.01
	unrankedBucketID = "unranked"
)

// rankBuckets are the fixed histogram bars. Max 0 is open ended.
var rankBuckets = []types.RankBucket{
	{Label: "1", Min: 1, Max: 1},
	{Label: "2", Min: 2, Max: 2},
	{Label: "3", Min: 3, Max: 3},
	{Label: "4-5", Min: 4, Max: 5},
	{Label: "6-10", Min: 6, Max: 10},
	{Label: "11-20", Min: 11, Max: 20},
	{Label: "21-50", Min: 21, Max: 50},
	{Label: "51+", Min: 51},
	{Label: unrankedBucketID},
}

// EmptyHistogram returns the rank buckets with zero counts.
func EmptyHistogram() []types.RankBucket {
	out := make([]types.RankBucket, len(rankBuckets))
	copy(out, rankBuckets)
	return out
}

// RankHistogram counts records per rank bucket.
func RankHistogram(records []types.Record) []types.RankBucket {
	out := EmptyHistogram()
	for _, r := range records {
		out[bucketIndex(r.Rank)].Count++
	}
	return out
}

func bucketIndex(rank int) int {
	if rank <= 0 {
		return len(rankBuckets) - 1
	}
	for i, b := range rankBuckets[:len(rankBuckets)-1] {
		if rank >= b.Min && (b.Max == 0 || rank <= b.Max) {
			return i
		}
	}
	return len(rankBuckets) - 1
}

// EnvironmentCounts counts records per environment. Every TMU environment is
// present; unknown tags follow in name order.
func EnvironmentCounts(records []types.Record) []types.EnvironmentCount {
	counts := make(map[string]int)
	for _, r := range records {
		if r.Environment != "" {
			counts[canonicalEnvironment(r.Environment)]++
		}
	}
	out := make([]types.EnvironmentCount, 0, len(types.Environments))
	known := make(map[string]struct{}, len(types.Environments))
	for _, env := range types.Environments {
		known[env] = struct{}{}
		out = append(out, types.EnvironmentCount{Environment: env, Count: counts[env]})
	}
	for _, env := range sortedKeys(counts) {
		if _, ok := known[env]; !ok {
			out = append(out, types.EnvironmentCount{Environment: env, Count: counts[env]})
		}
	}
	for i := range out {
		out[i].Percent = scoring.Round1(percent(out[i].Count, len(records)))
	}
	return out
}

func canonicalEnvironment(env string) string {
	for _, known := range types.Environments {
		if strings.EqualFold(env, known) {
			return known
		}
	}
	return env
}

// PlayerAnalytics summarises every capture of player inside w. An unknown
// player or an empty window yields zero counts, never an error.
func PlayerAnalytics(snap Snapshot, player string, w window.Window, loc *time.Location) types.PlayerAnalytics {
	loc = location(loc)
	player = strings.ToLower(strings.TrimSpace(player))

	var recs []types.Record
	for _, r := range InWindow(snap.History, w) {
		if r.Player == player {
			recs = append(recs, r)
		}
	}

	pa := types.PlayerAnalytics{
		Player:            player,
		Window:            w,
		Records:           len(recs),
		RankHistogram:     RankHistogram(recs),
		Environments:      EnvironmentCounts(recs),
		Recent:            []types.Record{},
		WorldRecordTracks: []string{},
		Nicknames:         []types.NicknameSpan{},
		Empty:             len(recs) == 0,
	}
	if pa.Empty {
		return pa
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].RecordedAt.After(recs[j].RecordedAt) })

	wr := make(map[string]struct{})
	rankSum, ranked := 0, 0
	for _, r := range recs {
		if !r.Ranked() {
			continue
		}
		rankSum += r.Rank
		ranked++
		switch {
		case r.Rank == 1:
			pa.WorldRecords++
			wr[r.Track] = struct{}{}
			fallthrough
		case r.Rank <= 3:
			pa.Top3++
			fallthrough
		case r.Rank <= 5:
			pa.Top5++
		}
	}
	if ranked > 0 {
		pa.AvgRank = scoring.Round1(float64(rankSum) / float64(ranked))
	}
	if p50, p90, ok := rankPercentiles(recs); ok {
		pa.RankP50, pa.RankP90 = p50, p90
	}

	pa.UniqueTracks = distinctTracks(recs)
	first, last := recs[len(recs)-1].RecordedAt.In(loc), recs[0].RecordedAt.In(loc)
	pa.ActivityDays = calendarDays(first, last)

	best := 0
	for _, e := range pa.Environments {
		if e.Count > best {
			best = e.Count
			pa.FavouriteEnvironment = e.Environment
		}
	}

	n := recentLimit
	if len(recs) < n {
		n = len(recs)
	}
	pa.Recent = append(pa.Recent, recs[:n]...)
	pa.WorldRecordTracks = sortedKeys(wr)
	pa.Nicknames = nicknameSpans(recs)
	return pa
}

// rankPercentiles sketches the ranked records. ok is false when nothing is
// ranked or the sketch rejects a value; the percentiles then stay zero.
func rankPercentiles(recs []types.Record) (p50, p90 float64, ok bool) {
	sketch, err := ddsketch.NewDefaultDDSketch(sketchAccuracy)
	if err != nil {
		return 0, 0, false
	}
	for _, r := range recs {
		if !r.Ranked() {
			continue
		}
		if err := sketch.Add(float64(r.Rank)); err != nil {
			return 0, 0, false
		}
	}
	if sketch.IsEmpty() {
		return 0, 0, false
	}
	qs, err := sketch.GetValuesAtQuantiles([]float64{0.5, 0.9})
	if err != nil {
		return 0, 0, false
	}
	return scoring.Round1(qs[0]), scoring.Round1(qs[1]), true
}

// calendarDays counts the days from first to last, both included.
func calendarDays(first, last time.Time) int {
	a := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

func nicknameSpans(recs []types.Record) []types.NicknameSpan {
	spans := make(map[string]*types.NicknameSpan)
	for _, r := range recs {
		if r.Nickname == "" {
			continue
		}
		s, ok := spans[r.Nickname]
		if !ok {
			s = &types.NicknameSpan{Nickname: r.Nickname, FirstSeen: r.RecordedAt, LastSeen: r.RecordedAt}
			spans[r.Nickname] = s
		}
		if r.RecordedAt.Before(s.FirstSeen) {
			s.FirstSeen = r.RecordedAt
		}
		if r.RecordedAt.After(s.LastSeen) {
			s.LastSeen = r.RecordedAt
		}
		s.Records++
	}
	out := make([]types.NicknameSpan, 0, len(spans))
	for _, s := range spans {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].Nickname < out[j].Nickname
	})
	return out
}
