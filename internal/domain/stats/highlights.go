package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/okian/dedidash/internal/domain/types"
)

// Highlight keys.
const (
	HighlightNightOwl       = "night_owl"
	HighlightWeekendWarrior = "weekend_warrior"
	HighlightBingeRacer     = "binge_racer"
	HighlightDailyGrinder   = "daily_grinder"
	HighlightLuckyNumber    = "lucky_number"
	HighlightBridesmaid     = "bridesmaid"
	HighlightThirdCharm     = "third_charm"
	HighlightSoloExplorer   = "solo_explorer"
	HighlightNoLifer        = "no_lifer"
	HighlightBenchwarmer    = "benchwarmer"
	HighlightRageQuit       = "rage_quit"
	HighlightCaffeine       = "caffeine"
	HighlightLolsport       = "lolsport_addict"
	HighlightServerChampion = "server_champion"
)

// nightEndHour is the first hour that no longer counts as late night.
const nightEndHour = 6

// Highlights computes the weekly awards over the records of one window.
// Awards nobody qualifies for are left out.
func Highlights(records []types.Record, snap Snapshot, loc *time.Location) []types.Highlight {
	loc = location(loc)
	if len(records) == 0 {
		return nil
	}
	players := byPlayer(records)
	deduped := byPlayer(BestPerTrack(records))

	var out []types.Highlight
	add := func(h types.Highlight, ok bool) {
		if ok {
			out = append(out, h)
		}
	}

	add(mostOf(players, HighlightNightOwl, "Night Owl", func(recs []types.Record) (float64, string) {
		n := 0
		for _, r := range recs {
			if r.RecordedAt.In(loc).Hour() < nightEndHour {
				n++
			}
		}
		return float64(n), "records between 0:00 and 6:00"
	}))

	add(mostOf(players, HighlightWeekendWarrior, "Saturday Night Fever", func(recs []types.Record) (float64, string) {
		n := 0
		for _, r := range recs {
			if wd := r.RecordedAt.In(loc).Weekday(); wd == time.Saturday || wd == time.Sunday {
				n++
			}
		}
		return float64(n), fmt.Sprintf("%.0f%% of their records on the weekend", percent(n, len(recs)))
	}))

	add(mostOf(players, HighlightBingeRacer, "Just One More", func(recs []types.Record) (float64, string) {
		perDay := make(map[string]int)
		for _, r := range recs {
			perDay[dayKey(r.RecordedAt, loc)]++
		}
		day, n := "", 0
		for d, c := range perDay {
			if c > n || (c == n && d < day) {
				day, n = d, c
			}
		}
		return float64(n), "on " + day
	}))

	add(mostOf(players, HighlightDailyGrinder, "Creature of Habit", func(recs []types.Record) (float64, string) {
		return float64(distinctDays(recs, loc)), "distinct days played"
	}))

	for _, award := range []struct {
		key, title string
		rank       int
	}{
		{HighlightLuckyNumber, "Lucky Number", 1},
		{HighlightBridesmaid, "Always the Bridesmaid", 2},
		{HighlightThirdCharm, "Third Time's the Charm", 3},
	} {
		rank := award.rank
		add(mostOf(deduped, award.key, award.title, func(recs []types.Record) (float64, string) {
			n := 0
			for _, r := range recs {
				if r.Rank == rank {
					n++
				}
			}
			return float64(n), fmt.Sprintf("rank %d finishes", rank)
		}))
	}

	add(mostOf(deduped, HighlightSoloExplorer, "Solo Explorer", func(recs []types.Record) (float64, string) {
		n := 0
		for _, r := range recs {
			if c, ok := snap.Challenge(r.Track); ok && c.TotalRecords == 1 {
				n++
			}
		}
		return float64(n), "tracks where they are the only player"
	}))

	add(mostOf(players, HighlightNoLifer, "No-Lifer", func(recs []types.Record) (float64, string) {
		return float64(len(recs)), "records"
	}))

	add(benchwarmer(players))
	add(rageQuit(players))

	add(mostOf(players, HighlightCaffeine, "Caffeine Addict", func(recs []types.Record) (float64, string) {
		hours := make(map[int]struct{})
		for _, r := range recs {
			hours[r.RecordedAt.In(loc).Hour()] = struct{}{}
		}
		return float64(len(hours)), "different hours of the day"
	}))

	add(mostOf(deduped, HighlightLolsport, "Lolsport Addict", func(recs []types.Record) (float64, string) {
		n := 0
		for _, r := range recs {
			if containsFold(r.Track, "lolsport") {
				n++
			}
		}
		return float64(n), "lolsport tracks"
	}))

	return out
}

// ServerChampion awards the player who drove the most distinct tracks of
// server. A track belongs to server once anyone's record was driven there,
// and counts wherever the player drove it. Server names match ignoring case,
// spaces and punctuation, so "minilol_freezone" is "MiniLol FreeZone".
func ServerChampion(records []types.Record, snap Snapshot, server string) (types.Highlight, bool) {
	key := serverKey(server)
	if key == "" || len(records) == 0 {
		return types.Highlight{}, false
	}
	tracks := make(map[string]struct{})
	for _, set := range [][]types.Record{snap.History, snap.Records} {
		for _, r := range set {
			if r.Server != "" && strings.Contains(serverKey(r.Server), key) {
				tracks[r.Track] = struct{}{}
			}
		}
	}
	if len(tracks) == 0 {
		return types.Highlight{}, false
	}
	return mostOf(byPlayer(records), HighlightServerChampion, server+" Champion", func(recs []types.Record) (float64, string) {
		seen := make(map[string]struct{})
		for _, r := range recs {
			if _, ok := tracks[r.Track]; ok {
				seen[r.Track] = struct{}{}
			}
		}
		return float64(len(seen)), "unique " + server + " tracks"
	})
}

func serverKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mostOf awards the player with the highest positive value. Ties go to the
// alphabetically first login.
func mostOf(players map[string][]types.Record, key, title string, value func([]types.Record) (float64, string)) (types.Highlight, bool) {
	var best types.Highlight
	for _, login := range sortedKeys(players) {
		v, detail := value(players[login])
		if v > best.Value {
			best = types.Highlight{Key: key, Title: title, Player: login, Value: v, Detail: detail}
		}
	}
	return best, best.Value > 0
}

// benchwarmer picks the player with the fewest unique tracks. Ties go to the
// worse average rank.
func benchwarmer(players map[string][]types.Record) (types.Highlight, bool) {
	var (
		best      types.Highlight
		bestAvg   float64
		found     bool
		bestCount int
	)
	for _, login := range sortedKeys(players) {
		recs := players[login]
		n := distinctTracks(recs)
		avg := averageEffectiveRank(recs)
		if !found || n < bestCount || (n == bestCount && avg > bestAvg) {
			found, bestCount, bestAvg = true, n, avg
			best = types.Highlight{
				Key:    HighlightBenchwarmer,
				Title:  "The Benchwarmer",
				Player: login,
				Value:  float64(n),
				Detail: "unique tracks",
			}
		}
	}
	return best, found
}

// rageQuit finds the largest rank drop between two consecutive captures of
// the same track.
func rageQuit(players map[string][]types.Record) (types.Highlight, bool) {
	var best types.Highlight
	for _, login := range sortedKeys(players) {
		perTrack := make(map[string][]types.Record)
		for _, r := range players[login] {
			perTrack[r.Track] = append(perTrack[r.Track], r)
		}
		for _, track := range sortedKeys(perTrack) {
			recs := perTrack[track]
			sort.Slice(recs, func(i, j int) bool { return recs[i].RecordedAt.Before(recs[j].RecordedAt) })
			for i := 0; i+1 < len(recs); i++ {
				from, to := recs[i].EffectiveRank(), recs[i+1].EffectiveRank()
				if drop := float64(to - from); drop > best.Value {
					best = types.Highlight{
						Key:    HighlightRageQuit,
						Title:  "Rage Quit Candidate",
						Player: login,
						Value:  drop,
						Detail: fmt.Sprintf("%d → %d on %s", from, to, track),
					}
				}
			}
		}
	}
	return best, best.Value > 0
}

func averageEffectiveRank(recs []types.Record) float64 {
	if len(recs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range recs {
		sum += r.EffectiveRank()
	}
	return float64(sum) / float64(len(recs))
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
