package stats

import (
	"fmt"
	"sort"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/scoring"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

// Leaderboard ranks roster players by weighted points over the records
// driven inside w. Bounded windows get a trend against w.Prior().
func Leaderboard(snap Snapshot, r roster.Roster, w window.Window, scorer *scoring.Scorer) types.Leaderboard {
	return LeaderboardAgainst(snap, r, w, w.Prior(), scorer)
}

// LeaderboardAgainst is Leaderboard with the trend taken against prior.
// prior is ignored when w covers all time.
func LeaderboardAgainst(snap Snapshot, r roster.Roster, w, prior window.Window, scorer *scoring.Scorer) types.Leaderboard {
	if scorer == nil {
		scorer = scoring.New()
	}
	rows := leaderboardRows(snap, r, w, scorer)
	lb := types.Leaderboard{Window: w, Rows: rows, Empty: len(rows) == 0}
	if lb.Empty || w.IsAll() {
		return lb
	}

	lb.Prior = prior
	positions := make(map[string]int)
	for _, row := range leaderboardRows(snap, r, prior, scorer) {
		positions[row.Player] = row.Position
	}
	for i := range lb.Rows {
		lb.Rows[i].Trend = Trend(lb.Rows[i].Position, positions[lb.Rows[i].Player])
	}
	return lb
}

// Trend renders a position change. previous 0 means the player was not
// ranked before.
func Trend(current, previous int) string {
	switch {
	case previous == 0:
		return types.TrendNew
	case previous > current:
		return fmt.Sprintf("▲%d", previous-current)
	case previous < current:
		return fmt.Sprintf("▼%d", current-previous)
	default:
		return types.TrendSame
	}
}

func leaderboardRows(snap Snapshot, r roster.Roster, w window.Window, scorer *scoring.Scorer) []types.LeaderboardRow {
	records := BestPerTrack(r.Filter(snap.Driven(w)))
	if len(records) == 0 {
		return nil
	}
	nicks := LatestNicknames(records)

	var rows []types.LeaderboardRow
	for player, recs := range byPlayer(records) {
		row := types.LeaderboardRow{Player: player, Nickname: nicks[player], Records: len(recs)}
		var points float64
		rankSum, ranked := 0, 0
		for _, rec := range recs {
			c, known := snap.Challenge(rec.Track)
			points += scorer.Score(rec.Rank, c.TotalRecords, known)
			if !rec.Ranked() {
				continue
			}
			rankSum += rec.Rank
			ranked++
			if rec.Rank == 1 {
				row.Top1++
			}
			if rec.Rank <= 3 {
				row.Top3++
			}
			if rec.Rank <= 5 {
				row.Top5++
			}
		}
		if ranked > 0 {
			row.AvgRank = float64(rankSum) / float64(ranked)
		}
		row.Score = scoring.Round1(points)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Score != b.Score:
			return a.Score > b.Score
		case a.Records != b.Records:
			return a.Records > b.Records
		case a.Top1 != b.Top1:
			return a.Top1 > b.Top1
		case a.Top3 != b.Top3:
			return a.Top3 > b.Top3
		case a.Top5 != b.Top5:
			return a.Top5 > b.Top5
		default:
			return a.Player < b.Player
		}
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}
