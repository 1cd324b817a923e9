package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

// favouriteTolerance is how close to the top count a server must be to
// count as a favourite too.
const favouriteTolerance = 0.1

// ServerPreferences breaks down where each roster player drove inside w.
// A (player, server) pair needs minRecords records to be listed. Players are
// ordered by records plus distinct active days.
func ServerPreferences(snap Snapshot, r roster.Roster, w window.Window, minRecords int, loc *time.Location) types.ServerPreferences {
	loc = location(loc)
	out := types.ServerPreferences{Window: w, Players: []types.ServerPreference{}}

	var withServer []types.Record
	for _, rec := range r.Filter(InWindow(snap.History, w)) {
		if rec.Server != "" {
			withServer = append(withServer, rec)
		}
	}
	nicks := LatestNicknames(snap.History)

	for login, recs := range byPlayer(withServer) {
		perServer := make(map[string][]types.Record)
		for _, rec := range recs {
			perServer[rec.Server] = append(perServer[rec.Server], rec)
		}

		pref := types.ServerPreference{Player: login, Nickname: nicks[login]}
		for server, srecs := range perServer {
			if len(srecs) < minRecords {
				continue
			}
			tracks := distinctTracks(srecs)
			pref.Servers = append(pref.Servers, types.ServerUsage{
				Server:       server,
				Records:      len(srecs),
				Tracks:       tracks,
				Days:         distinctDays(srecs, loc),
				Improvements: len(srecs) - tracks,
			})
			pref.TotalRecords += len(srecs)
		}
		if len(pref.Servers) == 0 {
			continue
		}
		pref.TotalDays = distinctDays(recs, loc)
		sort.Slice(pref.Servers, func(i, j int) bool {
			a, b := pref.Servers[i], pref.Servers[j]
			if a.Records != b.Records {
				return a.Records > b.Records
			}
			if a.Days != b.Days {
				return a.Days > b.Days
			}
			return a.Server < b.Server
		})
		top := float64(pref.Servers[0].Records)
		for _, s := range pref.Servers {
			if (top-float64(s.Records))/top > favouriteTolerance {
				break
			}
			pref.Favourites = append(pref.Favourites, s)
		}
		out.Players = append(out.Players, pref)
	}

	sort.Slice(out.Players, func(i, j int) bool {
		a, b := out.Players[i], out.Players[j]
		if sa, sb := a.TotalRecords+a.TotalDays, b.TotalRecords+b.TotalDays; sa != sb {
			return sa > sb
		}
		return a.Player < b.Player
	})
	return out
}

// ServerActivity lists every player with at least minRecords records on
// server inside w. Server names match case-insensitively.
func ServerActivity(snap Snapshot, server string, w window.Window, minRecords int, loc *time.Location) types.ServerActivity {
	loc = location(loc)
	server = strings.TrimSpace(server)
	out := types.ServerActivity{Server: server, Window: w, Players: []types.ServerActivityRow{}}

	var onServer []types.Record
	for _, rec := range InWindow(snap.History, w) {
		if rec.Server != "" && strings.EqualFold(rec.Server, server) {
			onServer = append(onServer, rec)
		}
	}

	for login, recs := range byPlayer(onServer) {
		if len(recs) < minRecords {
			continue
		}
		row := types.ServerActivityRow{
			Player:      login,
			Records:     len(recs),
			Tracks:      distinctTracks(recs),
			FirstRecord: recs[0].RecordedAt,
			LastRecord:  recs[0].RecordedAt,
		}
		for _, rec := range recs[1:] {
			if rec.RecordedAt.Before(row.FirstRecord) {
				row.FirstRecord = rec.RecordedAt
			}
			if rec.RecordedAt.After(row.LastRecord) {
				row.LastRecord = rec.RecordedAt
			}
		}
		row.SpanDays = calendarDays(row.FirstRecord.In(loc), row.LastRecord.In(loc))
		row.PerDay = float64(row.Records) / float64(row.SpanDays)
		out.Players = append(out.Players, row)
	}

	sort.Slice(out.Players, func(i, j int) bool {
		a, b := out.Players[i], out.Players[j]
		if a.Records != b.Records {
			return a.Records > b.Records
		}
		return a.Player < b.Player
	})
	return out
}
