package types

import (
	"time"

	"github.com/okian/dedidash/internal/domain/window"
)

// Trend markers for leaderboard rows.
const (
	TrendNew  = "NEW"
	TrendSame = "■"
)

// LeaderboardRow is one ranked player.
type LeaderboardRow struct {
	Position int     `json:"position"`
	Player   string  `json:"player"`
	Nickname string  `json:"nickname,omitempty"`
	Top1     int     `json:"top1"`
	Top3     int     `json:"top3"`
	Top5     int     `json:"top5"`
	Records  int     `json:"records"`
	AvgRank  float64 `json:"avg_rank"`
	Score    float64 `json:"score"`
	Trend    string  `json:"trend,omitempty"`
}

// Leaderboard is a ranked snapshot of roster players.
type Leaderboard struct {
	Window      window.Window    `json:"window"`
	// Prior is the window trends compare against; zero for all time.
	Prior       window.Window    `json:"prior"`
	Rows        []LeaderboardRow `json:"rows"`
	Empty       bool             `json:"empty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// PlayerDelta compares one player's activity between two windows.
type PlayerDelta struct {
	Player        string `json:"player"`
	Nickname      string `json:"nickname,omitempty"`
	New           int    `json:"new"`
	Improved      int    `json:"improved"`
	Total         int    `json:"total"`
	PriorNew      int    `json:"prior_new"`
	PriorImproved int    `json:"prior_improved"`
	PriorTotal    int    `json:"prior_total"`
	Delta         int    `json:"delta"`
}

// Rivalry is a pair of players trading top ranks on shared tracks.
type Rivalry struct {
	Leader         string `json:"leader"`
	Challenger     string `json:"challenger"`
	LeaderWins     int    `json:"leader_wins"`
	ChallengerWins int    `json:"challenger_wins"`
	SharedTracks   int    `json:"shared_tracks"`
	Score          string `json:"score"`
	Tied           bool   `json:"tied"`
}

// TrackOwner is the roster player holding rank 1 on a track.
type TrackOwner struct {
	Track       string    `json:"track"`
	Player      string    `json:"player"`
	Environment string    `json:"environment,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Highlight is a single named weekly award.
type Highlight struct {
	Key    string  `json:"key"`
	Title  string  `json:"title"`
	Player string  `json:"player"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail,omitempty"`
}

// FunStats are team-wide totals for a window.
type FunStats struct {
	TotalRecords        int    `json:"total_records"`
	UniqueTracks        int    `json:"unique_tracks"`
	UniquePlayers       int    `json:"unique_players"`
	HottestTrack        string `json:"hottest_track,omitempty"`
	HottestTrackRecords int    `json:"hottest_track_records"`
}

// WeeklyReport compares a window against the one before it.
type WeeklyReport struct {
	Window      window.Window `json:"window"`
	Prior       window.Window `json:"prior"`
	Players     []PlayerDelta `json:"players"`
	Rivalries   []Rivalry     `json:"rivalries"`
	TrackOwners []TrackOwner  `json:"track_owners"`
	Highlights  []Highlight   `json:"highlights"`
	Fun         FunStats      `json:"fun"`
	Empty       bool          `json:"empty"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// RankBucket is one bar of a rank histogram. Max 0 means open ended; Min and
// Max both 0 is the unranked bucket.
type RankBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// EnvironmentCount is the number of records in one environment.
type EnvironmentCount struct {
	Environment string  `json:"environment"`
	Count       int     `json:"count"`
	Percent     float64 `json:"percent"`
}

// NicknameSpan records when a nickname was in use.
type NicknameSpan struct {
	Nickname  string    `json:"nickname"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Records   int       `json:"records"`
}

// PlayerAnalytics summarises one player's records.
type PlayerAnalytics struct {
	Player               string             `json:"player"`
	Window               window.Window      `json:"window"`
	Records              int                `json:"records"`
	WorldRecords         int                `json:"world_records"`
	Top3                 int                `json:"top3"`
	Top5                 int                `json:"top5"`
	UniqueTracks         int                `json:"unique_tracks"`
	AvgRank              float64            `json:"avg_rank"`
	RankP50              float64            `json:"rank_p50"`
	RankP90              float64            `json:"rank_p90"`
	ActivityDays         int                `json:"activity_days"`
	FavouriteEnvironment string             `json:"favourite_environment,omitempty"`
	RankHistogram        []RankBucket       `json:"rank_histogram"`
	Environments         []EnvironmentCount `json:"environments"`
	Recent               []Record           `json:"recent"`
	WorldRecordTracks    []string           `json:"world_record_tracks"`
	Nicknames            []NicknameSpan     `json:"nicknames"`
	Empty                bool               `json:"empty"`
}

// ServerUsage is one player's activity on one server.
type ServerUsage struct {
	Server       string `json:"server"`
	Records      int    `json:"records"`
	Tracks       int    `json:"tracks"`
	Days         int    `json:"days"`
	Improvements int    `json:"improvements"`
}

// ServerPreference lists where a player drives.
type ServerPreference struct {
	Player       string        `json:"player"`
	Nickname     string        `json:"nickname,omitempty"`
	TotalRecords int           `json:"total_records"`
	TotalDays    int           `json:"total_days"`
	Favourites   []ServerUsage `json:"favourites"`
	Servers      []ServerUsage `json:"servers"`
}

// ServerPreferences is the per-player server breakdown.
type ServerPreferences struct {
	Window  window.Window      `json:"window"`
	Players []ServerPreference `json:"players"`
}

// ServerActivityRow is one player's activity on a single server.
type ServerActivityRow struct {
	Player      string    `json:"player"`
	Records     int       `json:"records"`
	Tracks      int       `json:"tracks"`
	FirstRecord time.Time `json:"first_record"`
	LastRecord  time.Time `json:"last_record"`
	SpanDays    int       `json:"span_days"`
	PerDay      float64   `json:"per_day"`
}

// ServerActivity lists players active on one server.
type ServerActivity struct {
	Server  string              `json:"server"`
	Window  window.Window       `json:"window"`
	Players []ServerActivityRow `json:"players"`
}

// DatabaseStatus describes store contents.
type DatabaseStatus struct {
	Backend     string     `json:"backend"`
	Records     int        `json:"records"`
	HistoryRows int        `json:"history_rows"`
	Players     int        `json:"players"`
	Tracks      int        `json:"tracks"`
	Challenges  int        `json:"challenges"`
	FirstRecord time.Time  `json:"first_record"`
	LastRecord  time.Time  `json:"last_record"`
	LastCapture time.Time  `json:"last_capture"`
	LastRun     *IngestRun `json:"last_run,omitempty"`
}
