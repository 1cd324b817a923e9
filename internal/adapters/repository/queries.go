package repository

import (
	"strconv"
	"strings"
)

const recordColumns = "player, track, nickname, environment, time_ms, rank_pos, mode, server, recorded_at, captured_at"

// queries holds the SQL for one backend with placeholders already bound.
type queries struct {
	upsertRecord     string
	insertHistory    string
	upsertChallenge  string
	insertRun        string
	selectRecords    string
	selectHistory    string
	selectChallenges string
	selectLastRun    string
	recordStats      string
	countHistory     string
	countChallenges  string
}

func queriesFor(b Backend) queries {
	q := queries{
		selectRecords:    "SELECT " + recordColumns + " FROM records ORDER BY player, track",
		selectHistory:    "SELECT " + recordColumns + " FROM record_history ORDER BY recorded_at, player, track",
		selectChallenges: "SELECT name, uid, environment, total_records, last_updated FROM challenges",
		selectLastRun: `SELECT id, started_at, finished_at, players, fetched, written, duplicates, invalid, challenges, status, failures
			FROM ingest_runs ORDER BY started_at DESC, id DESC LIMIT 1`,
		recordStats: `SELECT COUNT(*), COUNT(DISTINCT player), COUNT(DISTINCT track),
			MIN(recorded_at), MAX(recorded_at), MAX(captured_at) FROM records`,
		countHistory:    "SELECT COUNT(*) FROM record_history",
		countChallenges: "SELECT COUNT(*) FROM challenges",
		insertRun: `INSERT INTO ingest_runs (id, started_at, finished_at, players, fetched, written, duplicates, invalid, challenges, status, failures)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	}

	values := "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	newer := []string{"nickname", "environment", "time_ms", "rank_pos", "mode", "server", "captured_at", "recorded_at"}

	switch b {
	case MySQL:
		// Assignments run left to right, so recorded_at must come last.
		sets := make([]string, len(newer))
		for i, col := range newer {
			sets[i] = col + " = IF(new.recorded_at >= records.recorded_at, new." + col + ", records." + col + ")"
		}
		q.upsertRecord = "INSERT INTO records (" + recordColumns + ") " + values +
			" AS new ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
		q.insertHistory = "INSERT IGNORE INTO record_history (" + recordColumns + ") " + values
		q.upsertChallenge = `INSERT INTO challenges (name, uid, environment, total_records, last_updated)
			VALUES (?, ?, ?, ?, ?) AS new ON DUPLICATE KEY UPDATE
			uid = IF(new.uid <> '', new.uid, challenges.uid),
			environment = IF(new.environment <> '', new.environment, challenges.environment),
			total_records = new.total_records,
			last_updated = new.last_updated`
	default:
		sets := make([]string, len(newer))
		for i, col := range newer {
			sets[i] = col + " = excluded." + col
		}
		q.upsertRecord = "INSERT INTO records (" + recordColumns + ") " + values +
			" ON CONFLICT (player, track) DO UPDATE SET " + strings.Join(sets, ", ") +
			" WHERE excluded.recorded_at >= records.recorded_at"
		q.insertHistory = "INSERT INTO record_history (" + recordColumns + ") " + values +
			" ON CONFLICT (player, track, recorded_at) DO NOTHING"
		q.upsertChallenge = `INSERT INTO challenges (name, uid, environment, total_records, last_updated)
			VALUES (?, ?, ?, ?, ?) ON CONFLICT (name) DO UPDATE SET
			uid = CASE WHEN excluded.uid <> '' THEN excluded.uid ELSE challenges.uid END,
			environment = CASE WHEN excluded.environment <> '' THEN excluded.environment ELSE challenges.environment END,
			total_records = excluded.total_records,
			last_updated = excluded.last_updated`
	}

	if b == Postgres {
		q.upsertRecord = rebind(q.upsertRecord)
		q.insertHistory = rebind(q.insertHistory)
		q.upsertChallenge = rebind(q.upsertChallenge)
		q.insertRun = rebind(q.insertRun)
	}
	return q
}

// rebind rewrites ? placeholders to PostgreSQL's $n form.
func rebind(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
