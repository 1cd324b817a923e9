// Package export writes records and leaderboards as CSV or Parquet.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/dedidash/internal/domain/types"
)

// Error constants.
var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrWrite         = errors.New("export write failed")
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// ParseFormat accepts "csv" or "parquet" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Parquet:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// RecordRow is the flat export shape of a record. Times are UTC and lap
// times are milliseconds.
type RecordRow struct {
	Player      string    `parquet:"player,snappy"`
	Nickname    string    `parquet:"nickname,snappy"`
	Track       string    `parquet:"track,snappy"`
	Environment string    `parquet:"environment,snappy"`
	TimeMs      int64     `parquet:"time_ms,snappy"`
	Rank        int32     `parquet:"rank,snappy"`
	Mode        string    `parquet:"mode,snappy"`
	Server      string    `parquet:"server,snappy"`
	RecordedAt  time.Time `parquet:"recorded_at,snappy"`
	CapturedAt  time.Time `parquet:"captured_at,snappy"`
}

// StandingRow is the flat export shape of a leaderboard row.
type StandingRow struct {
	WindowStart time.Time `parquet:"window_start,snappy"`
	WindowEnd   time.Time `parquet:"window_end,snappy"`
	Position    int32     `parquet:"position,snappy"`
	Player      string    `parquet:"player,snappy"`
	Nickname    string    `parquet:"nickname,snappy"`
	Score       float64   `parquet:"score,snappy"`
	Top1        int32     `parquet:"top1,snappy"`
	Top3        int32     `parquet:"top3,snappy"`
	Top5        int32     `parquet:"top5,snappy"`
	Records     int32     `parquet:"records,snappy"`
	AvgRank     float64   `parquet:"avg_rank,snappy"`
	Trend       string    `parquet:"trend,snappy"`
}

var (
	recordHeader   = []string{"player", "nickname", "track", "environment", "time_ms", "rank", "mode", "server", "recorded_at", "captured_at"}
	standingHeader = []string{"window_start", "window_end", "position", "player", "nickname", "score", "top1", "top3", "top5", "records", "avg_rank", "trend"}
)

// RecordRows flattens records.
func RecordRows(records []types.Record) []RecordRow {
	rows := make([]RecordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, RecordRow{
			Player:      r.Player,
			Nickname:    r.Nickname,
			Track:       r.Track,
			Environment: r.Environment,
			TimeMs:      r.Time.Milliseconds(),
			Rank:        int32(r.Rank),
			Mode:        r.Mode,
			Server:      r.Server,
			RecordedAt:  r.RecordedAt.UTC(),
			CapturedAt:  r.CapturedAt.UTC(),
		})
	}
	return rows
}

// StandingRows flattens a leaderboard.
func StandingRows(lb types.Leaderboard) []StandingRow {
	rows := make([]StandingRow, 0, len(lb.Rows))
	for _, r := range lb.Rows {
		rows = append(rows, StandingRow{
			WindowStart: lb.Window.Start.UTC(),
			WindowEnd:   lb.Window.End.UTC(),
			Position:    int32(r.Position),
			Player:      r.Player,
			Nickname:    r.Nickname,
			Score:       r.Score,
			Top1:        int32(r.Top1),
			Top3:        int32(r.Top3),
			Top5:        int32(r.Top5),
			Records:     int32(r.Records),
			AvgRank:     r.AvgRank,
			Trend:       r.Trend,
		})
	}
	return rows
}

// WriteRecords writes records to w in the given format.
func WriteRecords(w io.Writer, format Format, records []types.Record) error {
	rows := RecordRows(records)
	switch format {
	case CSV:
		return writeCSV(w, recordHeader, rows, func(r RecordRow) []string {
			return []string{
				r.Player, r.Nickname, r.Track, r.Environment,
				strconv.FormatInt(r.TimeMs, 10),
				strconv.Itoa(int(r.Rank)),
				r.Mode, r.Server,
				stamp(r.RecordedAt), stamp(r.CapturedAt),
			}
		})
	case Parquet:
		return writeParquet(w, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteLeaderboard writes leaderboard rows to w in the given format.
func WriteLeaderboard(w io.Writer, format Format, lb types.Leaderboard) error {
	rows := StandingRows(lb)
	switch format {
	case CSV:
		return writeCSV(w, standingHeader, rows, func(r StandingRow) []string {
			return []string{
				stamp(r.WindowStart), stamp(r.WindowEnd),
				strconv.Itoa(int(r.Position)),
				r.Player, r.Nickname,
				strconv.FormatFloat(r.Score, 'f', 2, 64),
				strconv.Itoa(int(r.Top1)),
				strconv.Itoa(int(r.Top3)),
				strconv.Itoa(int(r.Top5)),
				strconv.Itoa(int(r.Records)),
				strconv.FormatFloat(r.AvgRank, 'f', 2, 64),
				r.Trend,
			}
		})
	case Parquet:
		return writeParquet(w, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeCSV[T any](w io.Writer, header []string, rows []T, fields func(T) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: csv header: %w", ErrWrite, err)
	}
	for _, row := range rows {
		if err := cw.Write(fields(row)); err != nil {
			return fmt.Errorf("%w: csv row: %w", ErrWrite, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: csv flush: %w", ErrWrite, err)
	}
	return nil
}

func writeParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("%w: parquet rows: %w", ErrWrite, err)
	}
	// Close writes the footer; the file is unreadable without it.
	if err := pw.Close(); err != nil {
		return fmt.Errorf("%w: parquet footer: %w", ErrWrite, err)
	}
	return nil
}
