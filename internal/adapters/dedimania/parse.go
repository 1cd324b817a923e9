package dedimania

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/dedidash/internal/domain/types"
)

// RecordDateLayout is how Dedimania prints RecordDate.
const RecordDateLayout = "2006-01-02 15:04:05"

// Column headers of the records table.
const (
	colLogin       = "login"
	colNickName    = "nickname"
	colRank        = "rank"
	colRecord      = "record"
	colMode        = "mode"
	colChallenge   = "challenge"
	colEnvir       = "envir"
	colEnvironment = "environment"
	colRecordDate  = "recorddate"
	colAccount     = "account"
)

// table is a header-indexed view of one records table.
type table struct {
	cols map[string]int
	rows []*goquery.Selection
}

// cell returns the trimmed text of the named column, or "".
func (t table) cell(row *goquery.Selection, col string) string {
	i, ok := t.cols[col]
	if !ok {
		return ""
	}
	cells := row.ChildrenFiltered("td")
	if i >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(i).Text())
}

// readTable indexes a table whose first tr.tabl row is the header. Only
// direct td children count, so nested layout tables do not shift columns.
func readTable(sel *goquery.Selection) (table, bool) {
	rows := sel.Find("tr.tabl")
	if rows.Length() == 0 {
		return table{}, false
	}
	t := table{cols: make(map[string]int)}
	rows.First().ChildrenFiltered("td").Each(func(i int, c *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(c.Text()))
		if name == "" || len(name) > 20 {
			return
		}
		if strings.HasPrefix(name, colRecordDate) {
			name = colRecordDate
		}
		if _, dup := t.cols[name]; !dup {
			t.cols[name] = i
		}
	})
	rows.Slice(1, rows.Length()).Each(func(_ int, r *goquery.Selection) {
		t.rows = append(t.rows, r)
	})
	return t, true
}

// parseResult is the outcome of reading one player page.
type parseResult struct {
	Records []types.Record
	Skipped []error
}

// parsePlayerPage reads the second table.tabl of a player records page.
// Rows whose lap time or date cannot be read are skipped and reported.
func parsePlayerPage(r io.Reader, login string, capturedAt time.Time, loc *time.Location) (parseResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return parseResult{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	tables := doc.Find("table.tabl")
	if tables.Length() < 2 {
		// Dedimania renders the search form only for unknown logins.
		return parseResult{}, nil
	}
	t, ok := readTable(tables.Eq(1))
	if !ok {
		return parseResult{}, nil
	}
	for _, col := range []string{colChallenge, colRecord, colRecordDate} {
		if _, ok := t.cols[col]; !ok {
			return parseResult{}, fmt.Errorf("%w: records table has no %q column", ErrParse, col)
		}
	}

	var res parseResult
	for _, row := range t.rows {
		if t.cell(row, colChallenge) == "" && t.cell(row, colRecord) == "" {
			continue
		}
		rec, err := parseRow(t, row, login, capturedAt, loc)
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func parseRow(t table, row *goquery.Selection, login string, capturedAt time.Time, loc *time.Location) (types.Record, error) {
	rec := types.Record{
		Player:     login,
		Nickname:   t.cell(row, colNickName),
		Track:      t.cell(row, colChallenge),
		Mode:       t.cell(row, colMode),
		CapturedAt: capturedAt,
	}
	if l := t.cell(row, colLogin); l != "" {
		rec.Player = l
	}
	rec.Environment = t.cell(row, colEnvir)
	if rec.Environment == "" {
		rec.Environment = t.cell(row, colEnvironment)
	}

	lap, err := types.ParseLapTime(t.cell(row, colRecord))
	if err != nil {
		return rec, fmt.Errorf("%s on %q: %w", login, rec.Track, err)
	}
	rec.Time = lap

	rec.Rank = parseRank(t.cell(row, colRank))

	at, err := time.ParseInLocation(RecordDateLayout, t.cell(row, colRecordDate), loc)
	if err != nil {
		return rec, fmt.Errorf("%w: %s on %q: record date: %w", types.ErrInvalidRecord, login, rec.Track, err)
	}
	rec.RecordedAt = at.UTC()

	rec.Normalize()
	return rec, nil
}

// parseRank reads a rank cell; anything non-numeric is unranked.
func parseRank(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// challengeLink is a link to a challenge page.
type challengeLink struct {
	Text string
	UID  string
}

// parseChallengeLinks collects every anchor carrying a Uid parameter.
func parseChallengeLinks(r io.Reader) ([]challengeLink, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	var links []challengeLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if uid := uidFromHref(href); uid != "" {
			links = append(links, challengeLink{Text: strings.TrimSpace(a.Text()), UID: uid})
		}
	})
	return links, nil
}

func uidFromHref(href string) string {
	if !strings.Contains(href, "Uid=") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("Uid")
}

// ChallengeDetails is what a challenge records page tells about a track.
type ChallengeDetails struct {
	TotalRecords      int
	Environment       string
	WorldRecord       time.Duration
	WorldRecordHolder string
}

// parseChallengePage counts the data rows of the first table.tabl that has
// any, and reads the rank 1 row.
func parseChallengePage(r io.Reader) (ChallengeDetails, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ChallengeDetails{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var d ChallengeDetails
	doc.Find("table.tabl").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		t, ok := readTable(sel)
		if !ok || len(t.rows) == 0 {
			return true
		}
		d.TotalRecords = len(t.rows)
		top := t.rows[0]
		for _, row := range t.rows {
			if parseRank(t.cell(row, colRank)) == 1 {
				top = row
				break
			}
		}
		d.WorldRecordHolder = t.cell(top, colLogin)
		d.Environment = t.cell(top, colEnvironment)
		if d.Environment == "" {
			d.Environment = t.cell(top, colEnvir)
		}
		if lap, err := types.ParseLapTime(t.cell(top, colRecord)); err == nil {
			d.WorldRecord = lap
		}
		return false
	})
	return d, nil
}

// parseAccount finds the first usable value under an "Account" header in
// any table of a single record page.
func parseAccount(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	var server string
	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		rows := tbl.ChildrenFiltered("tr")
		if rows.Length() == 0 {
			rows = tbl.ChildrenFiltered("tbody").ChildrenFiltered("tr")
		}
		col, header := -1, -1
		rows.EachWithBreak(func(ri int, row *goquery.Selection) bool {
			row.ChildrenFiltered("td, th").EachWithBreak(func(ci int, c *goquery.Selection) bool {
				if strings.EqualFold(strings.TrimSpace(c.Text()), colAccount) {
					col, header = ci, ri
					return false
				}
				return true
			})
			return col < 0
		})
		if col < 0 {
			return true
		}
		rows.Slice(header+1, rows.Length()).EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.ChildrenFiltered("td, th")
			if col >= cells.Length() {
				return true
			}
			v := strings.TrimSpace(strings.ReplaceAll(cells.Eq(col).Text(), "\u00a0", " "))
			if len(v) > 1 && v != "-" && !strings.EqualFold(v, colAccount) {
				server = v
				return false
			}
			return true
		})
		return server == ""
	})
	return server, nil
}
