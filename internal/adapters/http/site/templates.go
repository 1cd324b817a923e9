package site

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/dedidash/internal/domain/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Page templates, each rendered inside the layout.
const (
	pageLeaderboard = "leaderboard.html"
	pageWeekly      = "weekly.html"
	pagePlayer      = "player.html"
	pageDatabase    = "database.html"
	pageError       = "error.html"
)

var pages = []string{pageLeaderboard, pageWeekly, pagePlayer, pageDatabase, pageError}

// StaticFS returns the embedded stylesheet directory.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// parseTemplates builds one template set per page.
func parseTemplates(loc *time.Location) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"plain":      types.PlainNickname,
		"lap":        types.FormatLapTime,
		"pathEscape": url.PathEscape,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(loc).Format("2006-01-02 15:04")
		},
		"rank": func(r int) string {
			if r <= 0 {
				return "-"
			}
			return strconv.Itoa(r)
		},
		"signed": func(n int) string {
			if n > 0 {
				return fmt.Sprintf("+%d", n)
			}
			return strconv.Itoa(n)
		},
		"trendClass": trendClass,
		"deltaClass": func(n int) string {
			switch {
			case n > 0:
				return "up"
			case n < 0:
				return "down"
			default:
				return "same"
			}
		},
	}

	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/windowform.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, page, err)
		}
		out[page] = t
	}
	return out, nil
}

func trendClass(trend string) string {
	switch {
	case trend == types.TrendNew:
		return "new"
	case strings.HasPrefix(trend, "▲"):
		return "up"
	case strings.HasPrefix(trend, "▼"):
		return "down"
	default:
		return "same"
	}
}
