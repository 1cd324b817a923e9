// Package dedimania scrapes the Dedimania tmstats pages.
package dedimania

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

// Defaults for a Client.
const (
	DefaultBaseURL   = "http://dedimania.net/tmstats/"
	DefaultGame      = "TMU"
	DefaultLimit     = 100
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// broadSearchPrefix is how much of a name the fallback search sends.
	broadSearchPrefix = 20
	maxBodyBytes      = 8 << 20
)

// Fetch kinds used in metrics.
const (
	kindPlayer    = "player"
	kindSearch    = "search"
	kindChallenge = "challenge"
	kindServer    = "server"
)

// Client reads player records and challenge metadata from Dedimania.
// It is safe for concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	game      string
	userAgent string
	limit     int
	loc       *time.Location
	now       func() time.Time
	logger    logger.Logger

	lookupDelay time.Duration
	paceMu      sync.Mutex
	lastLookup  time.Time

	cacheMu  sync.Mutex
	uidCache map[string]string
}

// NewClient creates a Client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		baseURL:   DefaultBaseURL,
		game:      DefaultGame,
		userAgent: defaultUserAgent,
		limit:     DefaultLimit,
		loc:       time.UTC,
		now:       time.Now,
		logger:    logger.GetOr(logger.NewNop()).Named("dedimania"),
		uidCache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlayerRecords returns the records listed on a player's page. An unknown
// login yields no records and no error. Rows that cannot be read are logged
// and left out.
func (c *Client) PlayerRecords(ctx context.Context, login string) ([]types.Record, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	q := url.Values{
		"RGame": {c.game},
		"Login": {login},
		"Show":  {"RECORDS"},
		"LIMIT": {strconv.Itoa(c.limit)},
	}
	body, err := c.get(ctx, kindPlayer, q)
	if err != nil {
		return nil, err
	}

	res, err := parsePlayerPage(bytes.NewReader(body), login, c.now().UTC(), c.loc)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", login, err)
	}
	for _, skipped := range res.Skipped {
		metrics.RecordErrorByComponent("dedimania", "row_parse")
		c.logger.Warn(ctx, "skipping unreadable record row",
			logger.String("player", login), logger.Error(skipped))
	}
	return res.Records, nil
}

// ChallengeUID looks a challenge up by name. It first searches the cleaned
// full name, then the first 20 characters. Results, misses included, are
// cached for the life of the client.
func (c *Client) ChallengeUID(ctx context.Context, name string) (string, error) {
	c.cacheMu.Lock()
	uid, cached := c.uidCache[name]
	c.cacheMu.Unlock()
	if cached {
		if uid == "" {
			return "", fmt.Errorf("%w: %q", ErrChallengeNotFound, name)
		}
		return uid, nil
	}

	uid, err := c.searchUID(ctx, name)
	if err != nil {
		return "", err
	}
	c.cacheMu.Lock()
	c.uidCache[name] = uid
	c.cacheMu.Unlock()
	if uid == "" {
		return "", fmt.Errorf("%w: %q", ErrChallengeNotFound, name)
	}
	return uid, nil
}

func (c *Client) searchUID(ctx context.Context, name string) (string, error) {
	plain := strings.TrimSpace(html.UnescapeString(name))

	links, err := c.search(ctx, plain)
	if err != nil {
		return "", err
	}
	if uid, ok := matchLink(links, plain, 0); ok {
		return uid, nil
	}

	prefix := []rune(name)
	if len(prefix) > broadSearchPrefix {
		prefix = prefix[:broadSearchPrefix]
	}
	links, err = c.search(ctx, string(prefix))
	if err != nil {
		return "", err
	}
	if uid, ok := matchLink(links, plain, 3); ok {
		return uid, nil
	}
	return "", nil
}

func (c *Client) search(ctx context.Context, challenge string) ([]challengeLink, error) {
	form := url.Values{
		"Challenge": {challenge},
		"RGame":     {c.game},
		"Show":      {"MAPS"},
	}
	body, err := c.post(ctx, kindSearch, form)
	if err != nil {
		return nil, err
	}
	return parseChallengeLinks(bytes.NewReader(body))
}

// ChallengeDetails reads the records page of a challenge.
func (c *Client) ChallengeDetails(ctx context.Context, uid string) (ChallengeDetails, error) {
	q := url.Values{
		"RGame": {c.game},
		"Uid":   {uid},
		"Show":  {"RECORDS"},
	}
	body, err := c.get(ctx, kindChallenge, q)
	if err != nil {
		return ChallengeDetails{}, err
	}
	return parseChallengePage(bytes.NewReader(body))
}

// ChallengeRecordCount returns how many records Dedimania lists for a
// challenge. Zero means the page had no records table.
func (c *Client) ChallengeRecordCount(ctx context.Context, uid string) (int, error) {
	d, err := c.ChallengeDetails(ctx, uid)
	if err != nil {
		return 0, err
	}
	return d.TotalRecords, nil
}

// RecordServer returns the server a player drove their record on. An empty
// string means the page did not name one.
func (c *Client) RecordServer(ctx context.Context, login, uid string) (string, error) {
	q := url.Values{
		"Login": {strings.ToLower(strings.TrimSpace(login))},
		"Uid":   {uid},
		"Show":  {"RECORD"},
	}
	body, err := c.get(ctx, kindServer, q)
	if err != nil {
		return "", err
	}
	return parseAccount(bytes.NewReader(body))
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.baseURL, "/") + "/?do=stat"
}

func (c *Client) get(ctx context.Context, kind string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint()+"&"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	return c.do(ctx, kind, req)
}

func (c *Client) post(ctx context.Context, kind string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, kind, req)
}

func (c *Client) do(ctx context.Context, kind string, req *http.Request) ([]byte, error) {
	if kind != kindPlayer {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordFetch(kind, status, float64(time.Since(start).Milliseconds()))
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, kind, err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %s: http %d", ErrFetch, kind, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrFetch, kind, err)
	}
	c.logger.Debug(ctx, "fetched page",
		logger.String("kind", kind),
		logger.Int("bytes", len(body)),
		logger.Duration("took", time.Since(start)))
	return body, nil
}

// pace holds lookups at least lookupDelay apart.
func (c *Client) pace(ctx context.Context) error {
	if c.lookupDelay <= 0 {
		return nil
	}
	c.paceMu.Lock()
	defer c.paceMu.Unlock()

	if wait := c.lookupDelay - time.Since(c.lastLookup); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	c.lastLookup = time.Now()
	return nil
}
