package rutracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

// Client implements pipeline.SearchProvider against an indexing forum's web
// UI: a cookie-authenticated session, HTML search results, and a direct
// torrent-descriptor download link. Grounded on the original's reqwest
// client (cookie_store(true), limited redirects, login-then-search flow).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New logs in with the given credentials and returns a ready Client. The
// session cookie set by a successful login is retained for every subsequent
// request via the client's cookie jar.
func New(ctx context.Context, username, password, baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}

	if err := c.login(ctx, username, password); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) login(ctx context.Context, username, password string) error {
	form := url.Values{
		"login_username": {username},
		"login_password": {password},
		"login":          {"вход"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forum/login.php", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &pipeline.SearchProviderError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &pipeline.SearchProviderError{Err: err}
	}

	if err := validateAuthState(string(body)); err != nil {
		return &pipeline.SearchProviderError{Err: err}
	}
	return nil
}

// SearchMusic runs a search query against the forum's tracker listing and
// returns candidates ranked best-first (spec.md §4.2, Component B).
func (c *Client) SearchMusic(ctx context.Context, query string) ([]pipeline.TopicData, error) {
	endpoint := fmt.Sprintf("%s/forum/tracker.php?nm=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &pipeline.SearchProviderError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pipeline.SearchProviderError{Err: err}
	}

	if err := validateAuthState(string(body)); err != nil {
		return nil, &pipeline.SearchProviderError{Err: err}
	}

	results, err := parseSearchResults(string(body))
	if err != nil {
		return nil, &pipeline.SearchProviderError{Err: err}
	}
	return results, nil
}

// DownloadTorrent fetches the raw bencoded descriptor for a download id.
//
// The original client left this unimplemented (a todo! stub); this endpoint
// is inferred from the parser's own evidence — the search results page
// links to "dl.php?t=<download_id>" for every result row — rather than
// ported from working original code.
func (c *Client) DownloadTorrent(ctx context.Context, downloadID pipeline.DownloadId) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/forum/dl.php?t=%s", c.baseURL, strconv.FormatUint(uint64(downloadID), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &pipeline.SearchProviderError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &pipeline.SearchProviderError{Err: fmt.Errorf("download torrent: unexpected status %s", resp.Status)}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pipeline.SearchProviderError{Err: err}
	}
	return blob, nil
}
