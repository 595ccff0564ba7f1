// Package radiomanager implements pipeline.BroadcastClient against the
// broadcast backend's HTTP API: a cookie-authenticated session, multipart
// track upload, and a small JSON REST surface for playlist linking.
package radiomanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

// Client is grounded on the original's RadioManagerClient: a cookie-jar
// HTTP client logged in once at construction, reused for every subsequent
// call (original_source/src/services/radio_manager_client.rs).
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New logs in against endpoint + "api/v2/user/login" and returns a ready
// Client. The session cookie set on a successful login authorizes every
// later request via the client's cookie jar.
func New(ctx context.Context, endpoint, username, password string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/") + "/",
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
		"login":    {username},
		"password": {password},
		"save":     {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"api/v2/user/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &pipeline.RadioManagerClientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &pipeline.RadioManagerClientError{Err: fmt.Errorf("login failed with status %s", resp.Status)}
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &pipeline.RadioManagerClientError{Err: err}
	}
	if result.Message != "OK" {
		return &pipeline.RadioManagerClientError{Err: fmt.Errorf("incorrect username or password")}
	}
	return nil
}

// UploadAudioTrack uploads the file at absolutePath as a new track owned by
// user, returning its assigned track id (spec.md §4.2.4 Component C upload
// step).
func (c *Client) UploadAudioTrack(ctx context.Context, user pipeline.UserId, absolutePath string) (pipeline.TrackId, error) {
	file, err := os.Open(absolutePath)
	if err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(absolutePath))
	if err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}

	endpoint := fmt.Sprintf("%sapi/v2/user/%d/tracks", c.endpoint, user)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result struct {
		TrackID string `json:"trackId"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return "", err
	}
	return pipeline.TrackId(result.TrackID), nil
}

// AddTrackToChannelPlaylist links an uploaded track to a channel's playlist,
// returning the created link id (spec.md §4.2.5).
func (c *Client) AddTrackToChannelPlaylist(ctx context.Context, user pipeline.UserId, track pipeline.TrackId, channel pipeline.ChannelId) (pipeline.LinkId, error) {
	payload, err := json.Marshal(map[string]string{"trackId": string(track)})
	if err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}

	endpoint := fmt.Sprintf("%sapi/v2/user/%d/channel/%d/playlist", c.endpoint, user, channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &pipeline.RadioManagerClientError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		LinkID string `json:"linkId"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return "", err
	}
	return pipeline.LinkId(result.LinkID), nil
}

// GetChannelTracks lists the metadata of every track already on a channel's
// playlist, used by the "suggest more tracks" helper to avoid repeats.
func (c *Client) GetChannelTracks(ctx context.Context, channel pipeline.ChannelId) ([]pipeline.AudioMetadata, error) {
	endpoint := c.endpoint + "api/v2/channel/" + strconv.FormatInt(int64(channel), 10) + "/tracks"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &pipeline.RadioManagerClientError{Err: err}
	}

	var result struct {
		Tracks []pipeline.AudioMetadata `json:"tracks"`
	}
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	return result.Tracks, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &pipeline.RadioManagerClientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &pipeline.RadioManagerClientError{Err: fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(body)))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &pipeline.RadioManagerClientError{Err: err}
	}
	return nil
}
