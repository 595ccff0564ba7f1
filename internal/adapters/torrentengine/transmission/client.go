// Package transmission implements pipeline.TorrentClient against a
// Transmission daemon's JSON-RPC interface.
package transmission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

// Client is a Transmission RPC adapter, grounded on the pack's own
// Transmission client: CSRF session-id handshake via a 409-Conflict retry,
// basic auth, and a thin JSON-RPC envelope.
type Client struct {
	endpoint string
	username string
	password string

	httpClient *http.Client

	mu        sync.Mutex
	sessionID string
}

func New(endpoint, username, password string) *Client {
	return &Client{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// request performs one JSON-RPC call, transparently retrying once on a
// 409 Conflict carrying a fresh X-Transmission-Session-Id.
func (c *Client) request(ctx context.Context, method string, arguments map[string]interface{}) (rpcResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"method":    method,
		"arguments": arguments,
	})
	if err != nil {
		return rpcResponse{}, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return rpcResponse{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		if sessionID := c.getSessionID(); sessionID != "" {
			req.Header.Set("X-Transmission-Session-Id", sessionID)
		}
		if c.username != "" || c.password != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return rpcResponse{}, err
		}

		if resp.StatusCode == http.StatusConflict {
			newSessionID := resp.Header.Get("X-Transmission-Session-Id")
			resp.Body.Close()
			if newSessionID == "" {
				return rpcResponse{}, fmt.Errorf("transmission: session id missing from 409 response")
			}
			c.setSessionID(newSessionID)
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return rpcResponse{}, fmt.Errorf("transmission: %s", strings.TrimSpace(string(body)))
		}

		var out rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return rpcResponse{}, err
		}
		if out.Result != "success" {
			return rpcResponse{}, fmt.Errorf("transmission: %s", out.Result)
		}
		return out, nil
	}

	return rpcResponse{}, fmt.Errorf("transmission: session negotiation failed")
}

func (c *Client) getSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// AddTorrent submits a raw torrent descriptor, selecting only the given file
// indices for download (spec.md §4.2.2: the pipeline downloads just the
// matched track, not the whole release).
func (c *Client) AddTorrent(ctx context.Context, blob []byte, selectedFileIndices []int) (pipeline.TorrentId, error) {
	args := map[string]interface{}{
		"metainfo": base64.StdEncoding.EncodeToString(blob),
		"paused":   false,
	}
	if len(selectedFileIndices) > 0 {
		args["files-wanted"] = selectedFileIndices
	}

	resp, err := c.request(ctx, "torrent-add", args)
	if err != nil {
		return 0, &pipeline.TorrentClientError{Err: err}
	}

	var added struct {
		TorrentAdded struct {
			ID int64 `json:"id"`
		} `json:"torrent-added"`
		TorrentDuplicate struct {
			ID int64 `json:"id"`
		} `json:"torrent-duplicate"`
	}
	if err := json.Unmarshal(resp.Arguments, &added); err != nil {
		return 0, &pipeline.TorrentClientError{Err: err}
	}

	if added.TorrentAdded.ID != 0 {
		return pipeline.TorrentId(added.TorrentAdded.ID), nil
	}
	return pipeline.TorrentId(added.TorrentDuplicate.ID), nil
}

// GetTorrent polls for a torrent's current status and, once complete, its
// file list (spec.md §4.2.3 Component C's poll step).
func (c *Client) GetTorrent(ctx context.Context, id pipeline.TorrentId) (pipeline.Torrent, error) {
	resp, err := c.request(ctx, "torrent-get", map[string]interface{}{
		"ids":    []int64{int64(id)},
		"fields": []string{"id", "status", "percentDone", "files", "errorString"},
	})
	if err != nil {
		return pipeline.Torrent{}, &pipeline.TorrentClientError{Err: err}
	}

	var args struct {
		Torrents []struct {
			Status      int    `json:"status"`
			PercentDone float64 `json:"percentDone"`
			ErrorString string `json:"errorString"`
			Files       []struct {
				Name string `json:"name"`
			} `json:"files"`
		} `json:"torrents"`
	}
	if err := json.Unmarshal(resp.Arguments, &args); err != nil {
		return pipeline.Torrent{}, &pipeline.TorrentClientError{Err: err}
	}
	if len(args.Torrents) == 0 {
		return pipeline.Torrent{}, &pipeline.TorrentClientError{Err: fmt.Errorf("torrent %d not found", id)}
	}

	t := args.Torrents[0]
	if t.ErrorString != "" {
		return pipeline.Torrent{}, &pipeline.TorrentClientError{Err: fmt.Errorf("torrent %d: %s", id, t.ErrorString)}
	}

	// Transmission status codes: 0 stopped, 1 check-wait, 2 checking,
	// 3 download-wait, 4 downloading, 5 seed-wait, 6 seeding.
	status := pipeline.TorrentDownloading
	if t.Status == 6 || (t.Status == 0 && t.PercentDone >= 1) {
		status = pipeline.TorrentComplete
	}

	var files []string
	if status == pipeline.TorrentComplete {
		for _, f := range t.Files {
			files = append(files, f.Name)
		}
	}

	return pipeline.Torrent{Status: status, Files: files}, nil
}

// DeleteTorrent removes a torrent and its downloaded data. The pipeline
// handlers do not call it; a torrent stays in the engine after its upload.
func (c *Client) DeleteTorrent(ctx context.Context, id pipeline.TorrentId) error {
	_, err := c.request(ctx, "torrent-remove", map[string]interface{}{
		"ids":               []int64{int64(id)},
		"delete-local-data": true,
	})
	if err != nil {
		return &pipeline.TorrentClientError{Err: err}
	}
	return nil
}
