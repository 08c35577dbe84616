package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/pkg/lyricsource"
)

var _ lyricsource.Source = (*Client)(nil)

// Client LRCLib客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
}

// trackResult LRCLib API搜索结果条目
type trackResult struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	Duration     int    `json:"duration"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// NewClient 创建新的LRCLib客户端
func NewClient() *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        "https://lrclib.net/api",
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
	}
}

// Name 返回来源名称
func (c *Client) Name() string {
	return "LRCLib"
}

// Fetch 搜索歌曲并返回歌词，优先同步歌词
func (c *Client) Fetch(ctx context.Context, title, artist string, duration float64) (lyricsource.Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	var resp *http.Response
	var err error

	// 重试机制
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Info().Int("attempt", attempt).Int("max", c.maxRetries).Msg("[LRCLib] Retrying request")
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
		}

		req, reqErr := http.NewRequestWithContext(timeoutCtx, "GET", searchURL, nil)
		if reqErr != nil {
			return lyricsource.Result{}, fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("User-Agent", "caraoke-backend/1.0")

		resp, err = c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err == nil {
			log.Warn().Int("status", resp.StatusCode).Msg("[LRCLib] Request returned bad status")
			resp.Body.Close()
			err = fmt.Errorf("request returned status %d", resp.StatusCode)
		}

		if attempt == c.maxRetries {
			return lyricsource.Result{}, fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
		}
	}
	defer resp.Body.Close()

	var tracks []trackResult
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return lyricsource.Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Info().Int("results", len(tracks)).Str("title", title).Str("artist", artist).
		Msg("[LRCLib] Search finished")

	if len(tracks) == 0 {
		return lyricsource.Result{}, fmt.Errorf("no lyrics found for '%s - %s'", title, artist)
	}

	best := findBestMatch(tracks, duration)
	if best.SyncedLyrics == "" && best.PlainLyrics == "" {
		return lyricsource.Result{}, fmt.Errorf("selected result has no lyrics for '%s - %s'", title, artist)
	}
	return lyricsource.Result{Synced: best.SyncedLyrics, Plain: best.PlainLyrics}, nil
}

// findBestMatch 有时长信息时选时长最接近的结果，否则选第一个有歌词的
func findBestMatch(tracks []trackResult, duration float64) *trackResult {
	target := int(duration)
	best := &tracks[0]

	if target > 0 {
		minDiff := abs(best.Duration - target)
		for i := range tracks {
			tr := &tracks[i]
			if tr.SyncedLyrics == "" && tr.PlainLyrics == "" {
				continue
			}
			if diff := abs(tr.Duration - target); diff < minDiff {
				minDiff = diff
				best = tr
			}
		}
		return best
	}

	for i := range tracks {
		if tracks[i].SyncedLyrics != "" || tracks[i].PlainLyrics != "" {
			return &tracks[i]
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
