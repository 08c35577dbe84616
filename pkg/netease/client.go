package netease

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/pkg/lyricsource"
)

var _ lyricsource.Source = (*Client)(nil)

// searchResponse 网易云搜索API响应
type searchResponse struct {
	Result struct {
		Songs []struct {
			ID      int    `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"songs"`
	} `json:"result"`
}

// lyricResponse 网易云歌词API响应
type lyricResponse struct {
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`
}

// Client 网易云音乐客户端
type Client struct {
	httpClient     *http.Client
	baseURL        string
	cookie         string
	maxRetries     int
	requestTimeout time.Duration
}

// NewClient 创建新的网易云音乐客户端
func NewClient() *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        "https://music.163.com/api",
		cookie:         os.Getenv("NETEASE_COOKIE"),
		maxRetries:     3,
		requestTimeout: 5 * time.Second,
	}
}

// Name 返回来源名称
func (c *Client) Name() string {
	return "NetEase Cloud Music"
}

// Fetch 搜索歌曲并获取LRC歌词
func (c *Client) Fetch(ctx context.Context, title, artist string, duration float64) (lyricsource.Result, error) {
	songID, err := c.searchSong(ctx, title, artist)
	if err != nil {
		return lyricsource.Result{}, err
	}

	lrc, err := c.getLyrics(ctx, songID)
	if err != nil {
		return lyricsource.Result{}, err
	}
	return lyricsource.Result{Synced: lrc}, nil
}

// searchSong 搜索歌曲，返回歌曲ID
func (c *Client) searchSong(ctx context.Context, title, artist string) (string, error) {
	searchURL := fmt.Sprintf("%s/search/get/web?csrf_token=hlpretag&hlposttag=&s=%s&type=1&limit=100",
		c.baseURL, url.QueryEscape(title))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(searchResp.Result.Songs) == 0 {
		return "", fmt.Errorf("no songs found for '%s'", title)
	}

	songID := findBestMatch(searchResp, artist, title)
	if songID == 0 {
		return "", fmt.Errorf("no matching song found for '%s' by '%s'", title, artist)
	}
	return strconv.Itoa(songID), nil
}

// getLyrics 根据歌曲ID获取歌词
func (c *Client) getLyrics(ctx context.Context, songID string) (string, error) {
	lyricURL := fmt.Sprintf("%s/song/lyric?os=pc&id=%s&lv=-1&kv=-1&tv=-1", c.baseURL, songID)

	req, err := http.NewRequestWithContext(ctx, "GET", lyricURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lyric request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return "", fmt.Errorf("lyric request failed: %w", err)
	}
	defer resp.Body.Close()

	var lyricResp lyricResponse
	if err := json.NewDecoder(resp.Body).Decode(&lyricResp); err != nil {
		return "", fmt.Errorf("failed to decode lyric response: %w", err)
	}

	if lyricResp.Lrc.Lyric == "" {
		return "", fmt.Errorf("song %s has no lyrics", songID)
	}
	return lyricResp.Lrc.Lyric, nil
}

// doRequestWithRetry 带重试的请求，5xx和网络错误触发重试
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Info().Int("attempt", attempt+1).Int("max", c.maxRetries).
				Msg("[NetEase] Retrying request")
			time.Sleep(time.Duration(attempt*300) * time.Millisecond)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			continue
		}
		if resp.StatusCode < http.StatusInternalServerError {
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
			}
			return resp, nil
		}
		resp.Body.Close()
		err = fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err)
}

// findBestMatch 找到最佳匹配的歌曲
func findBestMatch(resp searchResponse, targetArtist, targetTitle string) int {
	for _, song := range resp.Result.Songs {
		if !containsIgnoreCase(song.Name, targetTitle) {
			continue
		}

		// artists 可能有多个，只要一个满足就算
		for _, artist := range song.Artists {
			if containsIgnoreCase(artist.Name, targetArtist) {
				log.Info().Str("song", song.Name).Int("id", song.ID).
					Msg("[NetEase] Found matching song")
				return song.ID
			}
		}
	}

	// 没有歌手也匹配的，退回第一个标题匹配的
	if len(resp.Result.Songs) > 0 && containsIgnoreCase(resp.Result.Songs[0].Name, targetTitle) {
		return resp.Result.Songs[0].ID
	}
	return 0
}

// normalizeString 标准化字符串（转小写，去空格）
func normalizeString(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// containsIgnoreCase 忽略大小写和空格的包含关系检查
func containsIgnoreCase(s1, s2 string) bool {
	norm1, norm2 := normalizeString(s1), normalizeString(s2)
	return strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1)
}
