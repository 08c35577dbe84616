package lyricstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/internal/lyrics"
)

const keyPrefix = "karaoke_lyrics_"

var logger = log.With().Str("component", "lyric-store").Logger()

// KV 歌词存储依赖的键值接口，pkg/redis 的 Client 实现了它
type KV interface {
	Set(ctx context.Context, key string, value string) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// Record 持久化的歌词记录
type Record struct {
	Title  string       `json:"title"`
	Artist string       `json:"artist"`
	Lyrics []lyrics.Line `json:"lyrics"`
	Date   int64        `json:"date"` // 保存时间，epoch毫秒
}

// Store 按 (title, artist) 归一化键存取歌词的存储层。
// 同一首歌重复保存会覆盖旧记录（重新打轴即更新）。
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// normalize 存储键归一化：去首尾空白 + 小写
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Key 返回 (title, artist) 对应的存储键
func Key(title, artist string) string {
	return keyPrefix + normalize(title) + "_" + normalize(artist)
}

// Save 保存记录，同键覆盖
func (s *Store) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode lyric record: %w", err)
	}
	if err := s.kv.Set(ctx, Key(rec.Title, rec.Artist), string(data)); err != nil {
		return fmt.Errorf("failed to save lyric record: %w", err)
	}
	logger.Info().Str("title", rec.Title).Str("artist", rec.Artist).
		Int("lines", len(rec.Lyrics)).Msg("Saved lyric record")
	return nil
}

// Load 按标题/歌手读取歌词时间轴。没有记录或记录损坏都返回 (nil, false, nil)，
// 损坏只记日志，不当错误向上抛。
func (s *Store) Load(ctx context.Context, title, artist string) (lyrics.Timeline, bool, error) {
	raw, err := s.kv.Get(ctx, Key(title, artist))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read lyric record: %w", err)
	}
	if raw == "" {
		return nil, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.Warn().Err(err).Str("title", title).Str("artist", artist).
			Msg("Corrupt lyric record, treating as missing")
		return nil, false, nil
	}
	return lyrics.Timeline(rec.Lyrics), true, nil
}

// Delete 删除记录
func (s *Store) Delete(ctx context.Context, title, artist string) error {
	if _, err := s.kv.Del(ctx, Key(title, artist)); err != nil {
		return fmt.Errorf("failed to delete lyric record: %w", err)
	}
	return nil
}

// List 列出全部已保存的记录，按保存时间倒序。损坏的记录跳过。
func (s *Store) List(ctx context.Context) ([]Record, error) {
	keys, err := s.kv.ScanKeys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan lyric records: %w", err)
	}

	var records []Record
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to read record, skipping")
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Title == "" {
			logger.Warn().Str("key", key).Msg("Corrupt record, skipping")
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	return records, nil
}
