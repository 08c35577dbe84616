package lyricsource

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "lyric-source").Logger()

// Manager 歌词来源管理器，按优先级逐个尝试，支持回退
type Manager struct {
	sources []Source
}

// NewManager 创建管理器
func NewManager(sources []Source) *Manager {
	if len(sources) == 0 {
		logger.Warn().Msg("No lyric sources configured")
	} else {
		logger.Info().
			Int("source_count", len(sources)).
			Str("primary_source", sources[0].Name()).
			Msg("Lyric source manager initialized")
	}
	return &Manager{sources: sources}
}

// SourceCount 来源数量
func (m *Manager) SourceCount() int {
	return len(m.sources)
}

// Fetch 依次尝试所有来源，返回第一个拿到歌词的结果
func (m *Manager) Fetch(ctx context.Context, title, artist string, duration float64) (Result, error) {
	if len(m.sources) == 0 {
		return Result{}, fmt.Errorf("no lyric sources available")
	}

	var lastErr error
	for i, source := range m.sources {
		logger.Info().
			Str("source", source.Name()).
			Int("attempt", i+1).
			Int("total_sources", len(m.sources)).
			Str("title", title).
			Str("artist", artist).
			Msg("Trying lyric source")

		result, err := source.Fetch(ctx, title, artist, duration)
		if err == nil && !result.Empty() {
			logger.Info().Str("source", source.Name()).
				Bool("synced", result.Synced != "").
				Msg("Successfully got lyrics")
			return result, nil
		}

		if err == nil {
			err = fmt.Errorf("source returned no lyrics")
		}
		logger.Warn().Str("source", source.Name()).Err(err).Msg("Lyric source failed")
		lastErr = err
	}

	return Result{}, fmt.Errorf("all sources failed for '%s - %s', last error: %w", title, artist, lastErr)
}
