package lyricgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/pkg/ai"
	"github.com/WeParadox/Caraoke/pkg/ai/gemini"
	"github.com/WeParadox/Caraoke/pkg/ai/openai"
)

// ErrNotConfigured 没有配置API key，生成功能不可用
var ErrNotConfigured = errors.New("no AI API key configured")

const maxRetries = 3

// Generator 通过LLM生成整首歌的纯文本歌词，供打轴使用
type Generator struct {
	aiClient ai.AiInterface
}

// New 按配置选择后端创建生成器。apiKey 为空时返回的生成器可用性由
// Generate 时的 ErrNotConfigured 体现，不在这里失败。
func New(moduleName, apiKey, baseURL string) (*Generator, error) {
	if apiKey == "" {
		return &Generator{}, nil
	}

	var aiClient ai.AiInterface
	if moduleName == "gemini" || moduleName == "" {
		client, err := gemini.NewGemini(apiKey, "")
		if err != nil {
			return nil, err
		}
		aiClient = client
	} else {
		aiClient = openai.NewOpenAi(apiKey, moduleName, baseURL)
	}

	return &Generator{aiClient: aiClient}, nil
}

// NewWithClient 注入后端，测试用
func NewWithClient(aiClient ai.AiInterface) *Generator {
	return &Generator{aiClient: aiClient}
}

func formatPrompt(title, artist string) string {
	if artist == "" {
		artist = "Unknown Artist"
	}
	return fmt.Sprintf(`You are a precise lyrics database for a karaoke application. Please provide the full lyrics for the song "%s" by "%s".

STRICT RULES:
1. Return ONLY the lyrics as plain text, line by line.
2. LANGUAGE HANDLING: If the song is in a non-English language, you MUST provide the lyrics TRANSLITERATED into English alphabets (Romanized).
3. DO NOT TRANSLATE the meaning of the words into English. The goal is to sing the original words using English characters.
4. Do not include section headers like [Chorus], [Verse], etc., prefer clean text.
5. Do not add any introductory or concluding text.`, title, artist)
}

// Generate 生成歌词并按行拆分，空行去掉。请求失败会重试几次。
func (g *Generator) Generate(ctx context.Context, title, artist string) ([]string, error) {
	if g.aiClient == nil {
		return nil, ErrNotConfigured
	}

	var raw string
	var err error
	for i := 0; i < maxRetries; i++ {
		raw, err = g.aiClient.GenerateText(ctx, formatPrompt(title, artist))
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries).
			Msg("Lyric generation attempt failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("lyric generation failed after %d attempts: %w", maxRetries, err)
	}

	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("model returned no lyrics for '%s - %s'", title, artist)
	}

	log.Info().Str("title", title).Str("artist", artist).Str("backend", g.aiClient.Name()).
		Int("lines", len(lines)).Msg("Generated lyrics")
	return lines, nil
}
