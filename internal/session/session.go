package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/internal/audio"
	"github.com/WeParadox/Caraoke/internal/editor"
	"github.com/WeParadox/Caraoke/internal/lyrics"
	"github.com/WeParadox/Caraoke/internal/player"
	"github.com/WeParadox/Caraoke/internal/recorder"
	"github.com/WeParadox/Caraoke/internal/visualizer"
	"github.com/WeParadox/Caraoke/pkg/fileutil"
	"github.com/WeParadox/Caraoke/pkg/lyricsource"
	"github.com/WeParadox/Caraoke/pkg/lyricstore"
)

var logger = log.With().Str("component", "session").Logger()

var (
	// ErrNoSong 还没有加载歌曲
	ErrNoSong = errors.New("no song loaded")
	// ErrNoLyrics 歌曲没有歌词，导出等操作拒绝执行
	ErrNoLyrics = errors.New("song has no lyrics")
	// ErrStaleResult 异步结果返回时用户已经离开，结果被丢弃
	ErrStaleResult = errors.New("stale result discarded")
	// ErrNotEditing 操作只在编辑模式下有效
	ErrNotEditing = errors.New("not in editing mode")
)

// Mode 应用模式
type Mode int

const (
	Browsing Mode = iota
	Playing
	Editing
)

func (m Mode) String() string {
	switch m {
	case Browsing:
		return "browsing"
	case Playing:
		return "playing"
	case Editing:
		return "editing"
	default:
		return "unknown"
	}
}

// Song 当前加载的歌曲
type Song struct {
	ID       string
	Title    string
	Artist   string
	AudioPath string
	Duration float64
	Lyrics   lyrics.Timeline
}

// Store 歌词持久化接口，pkg/lyricstore 的 Store 实现了它
type Store interface {
	Save(ctx context.Context, rec lyricstore.Record) error
	Load(ctx context.Context, title, artist string) (lyrics.Timeline, bool, error)
	Delete(ctx context.Context, title, artist string) error
	List(ctx context.Context) ([]lyricstore.Record, error)
}

// Fetcher 在线歌词来源，pkg/lyricsource 的 Manager 实现了它
type Fetcher interface {
	Fetch(ctx context.Context, title, artist string, duration float64) (lyricsource.Result, error)
}

// Generator LLM歌词生成，internal/lyricgen 的 Generator 实现了它
type Generator interface {
	Generate(ctx context.Context, title, artist string) ([]string, error)
}

// Deps 会话依赖的外部协作方
type Deps struct {
	Player    player.Player
	Store     Store
	Fetcher   Fetcher
	Generator Generator
	Capture   recorder.Capture
	ExportDir string
}

// TickInfo 一次位置更新的结果
type TickInfo struct {
	Position    float64
	ActiveIndex int
	// Changed 当前行相比上一个tick是否变化
	Changed bool
	// Line 当前行文本，没有当前行时为空
	Line string
}

// Session 库/会话协调器。持有当前歌曲、模式和打轴会话，把用户操作
// 路由到核心组件和外部协作方。所有公开方法都在锁内执行，Mark 读位置
// 和写时间戳是一个不可分割的步骤，Reset/EditText 不会插在中间。
type Session struct {
	mu   sync.Mutex
	deps Deps

	song   *Song
	mode   Mode
	editor *editor.Session

	// 播放状态本地缓存，显示用
	position float64
	duration float64
	volume   float64
	muted    bool

	lastActive int

	analyzer *visualizer.Analyzer

	// 异步请求代号，用来丢弃过期结果
	fetchToken uint64

	takeNum int
}

func New(deps Deps) *Session {
	return &Session{
		deps:       deps,
		mode:       Browsing,
		volume:     1.0,
		lastActive: -1,
	}
}

// Mode 当前模式
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Song 当前歌曲，没有时返回nil
func (s *Session) Song() *Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song
}

// Editor 当前打轴会话，仅编辑模式下非nil
func (s *Session) Editor() *editor.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// parseFilename 从文件名猜测歌手和标题，约定格式 "Artist - Title.ext"。
// 没有 '-' 时整个文件名当标题，歌手记为 Unknown。
func parseFilename(path string) (title, artist string) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if before, after, found := strings.Cut(name, "-"); found {
		return strings.TrimSpace(after), strings.TrimSpace(before)
	}
	return strings.TrimSpace(name), "Unknown"
}

// LoadAudio 加载音频文件：从文件名推出标题/歌手，查存储里有没有
// 之前保存的歌词，有就直接挂上，然后进入播放模式。
func (s *Session) LoadAudio(ctx context.Context, path string) (*Song, error) {
	title, artist := parseFilename(path)

	song := &Song{
		ID:        uuid.NewString(),
		Title:     title,
		Artist:    artist,
		AudioPath: path,
	}

	// WAV可以直接读时长和采样，其它格式时长交给播放器
	var analyzer *visualizer.Analyzer
	if info, err := audio.Probe(path); err == nil {
		song.Duration = info.Duration
		if samples, rate, err := audio.ReadMono(path); err == nil {
			analyzer = visualizer.NewAnalyzer(samples, rate)
		}
	}

	if s.deps.Store != nil {
		if saved, ok, err := s.deps.Store.Load(ctx, title, artist); err != nil {
			logger.Warn().Err(err).Msg("Failed to look up saved lyrics")
		} else if ok {
			song.Lyrics = saved
			logger.Info().Str("title", title).Str("artist", artist).
				Int("lines", len(saved)).Msg("Attached saved lyrics")
		}
	}

	if s.deps.Player != nil {
		if err := s.deps.Player.Open(path); err != nil {
			return nil, fmt.Errorf("failed to open audio: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.song = song
	s.analyzer = analyzer
	s.mode = Playing
	s.editor = nil
	s.position = 0
	s.duration = song.Duration
	s.lastActive = -1
	s.takeNum = 0
	s.fetchToken++ // 旧歌的异步结果全部作废
	logger.Info().Str("title", title).Str("artist", artist).Msg("Song loaded")
	return song, nil
}

// CloseSong 回到歌曲库，丢弃当前歌曲和编辑进度
func (s *Session) CloseSong() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deps.Player != nil {
		s.deps.Player.Pause()
	}
	s.song = nil
	s.editor = nil
	s.analyzer = nil
	s.mode = Browsing
	s.fetchToken++
	s.lastActive = -1
}

// ImportLyrics 导入歌词内容。文件名以 .lrc 结尾且能解析出至少一行时，
// 直接替换时间轴并立即持久化；否则按纯文本处理，进入编辑模式打轴。
func (s *Session) ImportLyrics(ctx context.Context, filename, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.song == nil {
		return ErrNoSong
	}

	if strings.HasSuffix(strings.ToLower(filename), ".lrc") {
		if parsed := lyrics.ParseLRC(content); len(parsed) > 0 {
			s.song.Lyrics = parsed
			s.lastActive = -1
			s.persistLocked(ctx, parsed)
			logger.Info().Int("lines", len(parsed)).Msg("Imported LRC lyrics")
			return nil
		}
		// 一行都没解析出来，回退到纯文本导入
		logger.Warn().Str("file", filename).Msg("LRC parse produced nothing, falling back to plain text")
	}

	sess := editor.NewSession(nil)
	sess.SetText(content)
	s.enterEditingLocked(sess)
	return nil
}

// EditLyrics 手动进入编辑模式。已有歌词时预载歌词文本重新打轴。
func (s *Session) EditLyrics() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.song == nil {
		return ErrNoSong
	}

	s.enterEditingLocked(editor.NewSession(s.song.Lyrics.Texts()))
	return nil
}

// enterEditingLocked 切到编辑模式，播放中则先暂停
func (s *Session) enterEditingLocked(sess *editor.Session) {
	if s.deps.Player != nil && s.deps.Player.Playing() {
		s.deps.Player.Pause()
	}
	s.editor = sess
	s.mode = Editing
	s.fetchToken++
}

// StartSync 固定文本开始打轴
func (s *Session) StartSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil {
		return false
	}
	return s.editor.StartSync()
}

// Mark 打轴：用当前缓存的播放位置给下一行打时间戳
func (s *Session) Mark() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil {
		return
	}
	s.editor.Mark(s.position)
}

// ResetSync 清掉打轴进度重新来
func (s *Session) ResetSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor != nil {
		s.editor.Reset()
	}
}

// EditText 回到文本编辑，暂停播放
func (s *Session) EditText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil {
		return
	}
	if s.deps.Player != nil && s.deps.Player.Playing() {
		s.deps.Player.Pause()
	}
	s.editor.EditText()
	s.fetchToken++ // 在途的生成结果不要再覆盖文本
}

// SaveSync 保存打轴结果：整体替换当前歌曲的时间轴并持久化，回到播放模式。
// 部分打轴也允许保存。
func (s *Session) SaveSync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.song == nil {
		return ErrNoSong
	}
	if s.editor == nil {
		return ErrNotEditing
	}

	timeline := s.editor.Save()
	s.song.Lyrics = timeline
	s.editor = nil
	s.mode = Playing
	s.lastActive = -1
	s.persistLocked(ctx, timeline)
	logger.Info().Int("lines", len(timeline)).Msg("Saved synced lyrics")
	return nil
}

// persistLocked 把时间轴写进存储，失败只记日志不打断操作
func (s *Session) persistLocked(ctx context.Context, timeline lyrics.Timeline) {
	if s.deps.Store == nil || s.song == nil {
		return
	}
	rec := lyricstore.Record{
		Title:  s.song.Title,
		Artist: s.song.Artist,
		Lyrics: timeline,
		Date:   time.Now().UnixMilli(),
	}
	if err := s.deps.Store.Save(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("Failed to persist lyrics")
	}
}

// ExportLRC 把当前歌词导出成LRC文件，返回写出的路径。没有歌词时拒绝。
func (s *Session) ExportLRC() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.song == nil {
		return "", ErrNoSong
	}
	if len(s.song.Lyrics) == 0 {
		return "", ErrNoLyrics
	}

	name := fileutil.SanitizeFilename(fmt.Sprintf("%s - %s.lrc", s.song.Artist, s.song.Title))
	path := filepath.Join(s.deps.ExportDir, name)
	if err := fileutil.WriteFileOverwrite(path, []byte(lyrics.FormatLRC(s.song.Lyrics)), 0644); err != nil {
		return "", err
	}
	logger.Info().Str("path", path).Msg("Exported LRC file")
	return path, nil
}

// DeleteSaved 删除一条已保存的歌词记录
func (s *Session) DeleteSaved(ctx context.Context, title, artist string) error {
	if s.deps.Store == nil {
		return nil
	}
	return s.deps.Store.Delete(ctx, title, artist)
}

// ListSaved 列出全部已保存的歌词，按保存时间倒序
func (s *Session) ListSaved(ctx context.Context) ([]lyricstore.Record, error) {
	if s.deps.Store == nil {
		return nil, nil
	}
	return s.deps.Store.List(ctx)
}

// RequestLyrics 异步获取歌词文本：先试在线歌词来源，再试LLM生成。
// 结果回来时如果用户已经离开编辑模式或又发起了新请求，直接丢弃。
// 返回的通道在结果处理完后收到最终错误（nil表示成功应用）。
func (s *Session) RequestLyrics(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	s.mu.Lock()
	if s.song == nil {
		s.mu.Unlock()
		done <- ErrNoSong
		return done
	}
	if s.mode != Editing {
		s.mu.Unlock()
		done <- ErrNotEditing
		return done
	}
	s.fetchToken++
	token := s.fetchToken
	title, artist, duration := s.song.Title, s.song.Artist, s.song.Duration
	s.mu.Unlock()

	go func() {
		lines, synced, err := s.fetchLines(ctx, title, artist, duration)
		done <- s.applyFetchedLyrics(ctx, token, lines, synced, err)
	}()
	return done
}

// fetchLines 实际取歌词：来源管理器优先，拿不到再用生成器
func (s *Session) fetchLines(ctx context.Context, title, artist string, duration float64) ([]string, lyrics.Timeline, error) {
	if s.deps.Fetcher != nil {
		result, err := s.deps.Fetcher.Fetch(ctx, title, artist, duration)
		if err == nil {
			if result.Synced != "" {
				if parsed := lyrics.ParseLRC(result.Synced); len(parsed) > 0 {
					return nil, parsed, nil
				}
			}
			if result.Plain != "" {
				return splitLines(result.Plain), nil, nil
			}
		} else {
			logger.Warn().Err(err).Msg("Online lyric sources failed, trying generation")
		}
	}

	if s.deps.Generator == nil {
		return nil, nil, errors.New("no lyric source configured")
	}
	lines, err := s.deps.Generator.Generate(ctx, title, artist)
	return lines, nil, err
}

// applyFetchedLyrics 把异步拿到的歌词应用到编辑会话，过期结果丢弃
func (s *Session) applyFetchedLyrics(ctx context.Context, token uint64, lines []string, synced lyrics.Timeline, err error) error {
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.fetchToken || s.mode != Editing || s.song == nil {
		logger.Info().Msg("Discarding stale lyric result")
		return ErrStaleResult
	}

	// 在线来源直接给了同步歌词：不用打轴，直接保存进入播放模式
	if len(synced) > 0 {
		s.song.Lyrics = synced
		s.editor = nil
		s.mode = Playing
		s.lastActive = -1
		s.persistLocked(ctx, synced)
		logger.Info().Int("lines", len(synced)).Msg("Applied synced lyrics from source")
		return nil
	}

	s.editor = editor.NewSession(lines)
	logger.Info().Int("lines", len(lines)).Msg("Lyric text ready for syncing")
	return nil
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Tick 位置更新：缓存播放位置、重算当前行。录音中发现播放停了会
// 自动收尾录音。App 的主循环按固定间隔调用。
func (s *Session) Tick() TickInfo {
	playing := false
	var pos, dur float64
	if s.deps.Player != nil {
		pos = s.deps.Player.Position()
		dur = s.deps.Player.Duration()
		playing = s.deps.Player.Playing()
	}

	s.mu.Lock()
	s.position = pos
	if dur > 0 {
		s.duration = dur
	}

	info := TickInfo{Position: pos, ActiveIndex: -1}
	if s.song != nil {
		info.ActiveIndex = lyrics.ActiveIndex(s.song.Lyrics, pos)
		if info.ActiveIndex != s.lastActive {
			info.Changed = true
			s.lastActive = info.ActiveIndex
			if info.ActiveIndex >= 0 {
				info.Line = s.song.Lyrics[info.ActiveIndex].Text
			}
		} else if info.ActiveIndex >= 0 {
			info.Line = s.song.Lyrics[info.ActiveIndex].Text
		}
	}

	capturing := s.deps.Capture != nil && s.deps.Capture.Recording()
	s.mu.Unlock()

	// 播放停了就自动停录音
	if capturing && !playing {
		if _, err := s.StopRecording(); err != nil {
			logger.Warn().Err(err).Msg("Auto-stop recording failed")
		}
	}
	return info
}

// Position 缓存的播放位置
func (s *Session) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Duration 缓存的时长
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Spectrum 当前播放位置的频谱柱状数据，非WAV或没加载时返回nil
func (s *Session) Spectrum(bars int) []float64 {
	s.mu.Lock()
	analyzer, pos := s.analyzer, s.position
	s.mu.Unlock()
	if analyzer == nil {
		return nil
	}
	return analyzer.Bars(pos, bars)
}

// SeekToLine 点歌词行跳转播放位置
func (s *Session) SeekToLine(index int) error {
	s.mu.Lock()
	if s.song == nil || index < 0 || index >= len(s.song.Lyrics) {
		s.mu.Unlock()
		return ErrNoLyrics
	}
	t := s.song.Lyrics[index].Time
	s.mu.Unlock()
	return s.Seek(t)
}

// Seek 跳转到指定位置
func (s *Session) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	s.position = seconds
	s.mu.Unlock()
	if s.deps.Player == nil {
		return nil
	}
	return s.deps.Player.Seek(seconds)
}

// TogglePlay 播放/暂停
func (s *Session) TogglePlay() error {
	if s.deps.Player == nil {
		return nil
	}
	if s.deps.Player.Playing() {
		return s.deps.Player.Pause()
	}
	return s.deps.Player.Play()
}

// SetVolume 调音量，0 视为静音
func (s *Session) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.mu.Lock()
	s.volume = v
	s.muted = v == 0
	s.mu.Unlock()
	if s.deps.Player == nil {
		return nil
	}
	return s.deps.Player.SetVolume(v)
}

// ToggleMute 静音开关，从音量0解除静音时恢复到0.5
func (s *Session) ToggleMute() error {
	s.mu.Lock()
	s.muted = !s.muted
	muted := s.muted
	if !muted && s.volume == 0 {
		s.volume = 0.5
	}
	vol := s.volume
	s.mu.Unlock()

	if s.deps.Player == nil {
		return nil
	}
	if muted {
		return s.deps.Player.SetMuted(true)
	}
	if err := s.deps.Player.SetMuted(false); err != nil {
		return err
	}
	return s.deps.Player.SetVolume(vol)
}

// Volume 缓存的音量和静音状态
func (s *Session) Volume() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume, s.muted
}

// StartRecording 开始录人声。录音失败（权限/设备问题）不改变任何状态。
// 播放没开的话自动开始伴奏。
func (s *Session) StartRecording() error {
	s.mu.Lock()
	if s.song == nil {
		s.mu.Unlock()
		return ErrNoSong
	}
	capture := s.deps.Capture
	s.mu.Unlock()

	if capture == nil {
		return errors.New("no capture device configured")
	}
	if err := capture.Start(); err != nil {
		return fmt.Errorf("microphone unavailable: %w", err)
	}

	s.mu.Lock()
	s.takeNum++
	s.mu.Unlock()

	if s.deps.Player != nil && !s.deps.Player.Playing() {
		s.deps.Player.Play()
	}
	return nil
}

// StopRecording 停止录音，把这条take存成文件并返回路径
func (s *Session) StopRecording() (string, error) {
	s.mu.Lock()
	capture := s.deps.Capture
	song := s.song
	take := s.takeNum
	s.mu.Unlock()

	if capture == nil {
		return "", errors.New("no capture device configured")
	}
	data, err := capture.Stop()
	if err != nil {
		return "", err
	}

	title := "Recording"
	if song != nil {
		title = song.Title
	}
	name := fileutil.SanitizeFilename(fmt.Sprintf("%s - Session %d.wav", title, take))
	path := filepath.Join(s.deps.ExportDir, name)
	if err := fileutil.WriteFileOverwrite(path, data, 0644); err != nil {
		return "", err
	}
	logger.Info().Str("path", path).Msg("Saved recording take")
	return path, nil
}
