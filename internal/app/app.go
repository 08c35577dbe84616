package app

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/internal/config"
	"github.com/WeParadox/Caraoke/internal/ipc"
	"github.com/WeParadox/Caraoke/internal/lyricgen"
	"github.com/WeParadox/Caraoke/internal/player"
	"github.com/WeParadox/Caraoke/internal/recorder"
	"github.com/WeParadox/Caraoke/internal/session"
	"github.com/WeParadox/Caraoke/pkg/lrclib"
	"github.com/WeParadox/Caraoke/pkg/lyricsource"
	"github.com/WeParadox/Caraoke/pkg/lyricstore"
	"github.com/WeParadox/Caraoke/pkg/netease"
	"github.com/WeParadox/Caraoke/pkg/redis"
)

// App 进程级装配：建好所有协作方，跑主循环，把当前行变化推给
// GUI客户端
type App struct {
	cfg       *config.Config
	ipcServer *ipc.Server
	session   *session.Session
	redisCli  *redis.Client
}

func New(cfg *config.Config) *App {
	// 设置 zerolog 的全局配置
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	deps := session.Deps{
		Player:    player.NewPlayerctl(),
		Capture:   recorder.NewArecord(cfg.Recorder.Device),
		ExportDir: cfg.App.ExportDir,
	}

	var redisCli *redis.Client
	if cli, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, lyrics will not be persisted")
	} else {
		redisCli = cli
		deps.Store = lyricstore.New(cli)
	}

	deps.Fetcher = lyricsource.NewManager([]lyricsource.Source{
		lrclib.NewClient(),
		netease.NewClient(),
	})

	if gen, err := lyricgen.New(cfg.AI.ModuleName, cfg.AI.APIKey, cfg.AI.BaseURL); err != nil {
		log.Warn().Err(err).Msg("Lyric generation disabled")
	} else {
		deps.Generator = gen
	}

	return &App{
		cfg:       cfg,
		ipcServer: ipc.NewServer(cfg.App.SocketPath),
		session:   session.New(deps),
		redisCli:  redisCli,
	}
}

// Session 暴露给前端集成用
func (a *App) Session() *session.Session {
	return a.session
}

// Run 跑主循环直到 ctx 结束。每个tick刷新播放位置、重算当前行，
// 行变化时推一条状态给客户端。
func (a *App) Run(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.App.ExportDir, 0755); err != nil {
		return err
	}
	log.Info().Str("export_dir", a.cfg.App.ExportDir).Msg("Export directory ready")

	if err := a.ipcServer.Start(); err != nil {
		return err
	}
	defer a.ipcServer.Close()
	defer func() {
		if a.redisCli != nil {
			a.redisCli.Close()
		}
	}()

	ticker := time.NewTicker(a.cfg.App.TickInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", a.cfg.App.TickInterval).Msg("Starting tick loop...")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *App) tick() {
	info := a.session.Tick()
	if !info.Changed {
		return
	}

	u := ipc.Update{
		Mode:     a.session.Mode().String(),
		Position: info.Position,
		Index:    info.ActiveIndex,
		Line:     info.Line,
	}
	if song := a.session.Song(); song != nil {
		u.Title = song.Title
		u.Artist = song.Artist
	}

	log.Debug().Int("index", u.Index).Str("line", u.Line).Msg("Active line changed")
	a.ipcServer.Broadcast(u)
}
