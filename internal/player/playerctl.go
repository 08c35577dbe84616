package player

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var _ Player = (*Playerctl)(nil)

// Playerctl 基于 playerctl/MPRIS 的播放器实现，通过命令行控制
// 系统里正在运行的媒体播放器。
type Playerctl struct {
	lastVolume float64
	muted      bool
}

func NewPlayerctl() *Playerctl {
	return &Playerctl{lastVolume: 1.0}
}

func (p *Playerctl) run(args ...string) error {
	if err := exec.Command("playerctl", args...).Run(); err != nil {
		return fmt.Errorf("playerctl %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (p *Playerctl) query(args ...string) (string, error) {
	out, err := exec.Command("playerctl", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *Playerctl) Position() float64 {
	s, err := p.query("position")
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return seconds
}

func (p *Playerctl) Duration() float64 {
	// mpris:length 单位是微秒
	s, err := p.query("metadata", "mpris:length")
	if err != nil {
		return 0
	}
	micros, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return micros / 1e6
}

func (p *Playerctl) Playing() bool {
	s, err := p.query("status")
	return err == nil && s == "Playing"
}

func (p *Playerctl) Play() error {
	return p.run("play")
}

func (p *Playerctl) Pause() error {
	return p.run("pause")
}

func (p *Playerctl) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return p.run("position", strconv.FormatFloat(seconds, 'f', 3, 64))
}

func (p *Playerctl) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if v > 0 {
		p.lastVolume = v
	}
	p.muted = v == 0
	return p.run("volume", strconv.FormatFloat(v, 'f', 2, 64))
}

func (p *Playerctl) SetMuted(muted bool) error {
	p.muted = muted
	if muted {
		return p.run("volume", "0")
	}
	v := p.lastVolume
	if v == 0 {
		v = 0.5
	}
	return p.run("volume", strconv.FormatFloat(v, 'f', 2, 64))
}

// Open 用 xdg-open 把文件交给系统默认播放器，之后通过 MPRIS 控制
func (p *Playerctl) Open(path string) error {
	if err := exec.Command("xdg-open", path).Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Handed audio file to system player")
	return nil
}
