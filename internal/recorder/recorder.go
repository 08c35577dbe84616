package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Capture 麦克风采集接口。Start 失败（没有设备/没有权限）时
// 录音不开始，调用方通知用户即可，不影响其它状态。
type Capture interface {
	Start() error
	// Stop 结束采集，返回编码好的音频数据（WAV）
	Stop() ([]byte, error)
	Recording() bool
}

var _ Capture = (*Arecord)(nil)

// Arecord 基于 arecord 子进程的实现，把麦克风输入录成WAV字节流
type Arecord struct {
	device string

	mu  sync.Mutex
	cmd *exec.Cmd
	buf *bytes.Buffer
}

// NewArecord 创建录音器，device 为空时用默认设备
func NewArecord(device string) *Arecord {
	return &Arecord{device: device}
}

func (r *Arecord) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// Start 启动采集。已经在录音时是 no-op。
func (r *Arecord) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return nil
	}

	args := []string{"-f", "cd", "-t", "wav"}
	if r.device != "" {
		args = append(args, "-D", r.device)
	}

	cmd := exec.Command("arecord", args...)
	buf := &bytes.Buffer{}
	cmd.Stdout = buf

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start microphone capture: %w", err)
	}

	r.cmd = cmd
	r.buf = buf
	log.Info().Str("device", r.device).Msg("Microphone capture started")
	return nil
}

// Stop 结束采集并返回录到的数据
func (r *Arecord) Stop() ([]byte, error) {
	r.mu.Lock()
	cmd, buf := r.cmd, r.buf
	r.cmd, r.buf = nil, nil
	r.mu.Unlock()

	if cmd == nil {
		return nil, errors.New("not recording")
	}

	// 发 SIGINT 让 arecord 补好WAV头再退出
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		cmd.Process.Kill()
	}
	cmd.Wait()

	data := buf.Bytes()
	if len(data) == 0 {
		return nil, errors.New("capture produced no data")
	}
	log.Info().Int("bytes", len(data)).Msg("Microphone capture stopped")
	return data, nil
}
