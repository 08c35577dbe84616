package editor

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/internal/lyrics"
)

// State 编辑器状态
type State int

const (
	// CollectingText 歌词文本还在编辑中
	CollectingText State = iota
	// Syncing 行列表已固定，正在打轴
	Syncing
	// Completed 已保存退出
	Completed
)

func (s State) String() string {
	switch s {
	case CollectingText:
		return "collecting-text"
	case Syncing:
		return "syncing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Session 打轴会话：把一段纯文本歌词和一串 Mark 事件（每次按键携带当时的
// 播放位置）合成为歌词时间轴。对多余的 Mark、零进度保存这类误操作一律
// 当作 no-op，不报错，保证交互不被打断。
type Session struct {
	state   State
	rawText string
	pending []string
	next    int
	synced  lyrics.Timeline
}

// NewSession 创建会话。lines 非空时直接进入打轴状态（比如AI生成或
// 已有歌词重新打轴），为空时停在文本编辑状态。
func NewSession(lines []string) *Session {
	s := &Session{state: CollectingText}
	if len(lines) > 0 {
		s.rawText = strings.Join(lines, "\n")
		s.pending = append([]string(nil), lines...)
		s.state = Syncing
	}
	return s
}

// State 当前状态
func (s *Session) State() State { return s.state }

// RawText 当前编辑中的原始文本
func (s *Session) RawText() string { return s.rawText }

// Pending 固定下来的待打轴行
func (s *Session) Pending() []string { return s.pending }

// NextIndex 下一个待打轴行的下标
func (s *Session) NextIndex() int { return s.next }

// Synced 目前已经打好的部分
func (s *Session) Synced() lyrics.Timeline { return s.synced }

// SetText 更新原始文本，仅在文本编辑状态有效
func (s *Session) SetText(text string) {
	if s.state != CollectingText {
		return
	}
	s.rawText = text
}

// StartSync 固定行列表并进入打轴状态。按物理行拆分、去掉首尾空白、
// 丢弃空行；一行有效内容都没有时留在原状态，返回 false。
func (s *Session) StartSync() bool {
	if s.state != CollectingText {
		return s.state == Syncing
	}

	var lines []string
	for _, l := range strings.Split(s.rawText, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return false
	}

	s.pending = lines
	s.next = 0
	s.synced = nil
	s.state = Syncing
	log.Debug().Int("lines", len(lines)).Msg("Sync session started")
	return true
}

// Mark 打轴：把当前播放位置记到下一行上。所有行都打完之后的多余
// Mark 是 no-op。读位置和写时间戳在同一次调用里完成，事件队列上
// 不会有 Reset/EditText 插进来。
func (s *Session) Mark(position float64) {
	if s.state != Syncing || s.next >= len(s.pending) {
		return
	}
	s.synced = append(s.synced, lyrics.Line{Time: position, Text: s.pending[s.next]})
	s.next++
}

// Done 所有行是否都已打完
func (s *Session) Done() bool {
	return s.state == Syncing && s.next >= len(s.pending)
}

// Reset 清空已打的时间戳重新来，待打轴行不变
func (s *Session) Reset() {
	if s.state != Syncing {
		return
	}
	s.synced = nil
	s.next = 0
}

// EditText 放弃打轴进度回到文本编辑（是否暂停播放由调用方处理）
func (s *Session) EditText() {
	if s.state != Syncing {
		return
	}
	s.synced = nil
	s.next = 0
	s.state = CollectingText
}

// Save 结束会话并返回结果。任意进度下都可以保存，未打轴的行不会
// 出现在结果里。正常顺序播放下 Mark 的位置是非递减的，这里不再排序。
func (s *Session) Save() lyrics.Timeline {
	if s.state != Syncing {
		return nil
	}
	s.state = Completed
	return s.synced
}
