package player

// Player 外部播放器接口。核心逻辑只依赖这个接口，
// 位置和时长读不到时返回0，控制操作失败返回error。
type Player interface {
	// Position 当前播放位置（秒）
	Position() float64
	// Duration 当前曲目时长（秒）
	Duration() float64
	// Playing 是否正在播放
	Playing() bool

	Play() error
	Pause() error
	// Seek 跳转到指定位置（秒）
	Seek(seconds float64) error
	// SetVolume 音量 0..1
	SetVolume(v float64) error
	SetMuted(muted bool) error
	// Open 加载音频文件
	Open(path string) error
}
