package lyricsource

import "context"

// Result 一次歌词查询的结果。Synced 是带时间标签的LRC文本，
// Plain 是纯文本歌词，两者至少有一个非空。
type Result struct {
	Synced string
	Plain  string
}

// Empty 两种歌词都没有
func (r Result) Empty() bool {
	return r.Synced == "" && r.Plain == ""
}

// Source 歌词来源通用接口
type Source interface {
	// Name 来源名称
	Name() string

	// Fetch 按歌曲信息查询歌词，duration 为0表示未知时长
	Fetch(ctx context.Context, title, artist string, duration float64) (Result, error)
}
