package lyrics

// Line 一行歌词：时间戳（秒）+ 文本
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// Timeline 按时间非递减排列的歌词序列，允许相同时间戳（对唱场景），允许为空
type Timeline []Line

// ActiveIndex 返回播放位置 pos 对应的当前歌词下标。
// 规则：最后一个满足 lines[i].Time <= pos 的 i；
// pos 在第一行之前或歌词为空时返回 -1。
// 纯函数，播放时每个 tick 都会调用，用二分查找提高效率。
func ActiveIndex(lines Timeline, pos float64) int {
	if len(lines) == 0 {
		return -1
	}

	// 如果时间在第一行歌词之前，返回 -1
	if pos < lines[0].Time {
		return -1
	}

	left, right := 0, len(lines)-1
	result := -1
	for left <= right {
		mid := (left + right) / 2
		if lines[mid].Time <= pos {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

// IsSorted 检查时间戳是否非递减
func (t Timeline) IsSorted() bool {
	for i := 1; i < len(t); i++ {
		if t[i].Time < t[i-1].Time {
			return false
		}
	}
	return true
}

// Texts 返回所有歌词文本（丢弃时间戳），编辑器重新打轴时使用
func (t Timeline) Texts() []string {
	texts := make([]string, len(t))
	for i, line := range t {
		texts[i] = line.Text
	}
	return texts
}
