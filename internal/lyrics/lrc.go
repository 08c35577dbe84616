package lyrics

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// 每行只认第一个时间标签，后面的标签当作歌词文本保留
var lrcTagRe = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{2,3}))?\]`)

// ParseLRC 解析LRC文本为歌词时间轴。
// 小数部分2位按厘秒（x10ms）、3位按毫秒处理；
// 没有时间标签的行和去掉标签后为空的行直接丢弃，不算错误；
// 输出保证按时间非递减排序，与输入顺序无关。
func ParseLRC(lrc string) Timeline {
	scanner := bufio.NewScanner(strings.NewReader(lrc))
	var result Timeline

	for scanner.Scan() {
		raw := scanner.Text()
		loc := lrcTagRe.FindStringSubmatchIndex(raw)
		if loc == nil {
			continue
		}

		match := lrcTagRe.FindStringSubmatch(raw)
		min, _ := strconv.Atoi(match[1])
		sec, _ := strconv.Atoi(match[2])
		ms := 0
		if match[3] != "" {
			msStr := match[3]
			ms, _ = strconv.Atoi(msStr)
			// 根据小数位数换算毫秒：.49 表示 490ms，.490 也表示 490ms
			if len(msStr) == 2 {
				ms *= 10
			}
		}

		text := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
		if text == "" {
			continue
		}

		result = append(result, Line{
			Time: float64(min*60+sec) + float64(ms)/1000,
			Text: text,
		})
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result
}

// FormatLRC 序列化为规范的写出格式 "[MM:SS.CC] text"。
// 厘秒按截断取整，3位精度的时间戳写出时丢掉最后一位，这是预期行为。
func FormatLRC(lines Timeline) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		totalSeconds := int(line.Time)
		min := totalSeconds / 60
		sec := totalSeconds % 60
		cs := int((line.Time - float64(totalSeconds)) * 100)
		out[i] = fmt.Sprintf("[%02d:%02d.%02d] %s", min, sec, cs, line.Text)
	}
	return strings.Join(out, "\n")
}
