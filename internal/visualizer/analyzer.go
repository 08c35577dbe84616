package visualizer

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFTSize 频谱窗口大小，输出 FFTSize/2 个频点
const FFTSize = 256

// Analyzer 按播放位置对PCM采样做频谱快照。无状态查询，
// 渲染端可以按帧率随便轮询。
type Analyzer struct {
	samples    []float64
	sampleRate int
	window     []float64
}

// NewAnalyzer 用解码好的单声道采样创建分析器
func NewAnalyzer(samples []float64, sampleRate int) *Analyzer {
	return &Analyzer{
		samples:    samples,
		sampleRate: sampleRate,
		window:     hamming(FFTSize),
	}
}

// hamming 汉明窗：0.54 - 0.46*cos(2*pi*n/(N-1))
func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// BinCount 快照里频点的数量
func (a *Analyzer) BinCount() int {
	return FFTSize / 2
}

// Snapshot 返回 position（秒）处的幅度谱，每个频点一个值。
// 位置越界时返回全零（静音），不报错。
func (a *Analyzer) Snapshot(position float64) []float64 {
	mag := make([]float64, FFTSize/2)
	if a.sampleRate <= 0 || position < 0 {
		return mag
	}

	start := int(position * float64(a.sampleRate))
	if start < 0 || start+FFTSize > len(a.samples) {
		return mag
	}

	frame := make([]float64, FFTSize)
	copy(frame, a.samples[start:start+FFTSize])
	for i := range frame {
		frame[i] *= a.window[i]
	}

	spectrum := fft.FFTReal(frame)
	for i := 0; i < FFTSize/2; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// Bars 把频谱压缩成 count 根柱子（每根取一段频点的平均），
// 直接对应显示端的柱状可视化。
func (a *Analyzer) Bars(position float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	mag := a.Snapshot(position)
	step := len(mag) / count
	if step < 1 {
		step = 1
	}

	bars := make([]float64, count)
	for i := 0; i < count; i++ {
		var sum float64
		n := 0
		for j := 0; j < step && i*step+j < len(mag); j++ {
			sum += mag[i*step+j]
			n++
		}
		if n > 0 {
			bars[i] = sum / float64(n)
		}
	}
	return bars
}
