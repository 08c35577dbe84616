package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Info WAV文件的基本信息
type Info struct {
	Duration   float64 // 秒
	SampleRate int
	Channels   int
}

// Probe 读取WAV文件头，返回时长和采样率。非WAV文件返回错误，
// 调用方自行决定回退行为（时长未知按0处理）。
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return Info{}, errors.New("not a valid WAV file")
	}

	duration, err := decoder.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("failed to read duration: %w", err)
	}

	return Info{
		Duration:   duration.Seconds(),
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
	}, nil
}

// ReadMono 解码整个WAV文件为单声道 float64 采样（多声道取平均，
// 归一化到 [-1, 1]），给频谱分析用。
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, errors.New("not a valid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}

	return samples, buf.Format.SampleRate, nil
}
