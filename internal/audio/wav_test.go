package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWav 生成一个1秒440Hz正弦波的WAV文件
func writeTestWav(t *testing.T, sampleRate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	for i := 0; i < sampleRate; i++ {
		v := math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate))
		buf.Data = append(buf.Data, int(v*16000))
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close encoder: %v", err)
	}
	return path
}

func TestProbe(t *testing.T) {
	path := writeTestWav(t, 8000)

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if info.SampleRate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("expected 1 channel, got %d", info.Channels)
	}
	if math.Abs(info.Duration-1.0) > 0.01 {
		t.Errorf("expected ~1s duration, got %v", info.Duration)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	os.WriteFile(path, []byte("definitely not audio"), 0644)

	if _, err := Probe(path); err == nil {
		t.Error("expected error on non-WAV file")
	}
}

func TestReadMono(t *testing.T) {
	path := writeTestWav(t, 8000)

	samples, rate, err := ReadMono(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if rate != 8000 {
		t.Errorf("expected sample rate 8000, got %d", rate)
	}
	if len(samples) != 8000 {
		t.Errorf("expected 8000 samples, got %d", len(samples))
	}

	// 采样值必须归一化
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 || peak > 1.0 {
		t.Errorf("expected normalized samples, peak = %v", peak)
	}
}
