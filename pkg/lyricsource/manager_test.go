package lyricsource

import (
	"context"
	"errors"
	"testing"
)

// mockSource 模拟歌词来源
type mockSource struct {
	name   string
	result Result
	err    error
	calls  int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Fetch(ctx context.Context, title, artist string, duration float64) (Result, error) {
	m.calls++
	return m.result, m.err
}

func TestManagerFetch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		source := &mockSource{name: "primary", result: Result{Synced: "[00:10.00] test"}}
		manager := NewManager([]Source{source})

		result, err := manager.Fetch(context.Background(), "Song", "Artist", 0)
		if err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
		if result.Synced != "[00:10.00] test" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	// 第一个来源失败时回退到第二个
	t.Run("FailoverSuccess", func(t *testing.T) {
		failing := &mockSource{name: "failing", err: errors.New("down")}
		backup := &mockSource{name: "backup", result: Result{Plain: "some lyrics"}}
		manager := NewManager([]Source{failing, backup})

		result, err := manager.Fetch(context.Background(), "Song", "Artist", 0)
		if err != nil {
			t.Fatalf("expected failover success, got error: %v", err)
		}
		if result.Plain != "some lyrics" {
			t.Errorf("unexpected result: %+v", result)
		}
		if failing.calls != 1 || backup.calls != 1 {
			t.Errorf("expected both sources tried once, got %d/%d", failing.calls, backup.calls)
		}
	})

	// 空结果也算失败，继续尝试下一个来源
	t.Run("EmptyResultFallsThrough", func(t *testing.T) {
		empty := &mockSource{name: "empty"}
		backup := &mockSource{name: "backup", result: Result{Plain: "text"}}
		manager := NewManager([]Source{empty, backup})

		result, err := manager.Fetch(context.Background(), "Song", "Artist", 0)
		if err != nil {
			t.Fatalf("expected success, got error: %v", err)
		}
		if result.Plain != "text" {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("AllFail", func(t *testing.T) {
		manager := NewManager([]Source{
			&mockSource{name: "a", err: errors.New("down")},
			&mockSource{name: "b", err: errors.New("also down")},
		})
		if _, err := manager.Fetch(context.Background(), "Song", "Artist", 0); err == nil {
			t.Error("expected error when all sources fail")
		}
	})

	t.Run("NoSources", func(t *testing.T) {
		manager := NewManager(nil)
		if _, err := manager.Fetch(context.Background(), "Song", "Artist", 0); err == nil {
			t.Error("expected error with no sources")
		}
	})
}
