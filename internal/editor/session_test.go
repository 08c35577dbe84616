package editor

import "testing"

func TestStartSync(t *testing.T) {
	t.Run("SplitsAndTrims", func(t *testing.T) {
		s := NewSession(nil)
		s.SetText("  first \n\n second\n   \nthird")
		if !s.StartSync() {
			t.Fatal("expected StartSync to succeed")
		}
		want := []string{"first", "second", "third"}
		got := s.Pending()
		if len(got) != len(want) {
			t.Fatalf("expected %d pending lines, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
			}
		}
		if s.State() != Syncing {
			t.Errorf("expected Syncing state, got %v", s.State())
		}
	})

	// 一行有效内容都没有时不允许进入打轴状态
	t.Run("RejectsEmptyText", func(t *testing.T) {
		s := NewSession(nil)
		s.SetText("   \n\n  ")
		if s.StartSync() {
			t.Error("expected StartSync to fail on blank text")
		}
		if s.State() != CollectingText {
			t.Errorf("expected CollectingText state, got %v", s.State())
		}
	})

	t.Run("PreloadedLinesStartSyncing", func(t *testing.T) {
		s := NewSession([]string{"x", "y"})
		if s.State() != Syncing {
			t.Errorf("expected Syncing state, got %v", s.State())
		}
	})
}

func TestMark(t *testing.T) {
	// 依次打轴，多余的 Mark 是 no-op
	t.Run("MonotonicBuild", func(t *testing.T) {
		s := NewSession([]string{"x", "y", "z"})

		positions := []float64{0.5, 1.5, 3.0}
		for _, p := range positions {
			s.Mark(p)
		}

		synced := s.Synced()
		if len(synced) != 3 {
			t.Fatalf("expected 3 synced lines, got %d", len(synced))
		}
		wantTexts := []string{"x", "y", "z"}
		for i := range synced {
			if synced[i].Time != positions[i] || synced[i].Text != wantTexts[i] {
				t.Errorf("line %d: expected {%v, %s}, got {%v, %s}",
					i, positions[i], wantTexts[i], synced[i].Time, synced[i].Text)
			}
		}
		if !s.Done() {
			t.Error("expected session to be done")
		}

		// 第四次 Mark 什么都不做
		s.Mark(4.0)
		if len(s.Synced()) != 3 {
			t.Errorf("extra mark must be a no-op, got %d lines", len(s.Synced()))
		}
	})

	t.Run("IgnoredOutsideSyncing", func(t *testing.T) {
		s := NewSession(nil)
		s.Mark(1.0)
		if len(s.Synced()) != 0 {
			t.Error("mark in CollectingText must be a no-op")
		}
	})
}

func TestReset(t *testing.T) {
	s := NewSession([]string{"x", "y", "z"})
	s.Mark(0.5)
	s.Mark(1.5)

	s.Reset()

	if len(s.Synced()) != 0 {
		t.Errorf("expected empty output after reset, got %d lines", len(s.Synced()))
	}
	if s.NextIndex() != 0 {
		t.Errorf("expected cursor 0 after reset, got %d", s.NextIndex())
	}
	if len(s.Pending()) != 3 {
		t.Errorf("reset must not touch pending lines, got %d", len(s.Pending()))
	}
	if s.State() != Syncing {
		t.Errorf("expected Syncing state after reset, got %v", s.State())
	}
}

func TestEditText(t *testing.T) {
	s := NewSession([]string{"x", "y"})
	s.Mark(0.5)

	s.EditText()

	if s.State() != CollectingText {
		t.Errorf("expected CollectingText state, got %v", s.State())
	}
	if len(s.Synced()) != 0 {
		t.Error("edit text must discard sync progress")
	}
	// 文本保留，可以改完再打
	if s.RawText() != "x\ny" {
		t.Errorf("expected raw text preserved, got %q", s.RawText())
	}
}

func TestSave(t *testing.T) {
	// 部分保存：打了1行就保存，结果只有1行
	t.Run("PartialSave", func(t *testing.T) {
		s := NewSession([]string{"x", "y", "z"})
		s.Mark(0.5)

		result := s.Save()
		if len(result) != 1 {
			t.Fatalf("expected 1 line, got %d", len(result))
		}
		if result[0].Time != 0.5 || result[0].Text != "x" {
			t.Errorf("expected {0.5, x}, got %+v", result[0])
		}
		if s.State() != Completed {
			t.Errorf("expected Completed state, got %v", s.State())
		}
	})

	t.Run("ZeroProgressSave", func(t *testing.T) {
		s := NewSession([]string{"x"})
		if result := s.Save(); len(result) != 0 {
			t.Errorf("expected empty result, got %d lines", len(result))
		}
	})

	t.Run("SaveOutsideSyncing", func(t *testing.T) {
		s := NewSession(nil)
		if result := s.Save(); result != nil {
			t.Error("save in CollectingText must return nil")
		}
	})
}
