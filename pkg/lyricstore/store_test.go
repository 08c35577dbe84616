package lyricstore

import (
	"context"
	"strings"
	"testing"

	"github.com/WeParadox/Caraoke/internal/lyrics"
)

// memKV 内存KV，测试用
type memKV struct {
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Set(ctx context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memKV) Del(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// TestKeyNormalization 标题/歌手归一化后指向同一条记录
func TestKeyNormalization(t *testing.T) {
	if Key("Song", "Artist") != Key(" song ", "ARTIST") {
		t.Errorf("expected normalized keys to match: %q vs %q",
			Key("Song", "Artist"), Key(" song ", "ARTIST"))
	}
	if Key("Song", "Artist") == Key("Song", "Other") {
		t.Error("different artists must not collide")
	}
}

func TestSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := New(newMemKV())

	rec := Record{
		Title:  "Test Song",
		Artist: "Test Artist",
		Lyrics: []lyrics.Line{{Time: 1.5, Text: "hello"}},
		Date:   1000,
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// 归一化后的键也能命中
	got, ok, err := store.Load(ctx, "  test song ", "TEST ARTIST")
	if err != nil || !ok {
		t.Fatalf("expected record, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Time != 1.5 || got[0].Text != "hello" {
		t.Errorf("unexpected timeline: %+v", got)
	}

	if err := store.Delete(ctx, "Test Song", "Test Artist"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "Test Song", "Test Artist"); ok {
		t.Error("expected record gone after delete")
	}
}

// 同一首歌重复保存：后保存的覆盖先保存的
func TestLastSaveWins(t *testing.T) {
	ctx := context.Background()
	store := New(newMemKV())

	first := Record{Title: "Song", Artist: "Artist", Lyrics: []lyrics.Line{{Time: 1, Text: "old"}}, Date: 1}
	second := Record{Title: " song ", Artist: "ARTIST", Lyrics: []lyrics.Line{{Time: 2, Text: "new"}}, Date: 2}
	store.Save(ctx, first)
	store.Save(ctx, second)

	got, ok, _ := store.Load(ctx, "Song", "Artist")
	if !ok || len(got) != 1 || got[0].Text != "new" {
		t.Errorf("expected last save to win, got %+v", got)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected a single record after overwrite, got %d", len(records))
	}
}

// 损坏的记录当作不存在处理，不报错
func TestCorruptRecordFailsSoft(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[Key("Bad", "Data")] = "{not json"
	store := New(kv)

	got, ok, err := store.Load(ctx, "Bad", "Data")
	if err != nil {
		t.Fatalf("corrupt record must not error: %v", err)
	}
	if ok || got != nil {
		t.Error("corrupt record must read as missing")
	}
}

func TestListSortedByDateDesc(t *testing.T) {
	ctx := context.Background()
	store := New(newMemKV())

	store.Save(ctx, Record{Title: "Oldest", Artist: "a", Date: 100})
	store.Save(ctx, Record{Title: "Newest", Artist: "b", Date: 300})
	store.Save(ctx, Record{Title: "Middle", Artist: "c", Date: 200})

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	wantOrder := []string{"Newest", "Middle", "Oldest"}
	for i, w := range wantOrder {
		if records[i].Title != w {
			t.Errorf("position %d: expected %s, got %s", i, w, records[i].Title)
		}
	}
}
