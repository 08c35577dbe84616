package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestBroadcast(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	s := NewServer(sock)
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer s.Close()

	// 连接前先广播一条，新客户端应该能收到补发
	s.Broadcast(Update{Mode: "playing", Index: 2, Line: "hello"})

	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	r := bufio.NewReader(conn)
	raw, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read initial state: %v", err)
	}

	var u Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("invalid JSON %q: %v", raw, err)
	}
	if u.Line != "hello" || u.Index != 2 || u.Mode != "playing" {
		t.Errorf("unexpected initial update: %+v", u)
	}

	// 连上之后的广播实时推送
	s.Broadcast(Update{Mode: "playing", Index: 3, Line: "world"})
	raw, err = r.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read live update: %v", err)
	}
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("invalid JSON %q: %v", raw, err)
	}
	if u.Line != "world" || u.Index != 3 {
		t.Errorf("unexpected live update: %+v", u)
	}
}

func TestSingleInstanceLock(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "test.sock")
	first := NewServer(sock)
	if err := first.Start(); err != nil {
		t.Fatalf("failed to start first server: %v", err)
	}
	defer first.Close()

	second := NewServer(sock)
	if err := second.Start(); err == nil {
		second.Close()
		t.Fatal("expected second instance to fail on the lock")
	}
}
