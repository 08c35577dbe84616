package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Update 推给GUI客户端的一条状态，按行分隔的JSON
type Update struct {
	Mode     string  `json:"mode"`
	Position float64 `json:"position"`
	Index    int     `json:"index"`
	Line     string  `json:"line,omitempty"`
	Title    string  `json:"title,omitempty"`
	Artist   string  `json:"artist,omitempty"`
}

// Server unix socket 广播服务。GUI客户端连上来先收到最近一次状态，
// 之后每次当前行变化都会推一条。锁文件保证同一台机器只跑一个实例。
type Server struct {
	socketPath   string
	listener     net.Listener
	lockFile     *os.File
	lockFilePath string

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	lastMu sync.Mutex
	last   []byte
}

func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:   socketPath,
		conns:        make(map[net.Conn]struct{}),
		lockFilePath: socketPath + ".lock",
	}
}

// cleanStaleLock 上一个实例异常退出会留下锁文件，PID对应的进程
// 不在了就直接清掉
func (s *Server) cleanStaleLock() {
	content, err := os.ReadFile(s.lockFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			os.Remove(s.lockFilePath)
		}
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		log.Warn().Str("content", strings.TrimSpace(string(content))).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	// kill(pid, 0) 只探测进程存不存在，不发信号
	if syscall.Kill(pid, 0) != nil {
		log.Info().Int("old_pid", pid).Msg("Stale lock file found, removing it")
		os.Remove(s.lockFilePath)
	}
}

func (s *Server) acquireLock() error {
	s.cleanStaleLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	log.Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile == nil {
		return
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	s.lockFile.Close()
	os.Remove(s.lockFilePath)
	s.lockFile = nil
}

func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	log.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Close() 之后 Accept 会一直报错，直接退出
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	log.Info().Msg("Client connected")

	// 新客户端先补发最近一次状态
	s.lastMu.Lock()
	last := s.last
	s.lastMu.Unlock()
	if len(last) > 0 {
		if _, err := conn.Write(last); err != nil {
			log.Error().Err(err).Msg("Failed to send initial state")
		}
	}

	// 客户端不发数据，读挂起只为发现断连
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	conn.Close()
	log.Info().Msg("Client disconnected")
}

// Broadcast 把一条状态推给所有客户端，写失败的连接直接踢掉
func (s *Server) Broadcast(u Update) {
	data, err := json.Marshal(u)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode update")
		return
	}
	data = append(data, '\n')

	s.lastMu.Lock()
	s.last = data
	s.lastMu.Unlock()

	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		if _, err := conn.Write(data); err != nil {
			log.Error().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.conns, conn)
		}
	}
}

func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[net.Conn]struct{})
	s.connsMu.Unlock()

	s.releaseLock()
}
