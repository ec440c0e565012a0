package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// rw-r--r-- (擁有者讀寫，其他人唯讀)
const FileModeReadOnly fs.FileMode = 0644

// Log 只增不改的 JSON Lines 檔案
//
// 每一行一筆紀錄。預設每次 Append 後都 fsync，確保回傳成功時資料已落盤。
type Log struct {
	file     *os.File
	mu       sync.Mutex
	syncEach bool
}

// Option Log 的配置選項函數
type Option func(*Log)

// WithoutSync 關閉每筆 fsync (測試或容忍遺失時使用)
func WithoutSync() Option {
	return func(l *Log) {
		l.syncEach = false
	}
}

// Open 開啟或建立一個 Log 檔案
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func Open(path string, opts ...Option) (*Log, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	l := &Log{file: file, syncEach: true}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append 寫入一筆資料
func (l *Log) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode wal entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("write wal entry: %w", err)
	}
	if l.syncEach {
		return l.file.Sync()
	}
	return nil
}

// Sync 強制刷入硬碟
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Sync()
}

// Close 刷入並關閉檔案
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Sync(); err != nil {
		return errors.Join(err, l.file.Close())
	}
	return l.file.Close()
}

// Scan 從頭逐行讀取所有紀錄
// callback 一次只拿到一行，不會把整個檔案載入記憶體
func (l *Log) Scan(callback func(raw json.RawMessage) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(l.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := make(json.RawMessage, len(line))
		copy(raw, line)
		if err := callback(raw); err != nil {
			return err
		}
	}
	return scanner.Err()
}
