package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// defaultLogLimit applies when log.max_size_mb is unset.
const defaultLogLimit = 6 << 20

// cappedLog is an append-only log file that keeps only its newest
// records. Past limit bytes it is cut back to about five sixths of the
// limit, starting at a record boundary.
type cappedLog struct {
	mu    sync.Mutex
	file  *os.File
	limit int64
	keep  int64
}

func openCappedLog(path string, limit int64) (*cappedLog, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l := &cappedLog{file: file, limit: limit, keep: limit - limit/6}
	if err := l.trim(); err != nil {
		file.Close()
		return nil, fmt.Errorf("trimming log file: %w", err)
	}
	return l, nil
}

func (l *cappedLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, l.trim()
}

func (l *cappedLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *cappedLog) trim() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= l.limit {
		return nil
	}

	// one byte before the cut tells whether it falls between records
	tail := make([]byte, l.keep+1)
	n, err := l.file.ReadAt(tail, size-l.keep-1)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	tail = tail[:n]
	if i := bytes.IndexByte(tail, '\n'); i >= 0 {
		tail = tail[i+1:]
	} else {
		tail = tail[1:]
	}

	if err := l.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end of file
	_, err = l.file.Write(tail)
	return err
}
