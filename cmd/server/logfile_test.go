package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCappedLog_KeepsWholeNewestRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "capvault.log")
	l, err := openCappedLog(path, 12)
	require.NoError(t, err)
	defer l.Close()

	write := func(line string) string {
		t.Helper()
		_, err := l.Write([]byte(line))
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}

	require.Equal(t, "one\ntwo\n", write("one\ntwo\n"))
	// the cut falls right after "one\n"
	require.Equal(t, "two\nthree\n", write("three\n"))
	// the cut falls inside "three\n", which is dropped whole
	require.Equal(t, "four\n", write("four\n"))
}

func TestCappedLog_TrimsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capvault.log")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("0123456789\n"), 10), 0o644))

	l, err := openCappedLog(path, 60)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.LessOrEqual(t, len(data), 60)
	require.True(t, bytes.HasPrefix(data, []byte("0123456789\n")))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLogLevel("debug").String())
	require.Equal(t, "WARN", parseLogLevel("warn").String())
	require.Equal(t, "INFO", parseLogLevel("loud").String())
}

func TestEnsureDBDir(t *testing.T) {
	require.NoError(t, ensureDBDir(":memory:"))
	require.NoError(t, ensureDBDir("file:x?mode=memory"))

	path := filepath.Join(t.TempDir(), "a", "b", "capvault.db")
	require.NoError(t, ensureDBDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
