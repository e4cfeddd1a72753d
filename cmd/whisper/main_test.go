// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/luxfi/whisper"
	"github.com/luxfi/whisper/config"
	"github.com/luxfi/whisper/store"
)

func TestLoadEnvFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "whisper.env")
	require.NoError(os.WriteFile(path, []byte("WHISPER_TEST_ENV_FILE=loaded\n"), 0o600))
	t.Setenv("WHISPER_TEST_ENV_FILE", "")
	require.NoError(os.Unsetenv("WHISPER_TEST_ENV_FILE"))

	require.NoError(loadEnvFile(path))
	require.Equal("loaded", os.Getenv("WHISPER_TEST_ENV_FILE"))

	require.Error(loadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestLoadEnvFileDefaultMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, loadEnvFile(""))
}

func TestNewLogger(t *testing.T) {
	require := require.New(t)

	l, err := newLogger(config.Config{LogLevel: "debug"})
	require.NoError(err)
	require.True(l.Core().Enabled(zapcore.DebugLevel))
}

func TestPrintMessages(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	require.NoError(printMessages(&buf, []*whisper.MessageRecord{
		{
			ID:             "msg-a",
			Content:        "Hello",
			Timestamp:      0,
			Sender:         common.HexToAddress("0x01"),
			EncryptedValue: 5,
			Decryption:     whisper.Verified(5),
		},
	}))

	out := buf.String()
	require.Contains(out, "DECRYPTION")
	require.Contains(out, "msg-a")
	require.Contains(out, "1970-01-01T00:00:00Z")
	require.Contains(out, "verified(5)")
	require.Contains(out, "Hello")
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, store.Stats{Total: 3, Verified: 1, Today: 2})
	require.Equal(t, "total: 3\nverified: 1\ntoday: 2\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(rootCmd.Execute())
	require.Contains(buf.String(), "whisper "+version)
}
