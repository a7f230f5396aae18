package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/presenter/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("level", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")

		logger, closer, err := New(config.LogConfig{Level: "warn"})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer closer.Close()

		if logger.GetLevel() != logrus.WarnLevel {
			t.Errorf("level = %v, want warn", logger.GetLevel())
		}
	})

	t.Run("bad level", func(t *testing.T) {
		if _, _, err := New(config.LogConfig{Level: "loud"}); err == nil {
			t.Error("New() should reject an unknown level")
		}
	})

	t.Run("writes the log file", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		file := filepath.Join(t.TempDir(), "logs", "presenter.log")

		logger, closer, err := New(config.LogConfig{Level: "info", File: file, MaxSizeMB: 1})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.WithField("component", "test").Info("hello")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("log file not written: %v", err)
		}
		if len(data) == 0 {
			t.Error("log file is empty")
		}
	})

	t.Run("no file in tests", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		file := filepath.Join(t.TempDir(), "presenter.log")

		logger, closer, err := New(config.LogConfig{Level: "info", File: file})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("hello")
		closer.Close()

		if _, err := os.Stat(file); !os.IsNotExist(err) {
			t.Errorf("log file should not exist with APP_ENV=test, stat error = %v", err)
		}
	})
}
