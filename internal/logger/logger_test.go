package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"textalert/pkg/models"
)

func TestSetup_InvalidLevel(t *testing.T) {
	if err := Setup(LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetup_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textalert.log")
	if err := Setup(LogConfig{Level: "debug", Format: "json", Output: path}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("GlobalLevel = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestWithObject(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	defer func() { log.Logger = saved }()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := WithObject(WithInvocationID("pipeline", "inv-1"), models.ObjectReference{Bucket: "b", Key: "k", Version: "v"})
	l.Info().Msg("hello")

	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	for key, want := range map[string]string{
		"component":     "pipeline",
		"invocation_id": "inv-1",
		"bucket":        "b",
		"key":           "k",
		"version":       "v",
	} {
		if fields[key] != want {
			t.Errorf("%s = %v, want %q", key, fields[key], want)
		}
	}
}
