package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_DoesNotPanic(t *testing.T) {
	var buf bytes.Buffer

	InitWriter(&buf, false, false)
	L().Info().Msg("test json info")
	L().Debug().Msg("test json debug (suppressed)")

	InitWriter(&buf, true, true)
	L().Debug().Msg("test human debug")

	Init(false, false)
}

func TestInitWriter_LevelAndMode(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, false, false)
	defer Init(false, false)

	L().Debug().Msg("hidden")
	L().Info().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message emitted at info level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("expected JSON info message, got: %s", out)
	}
	if IsPrettyMode() {
		t.Error("IsPrettyMode() = true after JSON init")
	}

	InitWriter(&buf, false, true)
	if !IsPrettyMode() {
		t.Error("IsPrettyMode() = false after human init")
	}
}

func TestWithPhase(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(false, false)

	log := WithPhase("aggregate")
	log.Info().Msg("test message")

	if !bytes.Contains(buf.Bytes(), []byte(`"phase":"aggregate"`)) {
		t.Errorf("expected phase field in output, got: %s", buf.String())
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).With().Str("custom", "field").Logger())
	defer Init(false, false)

	L().Info().Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"custom":"field"`)) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}
