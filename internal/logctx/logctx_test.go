package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/eunmann/huimine/pkg/logging"
	"github.com/rs/zerolog"
)

func TestFromContext_FallsBackToProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf).With().Str("process", "yes").Logger())
	defer logging.Init(false, false)

	//nolint:staticcheck // nil context is part of the contract
	logger := FromContext(nil)
	logger.Info().Msg("nil ctx")

	logger = FromContext(context.Background())
	logger.Info().Msg("empty ctx")

	out := buf.String()
	if strings.Count(out, `"process":"yes"`) != 2 {
		t.Errorf("expected both events from process logger, got: %s", out)
	}
}

func TestWithLogger_AndFromContext(t *testing.T) {
	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := WithLogger(context.Background(), customLogger)
	log := FromContext(ctx)
	log.Info().Msg("test")

	if !strings.Contains(buf.String(), `"custom":"field"`) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}

func TestWithLogger_NilContext(t *testing.T) {
	var buf bytes.Buffer

	//nolint:staticcheck // nil context is part of the contract
	ctx := WithLogger(nil, zerolog.New(&buf))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}

	log := FromContext(ctx)
	log.Info().Msg("test")
	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestWithFieldAndStr(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	ctx = WithField(ctx, "level_size", 3)
	ctx = WithStr(ctx, "source", "tx.txt")
	log := FromContext(ctx)
	log.Info().Msg("test")

	out := buf.String()
	if !strings.Contains(out, `"level_size":3`) || !strings.Contains(out, `"source":"tx.txt"`) {
		t.Errorf("expected both fields, got: %s", out)
	}
}

func TestWithRunAndPhase(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	ctx = WithRun(ctx, "run-1", 5000)
	log := Phase(ctx, "pairs")
	log.Info().Msg("test")

	out := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"min_utility":5000`, `"phase":"pairs"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}
