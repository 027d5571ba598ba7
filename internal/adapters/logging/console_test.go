package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundworkd/groundwork/internal/ports"
)

func TestConsoleLoggerTextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false))

	log.Info(context.Background(), "step applied", ports.Field{Key: "step", Value: "sysctl:net.ipv4.ip_forward"})

	assert.Equal(t, "INFO step applied step=sysctl:net.ipv4.ip_forward\n", buf.String())
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewConsoleLogger(WithOutput(&buf), WithLevel(ports.LevelWarn), WithTimestamp(false))

	log.Debug(context.Background(), "probe")
	log.Info(context.Background(), "probe")
	assert.Empty(t, buf.String())

	log.Warn(context.Background(), "slow step")
	assert.Contains(t, buf.String(), "slow step")
}

func TestConsoleLoggerJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewConsoleLogger(WithOutput(&buf), WithJSONFormat(true), WithTimestamp(false))

	log.Error(context.Background(), "apply failed", ports.Field{Key: "attempt", Value: 2})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "apply failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, float64(2), entry["attempt"])
}

func TestConsoleLoggerWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false))
	scoped := log.With(ports.Field{Key: "plan", Value: "plan-1"})

	scoped.Info(context.Background(), "starting")
	assert.Contains(t, buf.String(), "plan=plan-1")
}
