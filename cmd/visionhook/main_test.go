package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testPortEnv = "VISIONHOOK_TEST_PORT"

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 7000, resolvePort(testPortEnv, false, 8080, 7000), "config beats flag default")
	assert.Equal(t, 8081, resolvePort(testPortEnv, true, 8081, 7000), "explicit flag beats config")
	assert.Equal(t, 8080, resolvePort(testPortEnv, false, 8080, 0), "flag default without config")

	t.Setenv(testPortEnv, "6000")
	assert.Equal(t, 6000, resolvePort(testPortEnv, true, 8081, 7000), "env beats everything")
}

func TestResolvePort_IgnoresMalformedEnv(t *testing.T) {
	for _, raw := range []string{"abc", "", "-1", "0"} {
		t.Setenv(testPortEnv, raw)
		assert.Equal(t, 8081, resolvePort(testPortEnv, true, 8081, 7000), raw)
		assert.Equal(t, 7000, resolvePort(testPortEnv, false, 8080, 7000), raw)
	}
}

func TestApplyLevel(t *testing.T) {
	level := new(slog.LevelVar)

	applyLevel(level, "debug")
	assert.Equal(t, slog.LevelDebug, level.Level())

	applyLevel(level, "loud")
	assert.Equal(t, slog.LevelDebug, level.Level())

	applyLevel(level, "")
	assert.Equal(t, slog.LevelInfo, level.Level())
}
