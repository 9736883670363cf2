package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelsByEnv(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, zerolog.DebugLevel, newWithWriter("development", "api", "", &buf).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newWithWriter("production", "api", "", &buf).GetLevel())
	assert.Equal(t, zerolog.WarnLevel, newWithWriter("production", "api", " WARN ", &buf).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newWithWriter("production", "api", "loud", &buf).GetLevel())
}

func TestNew_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("production", "tracker-api", "", &buf)
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"service":"tracker-api"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
