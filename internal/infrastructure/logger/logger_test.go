package logger

import (
	"testing"

	"github.com/rs/zerolog"

	"wachat-server/internal/config"
)

func TestNewAppliesConfiguredLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"uppercase is accepted", "WARN", zerolog.WarnLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
		{"unknown defaults to info", "loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(&config.Config{
				ServiceName: "chat-api",
				Environment: "test",
				LogLevel:    tt.logLevel,
			})
			if got := log.GetLevel(); got != tt.want {
				t.Errorf("GetLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
