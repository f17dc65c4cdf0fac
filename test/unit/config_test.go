package unit

import (
	"testing"
	"time"

	"github.com/collabpad/collabpad/internal/server"
	"github.com/sirupsen/logrus"
)

// TestNewConfigDefaults verifies the default configuration values.
func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	if cfg.Port != ":8080" {
		t.Errorf("Expected default port :8080, got %s", cfg.Port)
	}
	if cfg.MaxMessageSize != 64*1024 {
		t.Errorf("Expected default max message size 65536, got %d", cfg.MaxMessageSize)
	}
	if cfg.RoomGracePeriod != 5*time.Minute {
		t.Errorf("Expected default grace period 5m, got %v", cfg.RoomGracePeriod)
	}
	if cfg.RateLimit.Burst <= 0 {
		t.Errorf("Expected positive rate limit burst, got %d", cfg.RateLimit.Burst)
	}
}

// TestNewConfigFromEnv verifies environment variables override defaults.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ROOM_GRACE_PERIOD", "90s")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		t.Fatalf("NewConfigFromEnv failed: %v", err)
	}

	if cfg.Port != ":9999" {
		t.Errorf("Expected port :9999, got %s", cfg.Port)
	}
	if cfg.RoomGracePeriod != 90*time.Second {
		t.Errorf("Expected grace period 90s, got %v", cfg.RoomGracePeriod)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected max message size 1024, got %d", cfg.MaxMessageSize)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 allowed origins, got %v", cfg.AllowedOrigins)
	}
}

// TestSetConfigSanitizes verifies applying a partial or invalid
// configuration does not panic and that a nil reset is accepted. Invalid
// values are replaced with defaults when the config is applied.
func TestSetConfigSanitizes(t *testing.T) {
	defer server.SetConfig(nil)

	server.SetConfig(&server.Config{
		Port:            "",
		MaxMessageSize:  -1,
		RoomGracePeriod: -time.Second,
		AllowedOrigins:  []string{"", "not a url", "*"},
	})

	server.SetConfig(nil)
}

// TestParseLogLevel verifies level parsing falls back to info for
// unrecognized values.
func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tc := range cases {
		if got := server.ParseLogLevel(tc.in); got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
