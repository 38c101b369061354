package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{" WARN ", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetup(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	if err := Setup("warn", &buf); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	log.Info().Msg("hidden")
	log.Warn().Str("subject", "Biology").Msg("shown")

	out := buf.String()
	if bytes.Contains([]byte(out), []byte("hidden")) {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("shown")) || !bytes.Contains([]byte(out), []byte("Biology")) {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestSetup_BadLevel(t *testing.T) {
	if err := Setup("chatty", &bytes.Buffer{}); err == nil {
		t.Fatal("Setup() accepted an invalid level")
	}
}
