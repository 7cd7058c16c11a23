package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_KnownEnvironments(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("env %q: unexpected error: %v", env, err)
		}
		if l == nil {
			t.Fatalf("env %q: nil logger", env)
		}
	}
}

func TestNewLogger_UnknownEnvironment(t *testing.T) {
	for _, env := range []string{"", "staging", "docker", "dev"} {
		if _, err := NewLogger(env); err == nil {
			t.Fatalf("env %q: expected error", env)
		}
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled after override")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestFromContext_RoundTrip(t *testing.T) {
	l := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx := ContextWithLogger(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Fatal("expected the stored logger back")
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got == nil {
		t.Fatal("expected a usable fallback logger")
	}
}
