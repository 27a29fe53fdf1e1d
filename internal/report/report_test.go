package report

import (
	"errors"
	"testing"
)

func TestGenerationErrorMessage(t *testing.T) {
	base := errors.New("builder timeout")
	tests := []struct {
		name string
		err  *GenerationError
		want string
	}{
		{"hour", &GenerationError{DJ: "Ava Stone", Hour: Hour(7), Stage: "build", Err: base}, "Ava Stone hour 7 (build): builder timeout"},
		{"feature", &GenerationError{DJ: "Ava Stone", FeatureType: "Artist Spotlight", Err: base}, "Ava Stone Artist Spotlight: builder timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if !errors.Is(tt.err, base) {
				t.Fatal("expected wrapped error")
			}
		})
	}
}

func TestProtectRecoversPanic(t *testing.T) {
	err := Protect(func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if len(pe.Stack) == 0 {
		t.Fatal("expected stack trace")
	}
}

func TestProtectPassesThroughErrors(t *testing.T) {
	want := errors.New("plain")
	if err := Protect(func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected plain error, got %v", err)
	}
}
