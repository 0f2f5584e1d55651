package capture

import (
	"errors"
	"strings"
	"testing"
)

func TestInteractionError_Message(t *testing.T) {
	cause := errors.New("timeout")

	err := interactionErr("hide element", "#nav", cause)
	if got := err.Error(); !strings.Contains(got, "hide element") || !strings.Contains(got, "#nav") {
		t.Errorf("message missing op or selector: %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}

	err = interactionErr("screenshot", "", cause)
	if got := err.Error(); strings.Contains(got, `""`) {
		t.Errorf("empty selector rendered: %q", got)
	}
}

func TestCaptureError_ContextAndCause(t *testing.T) {
	cause := errors.New("bad dimensions")

	err := captureErr("stitch header and footer captures", cause, "selector", "#feed", "format", "png")
	var cerr *CaptureError
	if !errors.As(err, &cerr) {
		t.Fatalf("error: got %T, want *CaptureError", err)
	}
	if cerr.Context["selector"] != "#feed" || cerr.Context["format"] != "png" {
		t.Errorf("context: got %v", cerr.Context)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	msg := err.Error()
	for _, want := range []string{"stitch", "selector=#feed", "format=png", "bad dimensions"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %q", want, msg)
		}
	}
}
