package capture

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned when encoding to a format the encoder
// does not know.
var ErrUnsupportedFormat = errors.New("capture: unsupported image format")

// InteractionError wraps a failure surfaced by the browser driver during a
// scroll, visibility, or screenshot operation, with the operation name and,
// where one is involved, the selector.
type InteractionError struct {
	Op       string
	Selector string
	Err      error
}

func (e *InteractionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("capture: %s %q: %v", e.Op, e.Selector, e.Err)
	}
	return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

func interactionErr(op, selector string, err error) error {
	return &InteractionError{Op: op, Selector: selector, Err: err}
}

// CaptureError is a failure during a capture strategy not attributable to a
// single browser interaction, such as a stitching or encoding failure. The
// context map is fixed at construction.
type CaptureError struct {
	Msg     string
	Context map[string]string
	Err     error
}

func (e *CaptureError) Error() string {
	var b strings.Builder
	b.WriteString("capture: ")
	b.WriteString(e.Msg)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Context[k])
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CaptureError) Unwrap() error { return e.Err }

func captureErr(msg string, err error, kv ...string) error {
	e := &CaptureError{Msg: msg, Err: err}
	if len(kv) > 0 {
		e.Context = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Context[kv[i]] = kv[i+1]
		}
	}
	return e
}
