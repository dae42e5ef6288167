package containerproxy_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/ow-runtime/containerproxy"
)

// panicTestCase defines a test case for option validation panic tests.
type panicTestCase struct {
	name     string
	panics   bool
	panicMsg string
	fn       func()
}

// requirePanics calls fn and verifies it panics (or not) with the expected message.
func requirePanics(t *testing.T, shouldPanic bool, wantMsg string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		switch {
		case shouldPanic && r == nil:
			t.Fatal("expected panic but didn't get one")
		case !shouldPanic && r != nil:
			t.Fatalf("unexpected panic: %v", r)
		case shouldPanic:
			if msg := fmt.Sprint(r); msg != wantMsg {
				t.Fatalf("expected panic message %q, got %q", wantMsg, msg)
			}
		}
	}()
	fn()
}

func runPanicTests(t *testing.T, tests []panicTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requirePanics(t, tt.panics, tt.panicMsg, tt.fn)
		})
	}
}

func TestWithPauseGracePanicsOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "zero",
			panics:   true,
			panicMsg: "containerproxy: pause grace must be greater than 0, got 0s",
			fn:       func() { containerproxy.WithPauseGrace(0) },
		},
		{
			name:     "negative",
			panics:   true,
			panicMsg: "containerproxy: pause grace must be greater than 0, got -1s",
			fn:       func() { containerproxy.WithPauseGrace(-1 * time.Second) },
		},
		{name: "valid", fn: func() { containerproxy.WithPauseGrace(time.Second) }},
	})
}

func TestWithShutdownConcurrencyPanicsOnInvalid(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "zero",
			panics:   true,
			panicMsg: "containerproxy: shutdown concurrency must be greater than 0, got 0",
			fn:       func() { containerproxy.WithShutdownConcurrency(0) },
		},
		{name: "valid", fn: func() { containerproxy.WithShutdownConcurrency(4) }},
	})
}

func TestWithFactoryPanicsOnNil(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "nil",
			panics:   true,
			panicMsg: "containerproxy: factory must not be nil",
			fn:       func() { containerproxy.WithFactory(nil) },
		},
	})
}

func TestWithNotifyPanicsOnNil(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "nil",
			panics:   true,
			panicMsg: "containerproxy: notify callback must not be nil",
			fn:       func() { containerproxy.WithNotify(nil) },
		},
	})
}

func TestNewPoolPanicsWithoutRequiredCollaborators(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected NewPool to panic with no required collaborators configured")
		}
	}()
	containerproxy.NewPool()
}
