package recovery

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValue(t *testing.T) {
	got, err := Value(discardLogger(), "ok", func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("expected 7, got %d (%v)", got, err)
	}

	got, err = Value(discardLogger(), "boom", func() (int, error) { panic("bad input") })
	if got != 0 {
		t.Errorf("expected zero value after panic, got %d", got)
	}
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Operation != "boom" || pe.Value != "bad input" {
		t.Errorf("unexpected panic error %#v", pe)
	}
	if len(pe.Stack) == 0 {
		t.Error("expected captured stack")
	}
}

func TestDo(t *testing.T) {
	want := errors.New("plain failure")
	if err := Do(discardLogger(), "fail", func() error { return want }); err != want {
		t.Errorf("expected error passed through, got %v", err)
	}
	if err := Do(nil, "boom", func() error { panic(42) }); !errors.Is(err, ErrPanic) {
		t.Errorf("expected ErrPanic, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	err := Do(discardLogger(), "boom", func() error { panic("x") })
	st, ok := status.FromError(Status(err))
	if !ok || st.Code() != codes.Internal {
		t.Errorf("expected Internal status, got %v", err)
	}

	plain := errors.New("plain")
	if Status(plain) != plain {
		t.Error("expected non-panic error unchanged")
	}
}
