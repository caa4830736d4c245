package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func TestWithComponentDoesNotDuplicateKey(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf).With(FieldUserID, "1").WithComponent(ComponentFetch)
	l.Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected a single component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=fetch") || !strings.Contains(out, "user_id=1") {
		t.Fatalf("missing attributes in %q", out)
	}
	if l.Component() != ComponentFetch {
		t.Fatalf("component = %q", l.Component())
	}
}

func TestLogFieldsSorted(t *testing.T) {
	got := NewFields().WithUser("u").WithError(errors.New("boom")).WithError(nil).ToSlice()
	want := []any{FieldError, "boom", FieldUserID, "u"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMiddlewareAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	var fromCtx *Logger
	h := Middleware(l)(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?y=1", nil))

	if fromCtx == nil || fromCtx.Component() != ComponentApp {
		t.Fatalf("expected logger in context, got %+v", fromCtx)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "status_code=404", "path=/x", "component=http"} {
		if !strings.Contains(out, want) {
			t.Fatalf("access log %q missing %q", out, want)
		}
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected default logger: %+v", l)
	}
}
