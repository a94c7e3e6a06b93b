package log

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/taskdeck/internal/pubsub"
)

func TestLog_WritesFormattedLine(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	Info(CatSession, "login succeeded", "identity", "u1", "role", "admin")

	line := buf.String()
	require.Contains(t, line, "[INFO] [session] login succeeded identity=u1 role=admin")
	require.True(t, strings.HasSuffix(line, "\n"))
}

func TestLog_OddFieldCountMarksMissingValue(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	Warn(CatTransport, "odd", "status")

	require.Contains(t, buf.String(), "status=<missing>")
}

func TestLog_MinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	SetMinLevel(LevelWarn)
	Debug(CatTasks, "hidden")
	Info(CatTasks, "hidden too")
	Error(CatTasks, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestLog_DisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	SetEnabled(false)
	Error(CatStore, "nope")

	require.Empty(t, buf.String())
}

func TestLog_ErrorErrAppendsError(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	ErrorErr(CatStore, "write failed", errors.New("disk full"), "key", "credential")
	ErrorErr(CatStore, "nil error", nil)

	require.Contains(t, buf.String(), "key=credential error=disk full")
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestLog_NoLoggerIsSafe(t *testing.T) {
	Reset()
	require.NotPanics(t, func() {
		Debug(CatUI, "no logger")
		SetEnabled(true)
		SetMinLevel(LevelError)
	})
	require.Nil(t, NewListener(context.Background()))
}

func TestLog_ListenerReceivesLines(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Info(CatCache, "cache hit", "key", "doc:t1")

	event, ok := listener.Listen()().(pubsub.Event[string])
	require.True(t, ok)
	require.Contains(t, event.Payload, "cache hit key=doc:t1")
}

func TestRedact(t *testing.T) {
	require.Equal(t, "<none>", Redact(""))
	require.Equal(t, "<redacted len=3>", Redact("abc"))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelInfo, ParseLevel("INFO"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelDebug, ParseLevel("whatever"))
}
