package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ag-tools/internal/events"

	"github.com/stretchr/testify/require"
)

func finishedEvent(status string) events.Event {
	kind := events.ToolCallFinished
	if status == "error" {
		kind = events.ToolCallFailed
	}
	return events.Event{Type: kind, Timestamp: time.Now(), Payload: events.ToolCallFinishedPayload{
		CallID:     "c1",
		ToolName:   "exec",
		Status:     status,
		Preview:    "line one\nline two",
		LineCount:  2,
		ByteCount:  17,
		Truncated:  true,
		DurationMs: 42,
	}}
}

func TestStdoutRendererSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewStdoutRenderer(&buf, false, false)

	r.Emit(events.Event{Type: events.ToolCallStarted, Payload: events.ToolCallStartedPayload{ToolName: "exec"}})
	r.Emit(finishedEvent("success"))
	r.Emit(finishedEvent("error"))

	require.Equal(t,
		"tool: exec ok (42ms, 2 lines, 17 bytes, truncated)\n"+
			"tool: exec err (42ms, 2 lines, 17 bytes, truncated)\n",
		buf.String())
}

func TestStdoutRendererVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewStdoutRenderer(&buf, true, false)

	r.Emit(events.Event{Type: events.ToolCallStarted, Payload: events.ToolCallStartedPayload{CallID: "c1", ToolName: "exec", Input: `{"command":"ls"}`}})
	r.Emit(finishedEvent("success"))

	out := buf.String()
	require.Contains(t, out, "tool: exec start [c1]\n")
	require.Contains(t, out, `input: {"command":"ls"}`)
	require.Contains(t, out, "preview:\n  line one\n  line two\n")
}

func TestStdoutRendererQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := NewStdoutRenderer(&buf, true, true)

	r.Emit(finishedEvent("success"))

	require.Empty(t, buf.String())
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONRenderer(&buf)

	r.Emit(finishedEvent("success"))
	r.Emit(finishedEvent("error"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &decoded))
	require.Equal(t, "ToolCallFailed", decoded.Type)
	require.Equal(t, "exec", decoded.Payload["tool_name"])
}

func TestFanout(t *testing.T) {
	var got []string
	emit := Fanout(
		func(e events.Event) { got = append(got, "a:"+string(e.Type)) },
		nil,
		func(e events.Event) { got = append(got, "b:"+string(e.Type)) },
	)

	emit(events.Event{Type: events.ToolCallStarted})

	require.Equal(t, []string{"a:ToolCallStarted", "b:ToolCallStarted"}, got)
}
