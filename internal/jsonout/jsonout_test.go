package jsonout

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/openclaude/streamkit/internal/testutil"
)

// TestWriterEmitsOneLinePerEvent verifies the JSON Lines framing and
// the shared request id.
func TestWriterEmitsOneLinePerEvent(testingHandle *testing.T) {
	var buffer bytes.Buffer
	writer := NewWriter(&buffer, "req-1")

	testutil.RequireNoError(testingHandle, writer.Message(json.RawMessage(`{"instructions":"a"}`)), "message event")
	testutil.RequireNoError(testingHandle, writer.Result("a", 1), "result event")

	scanner := bufio.NewScanner(&buffer)
	var lines []map[string]any
	for scanner.Scan() {
		var decoded map[string]any
		testutil.RequireNoError(testingHandle, json.Unmarshal(scanner.Bytes(), &decoded), "each line is standalone JSON")
		lines = append(lines, decoded)
	}

	testutil.RequireEqual(testingHandle, len(lines), 2, "one line per event")
	testutil.RequireEqual(testingHandle, lines[0]["type"], "message", "first event type")
	testutil.RequireEqual(testingHandle, lines[1]["type"], "result", "second event type")
	for _, line := range lines {
		testutil.RequireEqual(testingHandle, line["request_id"], "req-1", "request id on every event")
		testutil.RequireTrue(testingHandle, line["uuid"] != "", "uuid on every event")
	}
}

// TestWriterErrorEventCarriesTaxonomy verifies kind and correlation id
// survive serialization.
func TestWriterErrorEventCarriesTaxonomy(testingHandle *testing.T) {
	var buffer bytes.Buffer
	writer := NewWriter(&buffer, "req-2")

	testutil.RequireNoError(testingHandle, writer.Error("stream_error", "bad thing", "run_123"), "error event")

	var decoded ErrorEvent
	testutil.RequireNoError(testingHandle, json.Unmarshal(buffer.Bytes(), &decoded), "decode error event")
	testutil.RequireEqual(testingHandle, decoded.Kind, "stream_error", "kind tag")
	testutil.RequireEqual(testingHandle, decoded.Message, "bad thing", "message")
	testutil.RequireEqual(testingHandle, decoded.CorrelationID, "run_123", "correlation id")
}
