package stream

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/openclaude/streamkit/internal/diag"
	"github.com/openclaude/streamkit/internal/streamerr"
)

// correlationKey is the envelope field linking an error payload to the
// server-side unit of work that produced it.
const correlationKey = "task_run_id"

// Event is the classified outcome of one stream frame: a verbatim
// message payload, or a terminal failure.
type Event struct {
	// Message is the raw frame when the event is a message. The caller
	// decodes it; the classifier performs no shape validation.
	Message json.RawMessage
	// Err is the classified failure when the frame is not a message.
	Err error
}

// Classify decodes one transport frame into an Event. Parse, format,
// and stream failures are reported to the diagnostics reporter before
// being returned.
func Classify(ctx context.Context, raw []byte, reporter diag.Reporter) Event {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		classified := streamerr.NewParse(raw, err)
		reporter.CaptureError(ctx, classified,
			zap.String("payload", streamerr.Truncate(string(raw))))
		return Event{Err: classified}
	}

	record, ok := decoded.(map[string]any)
	if !ok {
		classified := streamerr.NewInvalidFormat(raw)
		reporter.CaptureError(ctx, classified,
			zap.String("payload", streamerr.Truncate(string(raw))))
		return Event{Err: classified}
	}

	errValue, hasError := record["error"]
	if !hasError {
		return Event{Message: json.RawMessage(raw)}
	}

	message, silent := errorMessage(errValue)
	correlationID, _ := record[correlationKey].(string)
	classified := streamerr.NewStream(message, silent, correlationID)
	reporter.CaptureError(ctx, classified,
		zap.String("correlation_id", correlationID),
		zap.Bool("silent", classified.Silent))
	return Event{Err: classified}
}

// errorMessage extracts a human-readable message from an error payload.
// A payload carrying neither a string error nor a nested string message
// is silent: something failed but no explanation was supplied.
func errorMessage(errValue any) (message string, silent bool) {
	switch value := errValue.(type) {
	case string:
		return value, false
	case map[string]any:
		if nested, ok := value["message"].(string); ok {
			return nested, false
		}
	}
	return "", true
}
