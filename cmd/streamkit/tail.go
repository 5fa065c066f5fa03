package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/openclaude/streamkit/internal/jsonout"
	"github.com/openclaude/streamkit/internal/reconcile"
	"github.com/openclaude/streamkit/internal/stream"
	"github.com/openclaude/streamkit/internal/streamerr"
)

// bodyArg converts an optional body map into the stream call argument,
// avoiding a typed-nil interface that would serialize as JSON null.
func bodyArg(body map[string]any) any {
	if body == nil {
		return nil
	}
	return body
}

// runPlain streams without a TUI: progress on stderr, final document
// on stdout.
func runPlain(
	ctx context.Context,
	client *stream.Client,
	path string,
	body map[string]any,
	streamOpts stream.Options,
	opts *options,
) error {
	state := &reconcile.State{}
	frames := 0

	_, err := stream.Call(ctx, client, path, opts.Method, bodyArg(body),
		func(message map[string]any) {
			frames++
			state.Apply(fragmentOf(message, opts.Field))
			fmt.Fprintf(os.Stderr, "\rreceived %d frame(s)", frames)
		}, streamOpts)
	if frames > 0 {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return exitError(err)
	}

	output := state.Accumulated
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if rendered, renderErr := renderMarkdown(output, terminalWidth()); renderErr == nil {
			output = rendered
		}
	}
	fmt.Println(output)
	return nil
}

// runJSON streams in JSON Lines mode: one event per frame, then a
// terminal result or error event.
func runJSON(
	ctx context.Context,
	client *stream.Client,
	path string,
	body map[string]any,
	streamOpts stream.Options,
	opts *options,
) error {
	writer := jsonout.NewWriter(os.Stdout, uuid.NewString())
	state := &reconcile.State{}
	frames := 0

	_, err := stream.Call(ctx, client, path, opts.Method, bodyArg(body),
		func(message map[string]any) {
			frames++
			state.Apply(fragmentOf(message, opts.Field))
			if raw, marshalErr := json.Marshal(message); marshalErr == nil {
				_ = writer.Message(raw)
			}
		}, streamOpts)
	if err != nil {
		kind, message, correlationID := "", err.Error(), ""
		var classified *streamerr.Error
		if errors.As(err, &classified) {
			kind = string(classified.Kind)
			message = classified.Message
			correlationID = classified.CorrelationID
		}
		_ = writer.Error(kind, message, correlationID)
		return err
	}
	return writer.Result(state.Accumulated, frames)
}

// terminalWidth reports the stdout width, with a sane fallback.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
