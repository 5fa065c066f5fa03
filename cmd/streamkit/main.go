package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/openclaude/streamkit/internal/config"
	"github.com/openclaude/streamkit/internal/diag"
	"github.com/openclaude/streamkit/internal/retry"
	"github.com/openclaude/streamkit/internal/sse"
	"github.com/openclaude/streamkit/internal/stream"
	"github.com/openclaude/streamkit/internal/streamerr"
)

// version is the CLI build version.
const version = "0.1.0"

// options holds all CLI flags for the tail command.
type options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string
	// Endpoint overrides the configured base URL.
	Endpoint string
	// APIKey overrides the configured bearer token.
	APIKey string
	// Method is the HTTP method for the streaming request.
	Method string
	// Body is an inline JSON request body.
	Body string
	// BodyFile reads the JSON request body from a file.
	BodyFile string
	// Field names the message field holding the document fragment.
	Field string
	// Timeout bounds the whole call including retries; zero disables.
	Timeout time.Duration
	// MaxRetries overrides the configured retry budget; -1 keeps it.
	MaxRetries int
	// Output selects text or json output.
	Output string
	// Plain disables the TUI viewer even on a terminal.
	Plain bool
	// Verbose enables diagnostics logging to stderr.
	Verbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the streamkit CLI.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "streamkit",
		Short:         "Resilient client for server-pushed event streams",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newTailCommand())
	return root
}

// newTailCommand builds the tail subcommand.
func newTailCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "tail <path>",
		Short: "Stream a document from an endpoint and render it as it grows",
		Long: "Tail opens a server-sent event stream at the given path, retries " +
			"transient failures with exponential backoff, reconciles overlapping " +
			"text fragments, and renders the growing document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(cmd.Context(), args[0], opts)
		},
	}
	addTailFlags(cmd.Flags(), opts)
	return cmd
}

// addTailFlags registers the tail command flags.
func addTailFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.ConfigPath, "config", "", "path to the streamkit config file")
	flags.StringVar(&opts.Endpoint, "endpoint", "", "endpoint base URL (overrides config)")
	flags.StringVar(&opts.APIKey, "api-key", "", "bearer token (overrides config)")
	flags.StringVarP(&opts.Method, "method", "X", http.MethodPost, "HTTP method (GET, POST, PUT, DELETE)")
	flags.StringVarP(&opts.Body, "body", "d", "", "inline JSON request body")
	flags.StringVar(&opts.BodyFile, "body-file", "", "file containing the JSON request body")
	flags.StringVar(&opts.Field, "field", "instructions", "message field holding the document fragment")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "bound for the whole call including retries (0 = config value)")
	flags.IntVar(&opts.MaxRetries, "max-retries", -1, "retry budget after the first attempt (-1 = config value)")
	flags.StringVarP(&opts.Output, "output", "o", "text", "output format: text or json")
	flags.BoolVar(&opts.Plain, "plain", false, "disable the live viewer even on a terminal")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log diagnostics to stderr")
}

// runTail resolves configuration and dispatches to an output mode.
func runTail(ctx context.Context, path string, opts *options) error {
	endpoint, err := resolveEndpoint(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client := &stream.Client{
		Transport: sse.NewClient(endpoint.BaseURL, &http.Client{}),
		Headers:   headerProvider(endpoint),
		Reporter:  diag.NewReporter(logger),
	}

	body, err := requestBody(opts)
	if err != nil {
		return err
	}

	streamOpts := streamOptions(endpoint, opts, logger)

	// Ctrl-C cancels the call cooperatively; the session tears the
	// connection down before the process exits.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	switch {
	case opts.Output == "json":
		return runJSON(ctx, client, path, body, streamOpts, opts)
	case opts.Output != "text":
		return fmt.Errorf("unknown output format %q", opts.Output)
	case !opts.Plain && term.IsTerminal(int(os.Stdout.Fd())):
		return runViewer(ctx, client, path, body, streamOpts, opts)
	default:
		return runPlain(ctx, client, path, body, streamOpts, opts)
	}
}

// resolveEndpoint loads the config file and applies flag overrides.
func resolveEndpoint(opts *options) (*config.Endpoint, error) {
	endpoint, err := config.Load(opts.ConfigPath)
	if err != nil {
		if !errors.Is(err, config.ErrEndpointMissing) || opts.Endpoint == "" {
			return nil, err
		}
		endpoint = config.Defaults()
	}
	if opts.Endpoint != "" {
		endpoint.BaseURL = opts.Endpoint
	}
	if opts.APIKey != "" {
		endpoint.APIKey = opts.APIKey
	}
	if endpoint.BaseURL == "" {
		return nil, config.ErrEndpointMissing
	}
	return endpoint, nil
}

// newLogger builds the diagnostics logger. Quiet mode still captures
// errors; verbose mode adds development-style detail.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// headerProvider supplies request headers for every attempt.
func headerProvider(endpoint *config.Endpoint) stream.HeaderFunc {
	return func(ctx context.Context) (http.Header, error) {
		header := http.Header{}
		if endpoint.APIKey != "" {
			header.Set("Authorization", "Bearer "+endpoint.APIKey)
		}
		return header, nil
	}
}

// requestBody parses the inline or file-based request body.
func requestBody(opts *options) (map[string]any, error) {
	raw := []byte(opts.Body)
	if opts.BodyFile != "" {
		if opts.Body != "" {
			return nil, errors.New("--body and --body-file are mutually exclusive")
		}
		contents, err := os.ReadFile(opts.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		raw = contents
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse request body: %w", err)
	}
	return body, nil
}

// streamOptions merges configured retry tuning with flag overrides.
func streamOptions(endpoint *config.Endpoint, opts *options, logger *zap.Logger) stream.Options {
	retryOpts := retry.Options{
		MaxRetries:    endpoint.MaxRetries,
		InitialDelay:  endpoint.InitialDelay(),
		MaxDelay:      endpoint.MaxDelay(),
		BackoffFactor: endpoint.BackoffFactor,
		OnRetry: func(err error, attempt int, delay time.Duration) {
			logger.Warn("retrying stream",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
	}
	if opts.MaxRetries >= 0 {
		retryOpts.MaxRetries = opts.MaxRetries
	}

	timeout := endpoint.Timeout()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	return stream.Options{
		Timeout: timeout,
		Retry:   retryOpts,
	}
}

// fragmentOf extracts the document fragment from a message payload.
func fragmentOf(message map[string]any, field string) string {
	fragment, _ := message[field].(string)
	return fragment
}

// exitError renders a classified failure for the text modes.
func exitError(err error) error {
	var classified *streamerr.Error
	if errors.As(err, &classified) && classified.Silent {
		return fmt.Errorf("the stream failed without an explanation (kind %s)", classified.Kind)
	}
	return err
}
