package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/openclaude/streamkit/internal/reconcile"
	"github.com/openclaude/streamkit/internal/stream"
)

// streamFrameMsg carries an updated document snapshot into the UI loop.
type streamFrameMsg struct {
	// Document is the reconciled text so far.
	Document string
	// Frames counts the messages received so far.
	Frames int
}

// streamDoneMsg signals a cleanly settled call.
type streamDoneMsg struct {
	// Document is the final reconciled text.
	Document string
	// Frames counts the messages received.
	Frames int
}

// streamFailedMsg reports the classified terminal failure.
type streamFailedMsg struct {
	// Err is the classified streaming error.
	Err error
}

var (
	// titleStyle renders the viewer header.
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	// statusStyle renders the bottom status line.
	statusStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	// errorStyle highlights terminal failures.
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Padding(0, 1)
)

// viewerModel drives the live document viewer.
type viewerModel struct {
	// path labels the streamed endpoint in the header.
	path string
	// view renders the document.
	view viewport.Model
	// loading spins while the stream is active.
	loading spinner.Model
	// renderer formats the document as markdown, when available.
	renderer *glamour.TermRenderer
	// document is the latest reconciled text.
	document string
	// frames counts received messages.
	frames int
	// width tracks the terminal width.
	width int
	// height tracks the terminal height.
	height int
	// ready reports whether the viewport has been sized.
	ready bool
	// done reports a cleanly settled call.
	done bool
	// err holds the terminal failure, when any.
	err error
	// cancel aborts the in-flight call.
	cancel context.CancelFunc
}

// newViewerModel builds the initial viewer state.
func newViewerModel(path string, cancel context.CancelFunc) viewerModel {
	loading := spinner.New()
	loading.Spinner = spinner.Dot
	return viewerModel{
		path:    path,
		loading: loading,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m viewerModel) Init() tea.Cmd {
	return m.loading.Tick
}

// Update handles UI and stream events.
func (m viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		bodyHeight := typed.Height - 2
		if bodyHeight < 1 {
			bodyHeight = 1
		}
		if !m.ready {
			m.view = viewport.New(typed.Width, bodyHeight)
			m.ready = true
		} else {
			m.view.Width = typed.Width
			m.view.Height = bodyHeight
		}
		m.renderer = newMarkdownRenderer(typed.Width)
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch typed.String() {
		case "q", "esc", "ctrl+c":
			m.cancel()
			if m.done || m.err != nil {
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.done || m.err != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.loading, cmd = m.loading.Update(typed)
		return m, cmd

	case streamFrameMsg:
		m.document = typed.Document
		m.frames = typed.Frames
		m.refreshContent()
		return m, nil

	case streamDoneMsg:
		m.document = typed.Document
		m.frames = typed.Frames
		m.done = true
		return m, tea.Quit

	case streamFailedMsg:
		m.err = typed.Err
		return m, tea.Quit
	}

	if m.ready {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refreshContent re-renders the document into the viewport, pinned to
// the bottom so the newest text stays visible.
func (m *viewerModel) refreshContent() {
	if !m.ready {
		return
	}
	content := m.document
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(m.document); err == nil {
			content = rendered
		}
	}
	m.view.SetContent(content)
	m.view.GotoBottom()
}

// View renders the header, document, and status line.
func (m viewerModel) View() string {
	if !m.ready {
		return statusStyle.Render(m.loading.View() + " connecting…")
	}

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render("stream failed: " + m.err.Error())
	case m.done:
		status = statusStyle.Render(fmt.Sprintf("done • %d frame(s)", m.frames))
	default:
		status = statusStyle.Render(fmt.Sprintf("%s streaming • %d frame(s) • q to cancel", m.loading.View(), m.frames))
	}

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("streamkit tail " + m.path))
	builder.WriteString("\n")
	builder.WriteString(m.view.View())
	builder.WriteString("\n")
	builder.WriteString(status)
	return builder.String()
}

// newMarkdownRenderer builds a glamour renderer for the given width,
// or nil when rendering is unavailable.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	wrap := width - 2
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return renderer
}

// renderMarkdown formats a final document for terminal output.
func renderMarkdown(document string, width int) (string, error) {
	renderer := newMarkdownRenderer(width)
	if renderer == nil {
		return "", fmt.Errorf("markdown renderer unavailable")
	}
	return renderer.Render(document)
}

// runViewer streams with the live TUI viewer and prints the final
// document once the alternate screen closes.
func runViewer(
	ctx context.Context,
	client *stream.Client,
	path string,
	body map[string]any,
	streamOpts stream.Options,
	opts *options,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newViewerModel(path, cancel), tea.WithAltScreen())

	state := &reconcile.State{}
	go func() {
		frames := 0
		_, err := stream.Call(ctx, client, path, opts.Method, bodyArg(body),
			func(message map[string]any) {
				frames++
				document := state.Apply(fragmentOf(message, opts.Field))
				program.Send(streamFrameMsg{Document: document, Frames: frames})
			}, streamOpts)
		if err != nil {
			program.Send(streamFailedMsg{Err: err})
			return
		}
		program.Send(streamDoneMsg{Document: state.Accumulated, Frames: frames})
	}()

	final, err := program.Run()
	if err != nil {
		return err
	}

	model, ok := final.(viewerModel)
	if !ok {
		return nil
	}
	if model.err != nil {
		return exitError(model.err)
	}
	if model.document != "" {
		if rendered, renderErr := renderMarkdown(model.document, terminalWidth()); renderErr == nil {
			fmt.Print(rendered)
		} else {
			fmt.Println(model.document)
		}
	}
	return nil
}
