package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/views/memories"
)

// Options scopes a browsing session.
type Options struct {
	// OwnerID is the user whose memories are browsed.
	OwnerID int64

	// TopK overrides fusion.top_k. Zero uses the configured value.
	TopK int
}

// App is the TUI application following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	view   *memories.View

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates a TUI application with the given ports.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if opts.OwnerID == 0 {
		return nil, ErrInvalidOwner
	}

	s := styles.DefaultStyles()
	view := memories.NewView(s, keymap.DefaultKeyMap(), ports.Retrieval, ports.Indexing, memories.Config{
		OwnerID: opts.OwnerID,
		TopK:    opts.TopK,
	})

	return &App{
		ports:  ports,
		ctx:    context.Background(),
		styles: s,
		view:   view,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.view.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("recall"),
		a.view.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.view.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}

	case messages.Quit:
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.view, cmd = a.view.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	return a.view.View()
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// MemoryView exposes the active view for inspection.
func (a *App) MemoryView() *memories.View {
	return a.view
}

// Ready returns whether the app has received its first window size.
func (a *App) Ready() bool {
	return a.ready
}
