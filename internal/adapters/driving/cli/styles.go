package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// palette matches the colours of the terminal theme.
var (
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourMuted   = lipgloss.Color("#6C7086")
	colourPrimary = lipgloss.Color("#7C3AED")
)

// printer styles output only when it goes to a terminal.
type printer struct {
	styled bool

	title  lipgloss.Style
	muted  lipgloss.Style
	bucket map[domain.Bucket]lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		styled: isTerminal(w),
		title:  lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		muted:  lipgloss.NewStyle().Foreground(colourMuted),
		bucket: map[domain.Bucket]lipgloss.Style{
			domain.BucketHigh:   lipgloss.NewStyle().Bold(true).Foreground(colourSuccess),
			domain.BucketMiddle: lipgloss.NewStyle().Foreground(colourWarning),
			domain.BucketLow:    lipgloss.NewStyle().Foreground(colourMuted),
		},
	}
}

func (p *printer) Title(s string) string {
	if !p.styled {
		return s
	}
	return p.title.Render(s)
}

func (p *printer) Muted(s string) string {
	if !p.styled {
		return s
	}
	return p.muted.Render(s)
}

// Bucket renders a fixed-width bucket label.
func (p *printer) Bucket(b domain.Bucket) string {
	label := "[" + b.String() + "]"
	if !p.styled {
		return label
	}
	return p.bucket[b].Width(8).Render(label)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
