package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Progress reports per-file completion of a batch on a progress bar. Done is
// safe to call from concurrent workers.
type Progress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	failed []string
	mu     sync.Mutex
}

// NewProgress creates a progress bar for total items.
func NewProgress(writer io.Writer, total int, description string) *Progress {
	if writer == nil {
		writer = os.Stdout
	}
	p := &Progress{writer: writer}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Done advances the bar by one item and remembers failures.
func (p *Progress) Done(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failed = append(p.failed, fmt.Sprintf("%s: %v", name, err))
	}
	if addErr := p.bar.Add(1); addErr != nil {
		slog.Warn("Failed to update progress bar", "error", addErr)
	}
}

// Failures returns the failure lines recorded so far.
func (p *Progress) Failures() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.failed))
	copy(out, p.failed)
	return out
}

// Finish completes the bar and lists failures.
func (p *Progress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
	for _, line := range p.Failures() {
		if _, err := fmt.Fprintln(p.writer, FormatError(line)); err != nil {
			slog.Warn("Failed to write failure line", "error", err)
		}
	}
}
