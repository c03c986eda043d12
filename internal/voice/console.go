package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Console is a typed-input, printed-output conversation on a terminal.
type Console struct {
	in   io.Reader
	out  io.Writer
	name string

	assistantStyle lipgloss.Style
	promptStyle    lipgloss.Style

	once      sync.Once
	closeOnce sync.Once
	lines     chan string
	done      chan struct{} // closed when the reader exits
	closed    chan struct{} // closed by Close
	err       error

	mu sync.Mutex // serialises writes
}

// NewConsole creates a console reading from in and writing to out. name is
// the label printed before each reply.
func NewConsole(in io.Reader, out io.Writer, name string) *Console {
	if name == "" {
		name = "Jarvis"
	}

	r := lipgloss.NewRenderer(out)
	return &Console{
		in:             in,
		out:            out,
		name:           name,
		assistantStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		promptStyle:    r.NewStyle().Foreground(lipgloss.Color("241")),
		lines:          make(chan string),
		done:           make(chan struct{}),
		closed:         make(chan struct{}),
	}
}

// Speak prints text with the assistant label.
func (c *Console) Speak(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "%s %s\n", c.assistantStyle.Render(c.name+":"), text)
	return err
}

// Listen prints a prompt and waits for one line. A blank line counts as
// nothing heard. End of input, a read error and Close all return ErrClosed.
func (c *Console) Listen(ctx context.Context) (string, bool, error) {
	c.once.Do(func() { go c.readLines() })

	c.mu.Lock()
	fmt.Fprint(c.out, c.promptStyle.Render("You: "))
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line := <-c.lines:
		text := Normalize(line)
		return text, text != "", nil
	case <-c.done:
		if c.err != nil {
			return "", false, fmt.Errorf("%w: read console: %v", ErrClosed, c.err)
		}
		return "", false, ErrClosed
	case <-c.closed:
		return "", false, ErrClosed
	}
}

// Close stops the line reader once its pending line, if any, is dropped.
// A read blocked on the underlying reader stays blocked until it returns.
func (c *Console) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// readLines feeds lines to Listen so a blocked read does not hold up
// context cancellation.
func (c *Console) readLines() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case c.lines <- scanner.Text():
		case <-c.closed:
			return
		}
	}
	c.err = scanner.Err()
}
