package adapters

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	confirmHintStyle  = lipgloss.NewStyle().Faint(true)
)

// ErrOperatorClosed is returned by Confirm after Close.
var ErrOperatorClosed = errors.New("operator closed")

// TerminalOperator asks the person at the terminal to approve actions. A single reader
// goroutine feeds input lines into a channel so a pending prompt can be abandoned when
// the context is cancelled. Close stops the reader once in no longer blocks.
type TerminalOperator struct {
	in        io.Reader
	out       io.Writer
	once      sync.Once
	closeOnce sync.Once
	lines     chan string
	done      chan struct{}
	exited    chan struct{}
}

// NewTerminalOperator reads answers from in and writes prompts to out.
func NewTerminalOperator(in io.Reader, out io.Writer) *TerminalOperator {
	return &TerminalOperator{
		in:     in,
		out:    out,
		lines:  make(chan string),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (o *TerminalOperator) start() {
	go func() {
		defer close(o.exited)
		defer close(o.lines)
		scanner := bufio.NewScanner(o.in)
		for scanner.Scan() {
			select {
			case o.lines <- scanner.Text():
			case <-o.done:
				return
			}
		}
	}()
}

// Close releases the reader goroutine. A line typed while no prompt is pending is dropped.
func (o *TerminalOperator) Close() error {
	o.closeOnce.Do(func() { close(o.done) })
	return nil
}

// Confirm prints the request and blocks for a y/n answer. Anything but "y" or "yes",
// including end of input, is a decline.
func (o *TerminalOperator) Confirm(ctx context.Context, title, message string) (bool, error) {
	select {
	case <-o.done:
		return false, ErrOperatorClosed
	default:
	}
	o.once.Do(o.start)

	fmt.Fprintf(o.out, "\n%s\n%s\n%s", confirmTitleStyle.Render(title), message, confirmHintStyle.Render("Confirm? (y/n): "))

	select {
	case <-ctx.Done():
		fmt.Fprintln(o.out)
		return false, ctx.Err()
	case <-o.done:
		fmt.Fprintln(o.out)
		return false, ErrOperatorClosed
	case line, ok := <-o.lines:
		if !ok {
			fmt.Fprintln(o.out)
			return false, nil
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

// AutoOperator answers every confirmation with a fixed decision.
type AutoOperator struct {
	Approve bool
}

func (a AutoOperator) Confirm(ctx context.Context, _, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return a.Approve, nil
}

var (
	_ ports.Operator = (*TerminalOperator)(nil)
	_ ports.Operator = AutoOperator{}
)
