package layout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompt asks on out whether to replace the occupant and reads y/N from in.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) ConfirmReplace(_ context.Context, occupant Occupant) (bool, error) {
	fmt.Fprintf(p.out, "Slot %d is taken by %q. Replace it? [y/N]: ", occupant.Position, occupant.Label)

	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
