// Package progress renders a terminal progress bar for long enumeration
// runs. The bar is a fixed-width row of '#' (completed) and '-' (remaining)
// followed by a percentage, redrawn in place with a carriage return and
// finished with a newline once the total is reached.
package progress

import (
	"fmt"
	"io"
	"strings"
)

// DefaultWidth is the bar width in characters.
const DefaultWidth = 40

// Bar writes progress updates to an io.Writer. It implements the
// enumerator's Reporter contract. Bar is not safe for concurrent use; the
// enumerator calls it from a single goroutine.
type Bar struct {
	w     io.Writer
	width int
	total uint64
}

// NewBar creates a bar writing to w with the default width.
func NewBar(w io.Writer) *Bar {
	return &Bar{w: w, width: DefaultWidth}
}

// Set fixes the total against which Put renders.
func (b *Bar) Set(total uint64) {
	b.total = total
}

// Put redraws the bar for the given position. While current < total the
// line ends with a carriage return so the next Put overwrites it; once
// current reaches the total the line is committed with a newline.
func (b *Bar) Put(current uint64) {
	if b.total == 0 {
		return
	}
	if current > b.total {
		current = b.total
	}
	filled := int(uint64(b.width) * current / b.total)
	pct := 100 * current / b.total

	end := "\r"
	if current >= b.total {
		end = "\n"
	}
	fmt.Fprintf(b.w, "[%s%s] %d%%%s",
		strings.Repeat("#", filled),
		strings.Repeat("-", b.width-filled),
		pct, end)
}

// Discard is a Reporter that drops all updates.
type Discard struct{}

// Set does nothing.
func (Discard) Set(uint64) {}

// Put does nothing.
func (Discard) Put(uint64) {}
