// Package report renders stack inspection results.
//
// The layout is deliberately terse: a frame header with the source location,
// the pc/sp/fp registers, then the in-scope symbols sorted largest first so
// oversized stack objects stand out.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mikesart/stack-inspector/pkg/color"
	"github.com/mikesart/stack-inspector/pkg/scope"
)

const regIndent = "           "

// Writer renders frames one after another to a single output stream.
type Writer struct {
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Begin prints the blank line that opens a report.
func (w *Writer) Begin() {
	fmt.Fprintln(w.out)
}

// FrameHeader prints the numbered header of a frame with source information.
func (w *Writer) FrameHeader(index int, function, file string, line int) {
	fmt.Fprintf(w.out, "  %s %s @ %s:%d\n",
		color.BoldText(fmt.Sprintf("#%-3d", index)),
		color.GreenText(function),
		file, line)
}

// FrameHeaderUnknown prints the header of a frame the debugger could not map
// back to a source location.
func (w *Writer) FrameHeaderUnknown(index int) {
	fmt.Fprintf(w.out, "  %s Could not retrieve frame information\n",
		color.BoldText(fmt.Sprintf("#%-3d", index)))
}

// Registers prints the frame's program counter, stack pointer, and frame
// pointer.
func (w *Writer) Registers(pc, sp, fp uint64) {
	fmt.Fprintf(w.out, "%spc: 0x%x\n%ssp: 0x%x\n%sfp: 0x%x\n",
		regIndent, pc,
		regIndent, sp,
		regIndent, fp)
}

// BlockFailure notes that scope information for the frame was unavailable.
func (w *Writer) BlockFailure() {
	fmt.Fprintln(w.out, "Could not retrieve block information")
}

// Symbols prints one line per symbol followed by a separating blank line.
// Sizes are grouped with commas and right-aligned so the column scans
// top to bottom.
func (w *Writer) Symbols(syms []scope.Symbol) {
	for _, sym := range syms {
		fmt.Fprintf(w.out, "    %s   %s (%s)\n",
			color.BoldText(fmt.Sprintf("%14s", groupDigits(sym.Size))),
			sym.Name,
			color.CyanText(sym.Type))
	}
	fmt.Fprintln(w.out)
}

// NoStack prints the single line reported when there is no stack to walk.
func (w *Writer) NoStack() {
	fmt.Fprintln(w.out, "[stack-inspector] could not retrieve frame information (no stack).")
}

// groupDigits formats n in decimal with comma thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) > 3 {
		var b strings.Builder
		lead := len(s) % 3
		if lead > 0 {
			b.WriteString(s[:lead])
		}
		for i := lead; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}
