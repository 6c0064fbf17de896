// Package inspector drives one stack inspection pass: it connects to the
// debugging session, walks the selected goroutine's backtrace, and prints the
// report for every frame in the requested range.
package inspector

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mikesart/stack-inspector/pkg/debugger"
	"github.com/mikesart/stack-inspector/pkg/report"
	"github.com/mikesart/stack-inspector/pkg/scope"
)

type Inspector struct {
	Addr      string // headless debugger address
	Binary    string // target binary path, empty resolves it from the target PID
	Goroutine int64  // goroutine to inspect, -1 is the session's selected one
	Depth     int    // maximum frames walked
}

// session is the slice of the debugger client the driver needs.
type session interface {
	SelectGoroutine(id int64) error
	Backtrace(depth int) ([]debugger.Frame, bool, error)
	Registers(frameIndex int) (debugger.Registers, error)
	EvalInt(expr string) (int64, error)
}

// blockSource resolves the innermost lexical block covering a frame's PC.
type blockSource interface {
	BlockAt(function string, entry, pc uint64) (scope.Block, error)
}

// Inspect runs one inspection against the configured session, printing the
// report for the frames selected by args.
func (opts *Inspector) Inspect(args []string) error {
	sess, err := debugger.Attach(opts.Addr)
	if err != nil {
		return err
	}
	defer sess.Close()

	var blocks blockSource
	if img, err := openImage(opts.Binary, sess); err != nil {
		log.Warn("Debug information unavailable", "error", err)
	} else {
		defer img.Close()
		sess.SetArch(img.Arch())
		blocks = img
	}

	return run(sess, blocks, report.NewWriter(os.Stdout), args, opts.Goroutine, opts.Depth)
}

func openImage(path string, sess *debugger.Session) (*scope.Image, error) {
	if path == "" {
		path = fmt.Sprintf("/proc/%d/exe", sess.Pid())
	}
	log.Debug("Loading debug information", "binary", path)
	return scope.Open(path)
}

func run(sess session, blocks blockSource, w *report.Writer, args []string, goroutineID int64, depth int) error {
	if err := sess.SelectGoroutine(goroutineID); err != nil {
		if errors.Is(err, debugger.ErrNoStack) {
			log.Debug("Nothing to inspect", "error", err)
			w.NoStack()
			return nil
		}
		return err
	}

	frames, truncated, err := sess.Backtrace(depth)
	if err != nil {
		return err
	}
	if truncated {
		log.Warn("Backtrace truncated before the bottom of the stack", "depth", depth)
	}
	if len(frames) == 0 {
		w.NoStack()
		return nil
	}

	first, last, err := resolveRange(args, sess.EvalInt, len(frames))
	if err != nil {
		return err
	}

	w.Begin()
	for _, fr := range frames {
		if fr.Index > last {
			break
		}
		if fr.Index < first {
			continue
		}
		if err := analyzeFrame(sess, blocks, w, fr); err != nil {
			return err
		}
	}
	return nil
}

// analyzeFrame prints one frame: header, registers, and, when the frame has
// source information, its in-scope symbols. A missing lexical block
// downgrades to a printed notice so the rest of the walk continues.
func analyzeFrame(sess session, blocks blockSource, w *report.Writer, fr debugger.Frame) error {
	if fr.HasSource {
		w.FrameHeader(fr.Index, fr.Function, fr.File, fr.Line)
	} else {
		w.FrameHeaderUnknown(fr.Index)
	}

	regs, err := sess.Registers(fr.Index)
	if err != nil {
		return err
	}
	w.Registers(regs.PC, regs.SP, regs.FP)

	if !fr.HasSource {
		return nil
	}

	block, err := blockAt(blocks, fr)
	if err != nil {
		log.Debug("Block lookup failed", "function", fr.Function, "error", err)
		w.BlockFailure()
		return nil
	}

	w.Symbols(scope.Collect(block))
	return nil
}

func blockAt(blocks blockSource, fr debugger.Frame) (scope.Block, error) {
	if blocks == nil {
		return nil, errors.New("no debug information loaded")
	}
	return blocks.BlockAt(fr.Function, fr.FuncEntry, fr.PC)
}
