package debugger

import "github.com/go-delve/delve/service/api"

// Frame is one activation record of a backtrace. Index 0 is the innermost
// frame. HasSource reports whether the debugger could map the frame back to a
// function and file; frames without it still carry a usable PC.
type Frame struct {
	Index     int
	PC        uint64
	Function  string
	FuncEntry uint64
	File      string
	Line      int
	HasSource bool
}

func newFrame(index int, sf api.Stackframe) Frame {
	fr := Frame{Index: index, PC: sf.PC, File: sf.File, Line: sf.Line}
	if sf.Function != nil {
		fr.Function = sf.Function.Name()
		fr.FuncEntry = sf.Function.Value
	}
	fr.HasSource = sf.Function != nil && sf.File != ""
	return fr
}
