package debugger

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-delve/delve/service/api"
	"github.com/go-delve/delve/service/rpc2"
)

// ErrNoStack is reported when the session has no stopped goroutine whose
// frames could be inspected: the target exited, is still running, or never
// selected a goroutine.
var ErrNoStack = errors.New("no stack to inspect")

// Session is a read-only client connection to a headless debugger instance.
// All queries run against the goroutine recorded by SelectGoroutine; nothing
// in this package resumes, halts, or otherwise disturbs the target.
type Session struct {
	conn        net.Conn
	client      *rpc2.RPCClient
	goroutineID int64
	arch        string
}

// Attach dials the headless debugger listening on addr.
func Attach(addr string) (*Session, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to debugger at %s: %w", addr, err)
	}
	return &Session{
		conn:        conn,
		client:      rpc2.NewClientFromConn(conn),
		goroutineID: -1,
	}, nil
}

// Close drops the client connection. The debug session itself is left as it
// was found.
func (s *Session) Close() error {
	return s.conn.Close()
}

// SetArch records the target's machine architecture, which sharpens register
// classification from names to DWARF register numbers.
func (s *Session) SetArch(arch string) {
	s.arch = arch
}

// Pid returns the process ID of the debugged target.
func (s *Session) Pid() int {
	return s.client.ProcessPid()
}

// SelectGoroutine validates that the session has a stopped goroutine to
// inspect and records which one the following queries run against. id -1
// means the session's currently selected goroutine.
func (s *Session) SelectGoroutine(id int64) error {
	state, err := s.client.GetStateNonBlocking()
	if err != nil {
		return fmt.Errorf("debugger state: %w", err)
	}
	switch {
	case state.Exited:
		return fmt.Errorf("target exited with status %d: %w", state.ExitStatus, ErrNoStack)
	case state.Running:
		return fmt.Errorf("target is running: %w", ErrNoStack)
	}
	if id >= 0 {
		s.goroutineID = id
		return nil
	}
	if state.SelectedGoroutine != nil {
		s.goroutineID = state.SelectedGoroutine.ID
		return nil
	}
	if state.CurrentThread == nil {
		return fmt.Errorf("no current thread: %w", ErrNoStack)
	}
	s.goroutineID = -1
	return nil
}

// Backtrace walks the selected goroutine's stack from the innermost frame
// outward, up to depth frames. truncated reports that the walk hit depth
// before reaching the bottom of the stack.
func (s *Session) Backtrace(depth int) (frames []Frame, truncated bool, err error) {
	stack, err := s.client.Stacktrace(s.goroutineID, depth, 0, nil)
	if err != nil {
		return nil, false, fmt.Errorf("stacktrace: %w", err)
	}
	frames = make([]Frame, len(stack))
	for i, sf := range stack {
		frames[i] = newFrame(i, sf)
	}
	truncated = len(stack) > 0 && !stack[len(stack)-1].Bottom
	return frames, truncated, nil
}

// Registers reads the register file of the given frame and reduces it to the
// program counter, stack pointer, and frame pointer.
func (s *Session) Registers(frameIndex int) (Registers, error) {
	scope := api.EvalScope{GoroutineID: s.goroutineID, Frame: frameIndex}
	regs, err := s.client.ListScopeRegisters(scope, false)
	if err != nil {
		return Registers{}, fmt.Errorf("registers for frame %d: %w", frameIndex, err)
	}
	return extractRegisters(regs, s.arch)
}

// EvalInt runs expr through the debugger's expression evaluator in the
// innermost frame of the selected goroutine and interprets the result as an
// integer.
func (s *Session) EvalInt(expr string) (int64, error) {
	scope := api.EvalScope{GoroutineID: s.goroutineID, Frame: 0}
	v, err := s.client.EvalVariable(scope, expr, api.LoadConfig{})
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	if v.Unreadable != "" {
		return 0, fmt.Errorf("evaluate %q: %s", expr, v.Unreadable)
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q did not evaluate to an integer (got %q)", expr, v.Value)
	}
	return n, nil
}
