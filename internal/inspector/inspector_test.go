package inspector

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikesart/stack-inspector/pkg/color"
	"github.com/mikesart/stack-inspector/pkg/debugger"
	"github.com/mikesart/stack-inspector/pkg/report"
	"github.com/mikesart/stack-inspector/pkg/scope"
)

func withColor(t *testing.T, on bool) {
	t.Helper()
	prev := color.IsColorEnabled()
	color.EnableColor(on)
	t.Cleanup(func() { color.EnableColor(prev) })
}

type fakeSession struct {
	selectErr    error
	frames       []debugger.Frame
	truncated    bool
	backtraceErr error
	regs         map[int]debugger.Registers
	regErr       map[int]error
	evals        map[string]int64

	goroutine int64
	regCalls  []int
}

func (f *fakeSession) SelectGoroutine(id int64) error {
	f.goroutine = id
	return f.selectErr
}

func (f *fakeSession) Backtrace(depth int) ([]debugger.Frame, bool, error) {
	return f.frames, f.truncated, f.backtraceErr
}

func (f *fakeSession) Registers(frameIndex int) (debugger.Registers, error) {
	f.regCalls = append(f.regCalls, frameIndex)
	if err := f.regErr[frameIndex]; err != nil {
		return debugger.Registers{}, err
	}
	return f.regs[frameIndex], nil
}

func (f *fakeSession) EvalInt(expr string) (int64, error) {
	if v, ok := f.evals[expr]; ok {
		return v, nil
	}
	return strconv.ParseInt(expr, 10, 64)
}

type fakeBlocks struct {
	blocks map[string]scope.Block
	errs   map[string]error
}

func (f *fakeBlocks) BlockAt(function string, entry, pc uint64) (scope.Block, error) {
	if err := f.errs[function]; err != nil {
		return nil, err
	}
	if b, ok := f.blocks[function]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("function %s not in debug info", function)
}

type stubDecl struct {
	name string
	size int64
	typ  string
	arg  bool
}

func (d stubDecl) Name() string      { return d.name }
func (d stubDecl) Argument() bool    { return d.arg }
func (d stubDecl) Variable() bool    { return !d.arg }
func (d stubDecl) StaticAlloc() bool { return false }
func (d stubDecl) Symbol() (scope.Symbol, error) {
	return scope.Symbol{Name: d.name, Size: d.size, Type: d.typ}, nil
}

type stubBlock struct {
	decls []scope.Decl
}

func (b stubBlock) Parent() scope.Block { return nil }
func (b stubBlock) Global() bool        { return false }
func (b stubBlock) Static() bool        { return false }
func (b stubBlock) Decls() []scope.Decl { return b.decls }

func srcFrame(index int, function, file string, line int, pc uint64) debugger.Frame {
	return debugger.Frame{
		Index:     index,
		PC:        pc,
		Function:  function,
		File:      file,
		Line:      line,
		FuncEntry: pc - 0x20,
		HasSource: true,
	}
}

func TestRunNoStackPrintsExactlyOneLine(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{selectErr: fmt.Errorf("target is running: %w", debugger.ErrNoStack)}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), nil, -1, 64)

	assert.NoError(t, err)
	assert.Equal(t, "[stack-inspector] could not retrieve frame information (no stack).\n", buf.String())
}

func TestRunEmptyBacktracePrintsNoStackLine(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), nil, -1, 64)

	assert.NoError(t, err)
	assert.Equal(t, "[stack-inspector] could not retrieve frame information (no stack).\n", buf.String())
}

func TestRunWholeStackReport(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{
			srcFrame(0, "main.leaf", "/src/app/main.go", 12, 0x4010a0),
			srcFrame(1, "main.main", "/src/app/main.go", 30, 0x401200),
		},
		regs: map[int]debugger.Registers{
			0: {PC: 0x4010a0, SP: 0x7000, FP: 0x7040},
			1: {PC: 0x401200, SP: 0x7050, FP: 0x7090},
		},
	}
	blocks := &fakeBlocks{blocks: map[string]scope.Block{
		"main.leaf": stubBlock{decls: []scope.Decl{
			stubDecl{name: "n", size: 8, typ: "int"},
			stubDecl{name: "buffer", size: 4096, typ: "[4096]uint8"},
		}},
		"main.main": stubBlock{decls: []scope.Decl{
			stubDecl{name: "args", size: 24, typ: "[]string", arg: true},
		}},
	}}
	var buf bytes.Buffer

	err := run(sess, blocks, report.NewWriter(&buf), nil, -1, 64)

	assert.NoError(t, err)
	want := "\n" +
		"  #0   main.leaf @ /src/app/main.go:12\n" +
		"           pc: 0x4010a0\n" +
		"           sp: 0x7000\n" +
		"           fp: 0x7040\n" +
		"             4,096   buffer ([4096]uint8)\n" +
		"                 8   n (int)\n" +
		"\n" +
		"  #1   main.main @ /src/app/main.go:30\n" +
		"           pc: 0x401200\n" +
		"           sp: 0x7050\n" +
		"           fp: 0x7090\n" +
		"                24   args ([]string)\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestRunRangeAnalyzesOnlySelectedFrames(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		regs: map[int]debugger.Registers{},
	}
	blocks := &fakeBlocks{blocks: map[string]scope.Block{}}
	for i := 0; i < 5; i++ {
		fn := fmt.Sprintf("main.f%d", i)
		sess.frames = append(sess.frames, srcFrame(i, fn, "main.go", 10+i, uint64(0x1000+i*0x100)))
		sess.regs[i] = debugger.Registers{PC: uint64(0x1000 + i*0x100), SP: 0x7000, FP: 0x7040}
		blocks.blocks[fn] = stubBlock{}
	}
	var buf bytes.Buffer

	err := run(sess, blocks, report.NewWriter(&buf), []string{"1", "2"}, 7, 64)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), sess.goroutine)
	assert.Equal(t, []int{1, 2}, sess.regCalls)
	out := buf.String()
	assert.Contains(t, out, "#1  ")
	assert.Contains(t, out, "#2  ")
	assert.NotContains(t, out, "#0")
	assert.NotContains(t, out, "#3")
}

func TestRunRangeThroughEvaluator(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{
			srcFrame(0, "main.f0", "main.go", 10, 0x1000),
			srcFrame(1, "main.f1", "main.go", 20, 0x1100),
		},
		regs: map[int]debugger.Registers{
			0: {PC: 0x1000, SP: 0x7000, FP: 0x7040},
			1: {PC: 0x1100, SP: 0x7050, FP: 0x7090},
		},
		evals: map[string]int64{"limit": 1},
	}
	blocks := &fakeBlocks{blocks: map[string]scope.Block{
		"main.f0": stubBlock{},
		"main.f1": stubBlock{},
	}}
	var buf bytes.Buffer

	err := run(sess, blocks, report.NewWriter(&buf), []string{"limit"}, -1, 64)

	assert.NoError(t, err)
	assert.Equal(t, []int{0}, sess.regCalls)
}

func TestRunBlockFailureDowngradesAndContinues(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{
			srcFrame(0, "main.broken", "main.go", 10, 0x1000),
			srcFrame(1, "main.fine", "main.go", 20, 0x1100),
		},
		regs: map[int]debugger.Registers{
			0: {PC: 0x1000, SP: 0x7000, FP: 0x7040},
			1: {PC: 0x1100, SP: 0x7050, FP: 0x7090},
		},
	}
	blocks := &fakeBlocks{
		blocks: map[string]scope.Block{
			"main.fine": stubBlock{decls: []scope.Decl{stubDecl{name: "x", size: 4, typ: "int32"}}},
		},
		errs: map[string]error{"main.broken": errors.New("no debug info")},
	}
	var buf bytes.Buffer

	err := run(sess, blocks, report.NewWriter(&buf), nil, -1, 64)

	assert.NoError(t, err)
	want := "\n" +
		"  #0   main.broken @ main.go:10\n" +
		"           pc: 0x1000\n" +
		"           sp: 0x7000\n" +
		"           fp: 0x7040\n" +
		"Could not retrieve block information\n" +
		"  #1   main.fine @ main.go:20\n" +
		"           pc: 0x1100\n" +
		"           sp: 0x7050\n" +
		"           fp: 0x7090\n" +
		"                 4   x (int32)\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestRunNilBlockSourceDowngradesEveryFrame(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{srcFrame(0, "main.f", "main.go", 10, 0x1000)},
		regs:   map[int]debugger.Registers{0: {PC: 0x1000, SP: 0x7000, FP: 0x7040}},
	}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), nil, -1, 64)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Could not retrieve block information\n")
}

func TestRunSourcelessFrameSkipsSymbols(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{
			{Index: 0, PC: 0x1000}, // no function, no file
			srcFrame(1, "main.main", "main.go", 30, 0x1100),
		},
		regs: map[int]debugger.Registers{
			0: {PC: 0x1000, SP: 0x7000, FP: 0x7040},
			1: {PC: 0x1100, SP: 0x7050, FP: 0x7090},
		},
	}
	blocks := &fakeBlocks{blocks: map[string]scope.Block{
		"main.main": stubBlock{},
	}}
	var buf bytes.Buffer

	err := run(sess, blocks, report.NewWriter(&buf), nil, -1, 64)

	assert.NoError(t, err)
	want := "\n" +
		"  #0   Could not retrieve frame information\n" +
		"           pc: 0x1000\n" +
		"           sp: 0x7000\n" +
		"           fp: 0x7040\n" +
		"  #1   main.main @ main.go:30\n" +
		"           pc: 0x1100\n" +
		"           sp: 0x7050\n" +
		"           fp: 0x7090\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestRunUsageErrorBeforeAnyOutput(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{srcFrame(0, "main.f", "main.go", 10, 0x1000)},
	}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), []string{"1", "2", "3"}, -1, 64)

	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestRunBacktraceErrorPropagates(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{backtraceErr: errors.New("rpc gone")}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), nil, -1, 64)

	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestRunRegisterErrorPropagates(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{
		frames: []debugger.Frame{srcFrame(0, "main.f", "main.go", 10, 0x1000)},
		regErr: map[int]error{0: errors.New("register read failed")},
	}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), nil, -1, 64)

	assert.Error(t, err)
}

func TestRunSelectErrorOtherThanNoStackPropagates(t *testing.T) {
	withColor(t, false)
	sess := &fakeSession{selectErr: errors.New("rpc gone")}
	var buf bytes.Buffer

	err := run(sess, nil, report.NewWriter(&buf), nil, -1, 64)

	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
