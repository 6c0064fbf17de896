package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-delve/delve/pkg/dwarf/regnum"
	"github.com/go-delve/delve/service/api"
)

// Registers holds the three registers a frame report cares about.
type Registers struct {
	PC uint64 // program counter
	SP uint64 // stack pointer
	FP uint64 // frame pointer
}

type regClass int

const (
	regOther regClass = iota
	regPC
	regSP
	regFP
)

// extractRegisters reduces a full register file to pc/sp/fp. Registers are
// matched by their DWARF number when the architecture is known and by
// conventional names otherwise; names vary between native and gdbserial
// backends, numbers do not.
func extractRegisters(regs api.Registers, arch string) (Registers, error) {
	var out Registers
	var havePC, haveSP, haveFP bool
	for _, r := range regs {
		class := classifyRegister(r.Name, r.DwarfNumber, arch)
		if class == regOther {
			continue
		}
		val, err := parseRegisterValue(r.Value)
		if err != nil {
			return Registers{}, fmt.Errorf("register %s: %w", r.Name, err)
		}
		switch class {
		case regPC:
			out.PC, havePC = val, true
		case regSP:
			out.SP, haveSP = val, true
		case regFP:
			out.FP, haveFP = val, true
		}
	}
	if !havePC || !haveSP || !haveFP {
		return Registers{}, fmt.Errorf("register file lacks pc/sp/fp (%d registers seen)", len(regs))
	}
	return out, nil
}

func classifyRegister(name string, dwarfNum int, arch string) regClass {
	switch arch {
	case "amd64":
		switch dwarfNum {
		case regnum.AMD64_Rip:
			return regPC
		case regnum.AMD64_Rsp:
			return regSP
		case regnum.AMD64_Rbp:
			return regFP
		}
	case "arm64":
		switch dwarfNum {
		case regnum.ARM64_PC:
			return regPC
		case regnum.ARM64_SP:
			return regSP
		case regnum.ARM64_BP:
			return regFP
		}
	}
	switch strings.ToLower(name) {
	case "rip", "eip", "pc":
		return regPC
	case "rsp", "esp", "sp":
		return regSP
	case "rbp", "ebp", "bp", "fp", "x29":
		return regFP
	}
	return regOther
}

// parseRegisterValue parses the debugger's hexadecimal register rendering.
// Flag registers carry a decoded suffix after the value, so only the first
// field counts.
func parseRegisterValue(s string) (uint64, error) {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return 0, fmt.Errorf("empty register value")
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse register value: %w", err)
	}
	return v, nil
}
