package scope

import (
	"debug/dwarf"
	"fmt"

	"github.com/go-delve/delve/pkg/dwarf/godwarf"
	"github.com/go-delve/delve/pkg/dwarf/op"
)

// attrSource is satisfied by both *dwarf.Entry and godwarf tree nodes.
type attrSource interface {
	Val(dwarf.Attr) interface{}
}

// dwarfDecl is a single DW_TAG_formal_parameter or DW_TAG_variable entry.
type dwarfDecl struct {
	img  *Image
	tag  dwarf.Tag
	attr attrSource
}

func (d *dwarfDecl) Name() string {
	name, _ := d.attr.Val(dwarf.AttrName).(string)
	return name
}

func (d *dwarfDecl) Argument() bool { return d.tag == dwarf.TagFormalParameter }
func (d *dwarfDecl) Variable() bool { return d.tag == dwarf.TagVariable }

// StaticAlloc reports whether the declaration's storage is a fixed address
// rather than a slot in the frame.
func (d *dwarfDecl) StaticAlloc() bool {
	return staticLocation(d.attr.Val(dwarf.AttrLocation))
}

// Symbol resolves the declared type and materializes the display entry.
func (d *dwarfDecl) Symbol() (Symbol, error) {
	off, ok := d.attr.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		return Symbol{}, fmt.Errorf("%s: missing type attribute", d.Name())
	}
	typ, err := godwarf.ReadType(d.img.dw, 0, off, d.img.typeCache)
	if err != nil {
		return Symbol{}, fmt.Errorf("%s: resolve type: %w", d.Name(), err)
	}
	return Symbol{Name: d.Name(), Size: typ.Size(), Type: typ.String()}, nil
}

// staticLocation classifies a DW_AT_location value: an expression opening
// with DW_OP_addr places the object at a fixed address instead of the frame.
func staticLocation(loc interface{}) bool {
	expr, ok := loc.([]byte)
	if !ok || len(expr) == 0 {
		return false
	}
	return op.Opcode(expr[0]) == op.DW_OP_addr
}
