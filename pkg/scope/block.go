package scope

import (
	"debug/dwarf"

	"github.com/go-delve/delve/pkg/dwarf/godwarf"
)

// dwarfBlock is a local scope backed by a DW_TAG_subprogram or
// DW_TAG_lexical_block node of the function's DIE tree.
type dwarfBlock struct {
	img    *Image
	node   *godwarf.Tree
	parent Block
}

func (b *dwarfBlock) Parent() Block { return b.parent }
func (b *dwarfBlock) Global() bool  { return false }
func (b *dwarfBlock) Static() bool  { return false }

// Decls enumerates the parameters and variables declared directly in this
// block. Nested blocks and inlined subroutines are reached through the chain,
// not here.
func (b *dwarfBlock) Decls() []Decl {
	var decls []Decl
	for _, child := range b.node.Children {
		switch child.Tag {
		case dwarf.TagFormalParameter, dwarf.TagVariable:
			decls = append(decls, &dwarfDecl{img: b.img, tag: child.Tag, attr: child})
		}
	}
	return decls
}

// unitBlock is the global scope of the compile unit that declared the
// function. The collection walk recognizes it by its Global flag and skips
// it; its file-level variables are enumerated lazily for anyone who does ask.
type unitBlock struct {
	img    *Image
	offset dwarf.Offset
}

func (b *unitBlock) Parent() Block { return nil }
func (b *unitBlock) Global() bool  { return true }
func (b *unitBlock) Static() bool  { return false }

func (b *unitBlock) Decls() []Decl {
	reader := b.img.dw.Reader()
	reader.Seek(b.offset)
	unit, err := reader.Next()
	if err != nil || unit == nil || unit.Tag != dwarf.TagCompileUnit {
		return nil
	}

	var decls []Decl
	for {
		child, err := reader.Next()
		if err != nil || child == nil || child.Tag == 0 {
			return decls
		}
		if child.Tag == dwarf.TagVariable {
			decls = append(decls, &dwarfDecl{img: b.img, tag: child.Tag, attr: child})
		}
		if child.Children {
			reader.SkipChildren()
		}
	}
}
