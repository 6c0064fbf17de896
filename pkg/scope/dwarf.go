package scope

import (
	"debug/dwarf"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/go-delve/delve/pkg/dwarf/godwarf"
)

// ErrUnknownFunction is reported when a frame's function has no concrete
// entry in the image's debug info (stripped binaries, mismatched binaries,
// abstract instances of inlined functions).
var ErrUnknownFunction = errors.New("function not present in debug info")

// Image holds the debug information of the target binary and an index of its
// function DIEs, so frames reported by the debugger can be mapped back to
// their lexical block trees.
type Image struct {
	file      *elf.File
	dw        *dwarf.Data
	arch      string
	funcs     map[string]funcEntry
	typeCache map[dwarf.Offset]godwarf.Type
}

type funcEntry struct {
	offset dwarf.Offset // DW_TAG_subprogram DIE
	entry  uint64       // DW_AT_low_pc, link-time
	unit   dwarf.Offset // owning compile unit DIE
}

// Open loads the ELF image at path and indexes its DWARF function entries.
func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	dw, err := f.DWARF()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("load debug info: %w", err)
	}

	img := &Image{
		file:      f,
		dw:        dw,
		arch:      machineArch(f.Machine),
		funcs:     make(map[string]funcEntry),
		typeCache: make(map[dwarf.Offset]godwarf.Type),
	}
	if err := img.indexFunctions(); err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

// Close releases the underlying ELF handle.
func (img *Image) Close() error {
	return img.file.Close()
}

// Arch names the image's machine architecture ("amd64", "arm64", "386").
func (img *Image) Arch() string {
	return img.arch
}

// BlockAt returns the innermost lexical block of function fn containing pc,
// with parent links running outward to the function block and the global
// compile unit block. entry is the function's entry point at run time; its
// difference to the DWARF entry point is the image's load bias, which covers
// PIE binaries.
func (img *Image) BlockAt(fn string, entry, pc uint64) (Block, error) {
	fe, ok := img.funcs[fn]
	if !ok {
		return nil, fmt.Errorf("%s: %w", fn, ErrUnknownFunction)
	}

	staticBase := entry - fe.entry
	tree, err := godwarf.LoadTree(fe.offset, img.dw, staticBase)
	if err != nil {
		return nil, fmt.Errorf("load scope tree for %s: %w", fn, err)
	}
	if !tree.ContainsPC(pc) {
		return nil, fmt.Errorf("%s: pc %#x outside function ranges (mismatched binary?)", fn, pc)
	}

	var block Block = &unitBlock{img: img, offset: fe.unit}
	for _, node := range blockPath(tree, pc) {
		block = &dwarfBlock{img: img, node: node, parent: block}
	}
	return block, nil
}

// blockPath returns the scope nodes enclosing pc, outermost first: the
// subprogram root, then each nested DW_TAG_lexical_block containing pc.
// Inlined subroutines are not descended into; their declarations belong to
// the inlined frame, not this one.
func blockPath(root *godwarf.Tree, pc uint64) []*godwarf.Tree {
	path := []*godwarf.Tree{root}
	node := root
descend:
	for {
		for _, child := range node.Children {
			if child.Tag == dwarf.TagLexDwarfBlock && child.ContainsPC(pc) {
				path = append(path, child)
				node = child
				continue descend
			}
		}
		return path
	}
}

// indexFunctions records every concrete DW_TAG_subprogram by name. Abstract
// instances of inlined functions carry no entry point and cannot anchor a
// frame, so they are skipped.
func (img *Image) indexFunctions() error {
	reader := img.dw.Reader()
	var unit dwarf.Offset
	for {
		entry, err := reader.Next()
		if err != nil {
			return fmt.Errorf("walk debug info: %w", err)
		}
		if entry == nil {
			return nil
		}
		switch entry.Tag {
		case dwarf.TagCompileUnit:
			unit = entry.Offset
		case dwarf.TagSubprogram:
			name, _ := entry.Val(dwarf.AttrName).(string)
			low, ok := lowPC(entry)
			if name != "" && ok {
				if _, dup := img.funcs[name]; !dup {
					img.funcs[name] = funcEntry{offset: entry.Offset, entry: low, unit: unit}
				}
			}
			reader.SkipChildren()
		}
	}
}

func lowPC(entry *dwarf.Entry) (uint64, bool) {
	switch v := entry.Val(dwarf.AttrLowpc).(type) {
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	}
	return 0, false
}

func machineArch(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_386:
		return "386"
	}
	return ""
}
