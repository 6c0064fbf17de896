package scope

import (
	"sort"

	"github.com/charmbracelet/log"
)

// Symbol is one stack-resident declaration kept for display: its name, the
// size of its declared type in bytes, and the type name.
type Symbol struct {
	Name string
	Size int64
	Type string
}

// Block is one scope on the lexical chain of a frame. Blocks link outward to
// their enclosing scope through Parent; the chain ends at the global
// (compile unit) block.
type Block interface {
	Parent() Block
	Global() bool
	Static() bool
	Decls() []Decl
}

// Decl is a declaration directly contained in a block. Classification is
// cheap; Symbol resolves the declared type and may fail.
type Decl interface {
	Name() string
	Argument() bool
	Variable() bool
	StaticAlloc() bool
	Symbol() (Symbol, error)
}

// Collect walks the block chain from the innermost block outward and gathers
// the declarations that live on the stack: function arguments, and local
// variables that are not statically allocated. Global and static blocks
// contribute nothing, but the walk continues past them. A name seen in an
// inner block shadows the same name further out, even when its type cannot
// be resolved. The result is sorted by size descending; equal sizes keep
// first-seen order.
func Collect(innermost Block) []Symbol {
	seen := make(map[string]bool)
	var symbols []Symbol

	for block := innermost; block != nil; block = block.Parent() {
		if block.Global() || block.Static() {
			continue
		}
		for _, decl := range block.Decls() {
			if !onStack(decl) {
				continue
			}
			name := decl.Name()
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			sym, err := decl.Symbol()
			if err != nil {
				log.Debug("Skipping declaration", "name", name, "error", err)
				continue
			}
			symbols = append(symbols, sym)
		}
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		return symbols[i].Size > symbols[j].Size
	})
	return symbols
}

// onStack reports whether the declaration occupies the frame.
func onStack(d Decl) bool {
	return d.Argument() || (d.Variable() && !d.StaticAlloc())
}
