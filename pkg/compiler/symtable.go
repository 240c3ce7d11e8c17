package compiler

import (
	"fmt"
	"sort"

	"hackchain/pkg/diag"
	"hackchain/pkg/vm"
)

// Kind is the storage class of a named variable.
type Kind int

const (
	Static Kind = iota
	Field
	Argument
	Local
)

var kindNames = [...]string{
	Static:   "static",
	Field:    "field",
	Argument: "argument",
	Local:    "local",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Segment maps a storage class onto the VM segment that holds it. Fields
// live in the current object, addressed through this.
func (k Kind) Segment() vm.Segment {
	switch k {
	case Static:
		return vm.Static
	case Field:
		return vm.This
	case Argument:
		return vm.Argument
	default:
		return vm.Local
	}
}

type Symbol struct {
	Name  string
	Type  string
	Kind  Kind
	Index int
}

// SymbolTable holds two scopes: class-wide (statics and fields) and the
// current subroutine (arguments and locals). Indices are dense per kind.
type SymbolTable struct {
	class      map[string]Symbol
	subroutine map[string]Symbol
	counts     [4]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		class:      make(map[string]Symbol),
		subroutine: make(map[string]Symbol),
	}
}

// StartSubroutine drops the subroutine scope and restarts the argument and
// local counters.
func (st *SymbolTable) StartSubroutine() {
	st.subroutine = make(map[string]Symbol)
	st.counts[Argument] = 0
	st.counts[Local] = 0
}

// Define adds name to the scope implied by kind and returns the new entry.
// Redeclaring a name within the same scope is an error.
func (st *SymbolTable) Define(name, typ string, kind Kind) (Symbol, error) {
	scope := st.subroutine
	if kind == Static || kind == Field {
		scope = st.class
	}
	if _, dup := scope[name]; dup {
		return Symbol{}, diag.Semantic(0, 0, name, "%s %q already declared", kind, name)
	}
	sym := Symbol{Name: name, Type: typ, Kind: kind, Index: st.counts[kind]}
	st.counts[kind]++
	scope[name] = sym
	return sym, nil
}

// Lookup resolves name, preferring the subroutine scope.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	if sym, ok := st.subroutine[name]; ok {
		return sym, true
	}
	sym, ok := st.class[name]
	return sym, ok
}

func (st *SymbolTable) VarCount(kind Kind) int { return st.counts[kind] }

// Symbols lists every visible entry ordered by kind then index.
func (st *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, 0, len(st.class)+len(st.subroutine))
	for _, s := range st.class {
		out = append(out, s)
	}
	for _, s := range st.subroutine {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Index < out[j].Index
	})
	return out
}
