package asm

import (
	"fmt"
	"maps"

	"hackchain/pkg/hack"
)

// VariableAllocator resolves A-instruction symbols during pass 2. Fixed
// symbols (predefined and labels) are looked up first; anything else is a
// variable and gets the next free RAM address starting at 16. Once handed
// out, an address never changes.
type VariableAllocator struct {
	labels Labels
	vars   map[string]uint16
	order  []string
	next   uint16
}

func NewVariableAllocator(labels Labels) *VariableAllocator {
	return &VariableAllocator{
		labels: labels,
		vars:   make(map[string]uint16),
		next:   hack.VariableBase,
	}
}

func (v *VariableAllocator) Resolve(symbol string) (uint16, error) {
	if addr, ok := hack.Predefined[symbol]; ok {
		return addr, nil
	}
	if addr, ok := v.labels[symbol]; ok {
		return addr, nil
	}
	if addr, ok := v.vars[symbol]; ok {
		return addr, nil
	}

	if v.next >= hack.ScreenBase {
		return 0, fmt.Errorf("out of variable space allocating %q", symbol)
	}
	addr := v.next
	v.vars[symbol] = addr
	v.order = append(v.order, symbol)
	v.next++
	return addr, nil
}

// Variables lists variables in allocation order.
func (v *VariableAllocator) Variables() []string {
	return append([]string(nil), v.order...)
}

// Symbols returns labels and variables merged into a fresh map.
func (v *VariableAllocator) Symbols() map[string]uint16 {
	out := make(map[string]uint16, len(v.labels)+len(v.vars))
	maps.Copy(out, v.labels)
	maps.Copy(out, v.vars)
	return out
}
