// Package peripherals feeds host input into the Hack keyboard register.
package peripherals

import (
	"sync"

	"hackchain/pkg/cpu"
)

// Hack codes for keys that have no printable character.
const (
	KeyNewline   uint16 = 128
	KeyBackspace uint16 = 129
	KeyLeft      uint16 = 130
	KeyUp        uint16 = 131
	KeyRight     uint16 = 132
	KeyDown      uint16 = 133
	KeyHome      uint16 = 134
	KeyEnd       uint16 = 135
	KeyPageUp    uint16 = 136
	KeyPageDown  uint16 = 137
	KeyInsert    uint16 = 138
	KeyDelete    uint16 = 139
	KeyEscape    uint16 = 140
	KeyF1        uint16 = 141 // F2..F12 follow in order
)

// DefaultHold is how many Step calls a queued key stays visible at KBD,
// followed by as many with KBD clear so programs see a release.
const DefaultHold = 4

// Keyboard queues key presses and presents them one at a time in the KBD
// register. The register only holds the key currently down, so typing
// faster than a program polls would otherwise lose keys.
type Keyboard struct {
	c    *cpu.CPU
	hold int

	mu      sync.Mutex
	queue   []uint16
	held    uint16 // key at KBD, 0 when none
	ticks   int
	gap     int
	pressed uint16 // key physically held by the host, shown when the queue is empty
}

func NewKeyboard(c *cpu.CPU, hold int) *Keyboard {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{c: c, hold: hold}
}

// Push queues a key press. Codes outside 1..32767 are ignored.
func (k *Keyboard) Push(code uint16) {
	if code == 0 || code > 0x7FFF {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = append(k.queue, code)
}

// PushText queues every rune of s that fits the Hack character set.
func (k *Keyboard) PushText(s string) {
	for _, r := range s {
		if r == '\n' {
			k.Push(KeyNewline)
		} else if r >= 32 && r < 127 {
			k.Push(uint16(r))
		}
	}
}

// SetPressed records the key the host currently holds down (0 for none).
func (k *Keyboard) SetPressed(code uint16) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pressed = code
}

// Pending reports how many queued presses have not yet reached KBD.
func (k *Keyboard) Pending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.queue)
}

// Step advances the keyboard by one tick and updates KBD.
func (k *Keyboard) Step() {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case k.held != 0:
		k.ticks++
		if k.ticks >= k.hold {
			k.held, k.ticks, k.gap = 0, 0, k.hold-1
			k.c.SetKey(0)
		}
		return
	case k.gap > 0:
		k.gap--
		return
	case len(k.queue) > 0:
		k.held = k.queue[0]
		k.queue = k.queue[1:]
		k.ticks = 0
		k.c.SetKey(k.held)
		return
	}
	k.c.SetKey(k.pressed)
}
