package vm

import (
	"regexp"
	"strconv"
	"strings"

	"hackchain/pkg/diag"
	"hackchain/pkg/hack"
)

var symbolName = regexp.MustCompile(`^[A-Za-z_.$:][0-9A-Za-z_.$:]*$`)

// Line is a parsed command with its 1-based source line.
type Line struct {
	Cmd    Command
	LineNo int
}

// Parse reads VM source text. Blank lines and // comments are skipped.
func Parse(src string) ([]Line, error) {
	var out []Line
	for i, raw := range strings.Split(src, "\n") {
		cmd, err := ParseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			continue
		}
		out = append(out, Line{Cmd: cmd, LineNo: i + 1})
	}
	return out, nil
}

// ParseCommands is Parse without line numbers.
func ParseCommands(src string) ([]Command, error) {
	lines, err := Parse(src)
	if err != nil {
		return nil, err
	}
	cmds := make([]Command, len(lines))
	for i, l := range lines {
		cmds[i] = l.Cmd
	}
	return cmds, nil
}

// ParseLine parses one line and returns nil for lines without a command.
func ParseLine(raw string, lineNo int) (Command, error) {
	if cut := strings.Index(raw, "//"); cut >= 0 {
		raw = raw[:cut]
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, nil
	}
	text := strings.Join(fields, " ")

	arity := func(n int) error {
		if len(fields) != n+1 {
			return diag.Syntax(lineNo, 0, text, "%s takes %d operand(s), got %d", fields[0], n, len(fields)-1)
		}
		return nil
	}

	switch fields[0] {
	case "push", "pop":
		if err := arity(2); err != nil {
			return nil, err
		}
		seg, ok := ParseSegment(fields[1])
		if !ok {
			return nil, diag.Syntax(lineNo, 0, text, "unknown segment %q", fields[1])
		}
		idx, err := parseIndex(fields[2], lineNo, text)
		if err != nil {
			return nil, err
		}
		pop := fields[0] == "pop"
		if err := checkAccess(seg, idx, pop, lineNo, text); err != nil {
			return nil, err
		}
		if pop {
			return Pop{Segment: seg, Index: idx}, nil
		}
		return Push{Segment: seg, Index: idx}, nil

	case "label", "goto", "if-goto":
		if err := arity(1); err != nil {
			return nil, err
		}
		name := fields[1]
		if !symbolName.MatchString(name) {
			return nil, diag.Syntax(lineNo, 0, text, "invalid label name %q", name)
		}
		switch fields[0] {
		case "label":
			return Label{Name: name}, nil
		case "goto":
			return Goto{Name: name}, nil
		default:
			return IfGoto{Name: name}, nil
		}

	case "function", "call":
		if err := arity(2); err != nil {
			return nil, err
		}
		name := fields[1]
		if !symbolName.MatchString(name) {
			return nil, diag.Syntax(lineNo, 0, text, "invalid function name %q", name)
		}
		n, err := parseIndex(fields[2], lineNo, text)
		if err != nil {
			return nil, err
		}
		if fields[0] == "function" {
			return Function{Name: name, Locals: n}, nil
		}
		return Call{Name: name, Args: n}, nil

	case "return":
		if err := arity(0); err != nil {
			return nil, err
		}
		return Return{}, nil
	}

	if op, ok := ParseArithOp(fields[0]); ok {
		if err := arity(0); err != nil {
			return nil, err
		}
		return Arithmetic{Op: op}, nil
	}
	return nil, diag.Syntax(lineNo, 0, text, "unknown command %q", fields[0])
}

func parseIndex(s string, lineNo int, text string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > int(hack.MaxAddress) {
		return 0, diag.Syntax(lineNo, 0, text, "index %q must be an integer in 0..%d", s, hack.MaxAddress)
	}
	return n, nil
}

// checkAccess enforces the per-segment index limits.
func checkAccess(seg Segment, idx int, pop bool, lineNo int, text string) error {
	switch {
	case pop && seg == Constant:
		return diag.Semantic(lineNo, 0, text, "cannot pop to the constant segment")
	case seg == Pointer && idx > 1:
		return diag.Semantic(lineNo, 0, text, "pointer index %d out of range 0..1", idx)
	case seg == Temp && idx > 7:
		return diag.Semantic(lineNo, 0, text, "temp index %d out of range 0..7", idx)
	}
	return nil
}
