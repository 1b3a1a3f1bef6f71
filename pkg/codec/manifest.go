// Copyright 2025 Multisig Orchestrator

package codec

import (
	"fmt"
	"strings"
	"unicode"
)

// ValueKind identifies a manifest value literal on the wire.
type ValueKind uint8

const (
	ValueString             ValueKind = 0x01
	ValueAddress            ValueKind = 0x02
	ValueDecimal            ValueKind = 0x03
	ValueBucket             ValueKind = 0x04
	ValueProof              ValueKind = 0x05
	ValueNonFungibleLocalID ValueKind = 0x06
	ValueNamedIntent        ValueKind = 0x07
	ValueUnit               ValueKind = 0x08
	ValueTuple              ValueKind = 0x09
)

// Value is a single manifest argument. Str carries the literal for all scalar
// kinds; Fields carries the elements of a Tuple.
type Value struct {
	Kind   ValueKind
	Str    string
	Fields []Value
}

// Instruction is a single manifest instruction with its arguments.
type Instruction struct {
	Name string
	Args []Value
}

// Manifest is a compiled transaction (or sub-intent) manifest.
type Manifest struct {
	NetworkID    uint8
	Instructions []Instruction
}

// Instruction names accepted by the compiler. The set covers the account and
// worktop operations this service composes and receives.
var knownInstructions = map[string]struct{}{
	"CALL_METHOD":             {},
	"TAKE_FROM_WORKTOP":       {},
	"TAKE_ALL_FROM_WORKTOP":   {},
	"ASSERT_WORKTOP_CONTAINS": {},
	"YIELD_TO_PARENT":         {},
	"YIELD_TO_CHILD":          {},
}

// typedValueKinds maps the textual wrapper (e.g. `Address("...")`) to its
// wire kind.
var typedValueKinds = map[string]ValueKind{
	"Address":            ValueAddress,
	"Decimal":            ValueDecimal,
	"Bucket":             ValueBucket,
	"Proof":              ValueProof,
	"NonFungibleLocalId": ValueNonFungibleLocalID,
	"NamedIntent":        ValueNamedIntent,
}

// --- programmatic constructors ---

// AddressValue wraps a bech32m address literal.
func AddressValue(addr string) Value { return Value{Kind: ValueAddress, Str: addr} }

// StringValue wraps a bare string literal.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// DecimalValue wraps a decimal literal.
func DecimalValue(d string) Value { return Value{Kind: ValueDecimal, Str: d} }

// NamedIntentValue references a child sub-intent by name.
func NamedIntentValue(name string) Value { return Value{Kind: ValueNamedIntent, Str: name} }

// UnitValue is the empty argument tuple `()`.
func UnitValue() Value { return Value{Kind: ValueUnit} }

// CallMethod builds a CALL_METHOD instruction.
func CallMethod(address, method string, args ...Value) Instruction {
	out := Instruction{Name: "CALL_METHOD", Args: make([]Value, 0, 2+len(args))}
	out.Args = append(out.Args, AddressValue(address), StringValue(method))
	out.Args = append(out.Args, args...)
	return out
}

// YieldToChild builds a YIELD_TO_CHILD instruction passing the unit value.
func YieldToChild(childName string) Instruction {
	return Instruction{Name: "YIELD_TO_CHILD", Args: []Value{NamedIntentValue(childName), UnitValue()}}
}

// --- compilation ---

// CompileSubintentManifest parses manifest text into a compiled sub-intent
// manifest for the given network. A terminating `YIELD_TO_PARENT;` is
// appended when absent: sub-intents must yield back to their parent.
// Addresses are validated against the network's HRP.
func CompileSubintentManifest(manifestText string, networkID uint8) (*Manifest, error) {
	if !strings.Contains(manifestText, "YIELD_TO_PARENT") {
		manifestText = strings.TrimRight(manifestText, " \t\n") + "\nYIELD_TO_PARENT;\n"
	}
	return compileManifest(manifestText, networkID)
}

// CompileManifest parses manifest text without sub-intent rules applied: no
// `YIELD_TO_PARENT;` is appended.
func CompileManifest(manifestText string, networkID uint8) (*Manifest, error) {
	return compileManifest(manifestText, networkID)
}

func compileManifest(manifestText string, networkID uint8) (*Manifest, error) {
	p := &parser{src: []rune(manifestText)}
	var instructions []Instruction
	for {
		p.skipSpace()
		if p.done() {
			break
		}
		instr, err := p.instruction()
		if err != nil {
			return nil, fmt.Errorf("manifest error: %w", err)
		}
		instructions = append(instructions, instr)
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("manifest error: empty manifest")
	}
	m := &Manifest{NetworkID: networkID, Instructions: instructions}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	for i, instr := range m.Instructions {
		if _, ok := knownInstructions[instr.Name]; !ok {
			return fmt.Errorf("manifest error: unknown instruction %q", instr.Name)
		}
		switch instr.Name {
		case "CALL_METHOD":
			if len(instr.Args) < 2 || instr.Args[0].Kind != ValueAddress || instr.Args[1].Kind != ValueString {
				return fmt.Errorf("manifest error: CALL_METHOD at instruction %d needs an address and a method name", i)
			}
		case "YIELD_TO_CHILD":
			if len(instr.Args) < 1 || instr.Args[0].Kind != ValueNamedIntent {
				return fmt.Errorf("manifest error: YIELD_TO_CHILD at instruction %d needs a named intent", i)
			}
		}
		for _, arg := range instr.Args {
			if err := m.validateValue(arg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manifest) validateValue(v Value) error {
	switch v.Kind {
	case ValueAddress:
		if _, err := ParseAddress(v.Str, m.NetworkID); err != nil {
			return fmt.Errorf("manifest error: %w", err)
		}
	case ValueTuple:
		for _, f := range v.Fields {
			if err := m.validateValue(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- parser ---

type parser struct {
	src []rune
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.done() {
		c := p.src[p.pos]
		if unicode.IsSpace(c) {
			p.pos++
			continue
		}
		// Line comments.
		if c == '#' {
			for !p.done() && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		return
	}
}

func (p *parser) ident() string {
	start := p.pos
	for !p.done() {
		c := p.src[p.pos]
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

func (p *parser) instruction() (Instruction, error) {
	name := p.ident()
	if name == "" {
		return Instruction{}, fmt.Errorf("expected instruction name at offset %d", p.pos)
	}
	var args []Value
	for {
		p.skipSpace()
		if p.done() {
			return Instruction{}, fmt.Errorf("instruction %s not terminated with ';'", name)
		}
		if p.peek() == ';' {
			p.pos++
			return Instruction{Name: name, Args: args}, nil
		}
		v, err := p.value()
		if err != nil {
			return Instruction{}, fmt.Errorf("in %s: %w", name, err)
		}
		args = append(args, v)
	}
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	switch {
	case p.peek() == '"':
		s, err := p.quoted()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueString, Str: s}, nil
	case p.peek() == '(':
		p.pos++
		p.skipSpace()
		if p.peek() != ')' {
			return Value{}, fmt.Errorf("expected ')' after '(' at offset %d", p.pos)
		}
		p.pos++
		return Value{Kind: ValueUnit}, nil
	}
	name := p.ident()
	if name == "" {
		return Value{}, fmt.Errorf("expected value at offset %d", p.pos)
	}
	p.skipSpace()
	if p.peek() != '(' {
		return Value{}, fmt.Errorf("expected '(' after %s", name)
	}
	p.pos++
	if name == "Tuple" {
		return p.tuple()
	}
	kind, ok := typedValueKinds[name]
	if !ok {
		return Value{}, fmt.Errorf("unknown value type %q", name)
	}
	p.skipSpace()
	s, err := p.quoted()
	if err != nil {
		return Value{}, fmt.Errorf("in %s: %w", name, err)
	}
	p.skipSpace()
	if p.peek() != ')' {
		return Value{}, fmt.Errorf("expected ')' to close %s", name)
	}
	p.pos++
	return Value{Kind: kind, Str: s}, nil
}

func (p *parser) tuple() (Value, error) {
	var fields []Value
	for {
		p.skipSpace()
		if p.done() {
			return Value{}, fmt.Errorf("unterminated Tuple")
		}
		if p.peek() == ')' {
			p.pos++
			return Value{Kind: ValueTuple, Fields: fields}, nil
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		v, err := p.value()
		if err != nil {
			return Value{}, fmt.Errorf("in Tuple: %w", err)
		}
		fields = append(fields, v)
	}
}

func (p *parser) quoted() (string, error) {
	if p.peek() != '"' {
		return "", fmt.Errorf("expected string literal at offset %d", p.pos)
	}
	p.pos++
	start := p.pos
	for !p.done() {
		if p.src[p.pos] == '"' {
			s := string(p.src[start:p.pos])
			p.pos++
			return s, nil
		}
		p.pos++
	}
	return "", fmt.Errorf("unterminated string literal starting at offset %d", start)
}

// --- wire encoding ---

func (m *Manifest) encode(w *writer) {
	w.u8(m.NetworkID)
	w.u32(uint32(len(m.Instructions)))
	for _, instr := range m.Instructions {
		w.str(instr.Name)
		w.u32(uint32(len(instr.Args)))
		for _, arg := range instr.Args {
			encodeValue(w, arg)
		}
	}
}

func encodeValue(w *writer, v Value) {
	w.u8(uint8(v.Kind))
	switch v.Kind {
	case ValueUnit:
	case ValueTuple:
		w.u32(uint32(len(v.Fields)))
		for _, f := range v.Fields {
			encodeValue(w, f)
		}
	default:
		w.str(v.Str)
	}
}

func decodeManifest(r *reader) Manifest {
	var m Manifest
	m.NetworkID = r.u8()
	n := r.u32()
	for i := uint32(0); i < n && r.err() == nil; i++ {
		var instr Instruction
		instr.Name = r.str()
		argc := r.u32()
		for j := uint32(0); j < argc && r.err() == nil; j++ {
			instr.Args = append(instr.Args, decodeValue(r, 0))
		}
		m.Instructions = append(m.Instructions, instr)
	}
	return m
}

const maxValueDepth = 16

func decodeValue(r *reader, depth int) Value {
	if depth > maxValueDepth {
		r.fail("manifest value nesting exceeds %d", maxValueDepth)
		return Value{}
	}
	kind := ValueKind(r.u8())
	switch kind {
	case ValueUnit:
		return Value{Kind: kind}
	case ValueTuple:
		n := r.u32()
		v := Value{Kind: kind}
		for i := uint32(0); i < n && r.err() == nil; i++ {
			v.Fields = append(v.Fields, decodeValue(r, depth+1))
		}
		return v
	case ValueString, ValueAddress, ValueDecimal, ValueBucket, ValueProof, ValueNonFungibleLocalID, ValueNamedIntent:
		return Value{Kind: kind, Str: r.str()}
	default:
		r.fail("unknown manifest value kind 0x%02x", uint8(kind))
		return Value{}
	}
}
