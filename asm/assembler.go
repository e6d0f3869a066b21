// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/aqa32/internal"
	"github.com/ezrec/aqa32/isa"
)

const (
	MAX_LINE_LENGTH = 1 << 20 // Longest accepted source line, in bytes.
)

// Assembler is a two pass assembler for the AQA32 instruction set.
//
// An Assembler holds only configuration; each call to Parse or Assemble
// works on its own state, so one Assembler may be used concurrently.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string // Predefined equates.
}

// unit is a tokenized source line that occupies one memory word.
type unit struct {
	index  int      // Source line index.
	tokens []string // Tokens, labels removed.
}

// assembly is the state of a single assembler run.
type assembly struct {
	*Assembler

	lines     []string
	units     []unit
	labels    map[string]int // Label to word address.
	labelLine map[string]int // Label to declaring source line index.
	equate    map[string]string
	pending   []string // Labels waiting for the next unit.
	pendingAt []int    // Source line index of each pending label.
}

// Assemble assembles source text with a default Assembler.
func Assemble(text string) (prog *Program, err error) {
	asm := &Assembler{}
	return asm.Assemble(text)
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Assemble assembles source text into a Program.
func (asm *Assembler) Assemble(text string) (prog *Program, err error) {
	return asm.Parse(strings.NewReader(text))
}

// Parse parses an input stream into a Program.
//
// Assembly is all or nothing: on error, no Program is returned.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	as := &assembly{
		Assembler: asm,
		labels:    map[string]int{},
		labelLine: map[string]int{},
		equate:    map[string]string{"LINENO": "0"},
	}

	for key, value := range internal.IterSeq2Concat(isa.Defines(), maps.All(asm.predefine)) {
		as.equate[key] = value
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(nil, MAX_LINE_LENGTH)
	for scanner.Scan() {
		as.lines = append(as.lines, scanner.Text())
	}
	err = scanner.Err()
	if err != nil {
		err = &ErrSyntax{Address: -1, Index: len(as.lines), Err: err}
		return
	}

	err = as.parse()
	if err != nil {
		return
	}

	words, err := as.encode()
	if err != nil {
		return
	}

	prog = &Program{
		Words:     words,
		SourceMap: make(map[int]int, len(as.units)),
		Labels:    as.labels,
		Lines:     as.lines,
	}
	for address, u := range as.units {
		prog.SourceMap[address] = u.index
	}

	return
}

// syntaxError locates err at a source line.
func (as *assembly) syntaxError(address int, index int, err error) error {
	return &ErrSyntax{
		Address: address,
		Index:   index,
		Line:    strings.TrimSpace(as.lines[index]),
		Err:     err,
	}
}

// parse tokenizes every line, collecting assembly units and labels.
func (as *assembly) parse() (err error) {
	for index, line := range as.lines {
		if as.Verbose {
			log.Printf("asm: %d: %v", index+1, line)
		}

		var tokens []string
		tokens, err = as.parseLine(line, index)
		if err != nil {
			return as.syntaxError(len(as.units), index, err)
		}

		if len(tokens) == 0 {
			continue
		}

		address := len(as.units)
		err = as.attachLabels(address)
		if err != nil {
			return
		}

		as.units = append(as.units, unit{index: index, tokens: tokens})
	}

	// Trailing labels refer to one past the end.
	return as.attachLabels(len(as.units))
}

// attachLabels binds all pending labels to an address.
func (as *assembly) attachLabels(address int) (err error) {
	for n, label := range as.pending {
		index := as.pendingAt[n]
		first, ok := as.labelLine[label]
		if ok {
			err = ErrLabelDuplicate{Label: label, Index: index, FirstIndex: first}
			return as.syntaxError(address, index, err)
		}
		as.labels[label] = address
		as.labelLine[label] = index
	}

	as.pending = as.pending[:0]
	as.pendingAt = as.pendingAt[:0]

	return
}

var reCharacter = regexp.MustCompile(`'\\?[^']'`)
var reExpression = regexp.MustCompile(`\$\([^\$]*\)`)

// stripComment removes a trailing comment: a token starting with '//'.
// Text inside $(...) is never a comment.
func stripComment(line string) string {
	depth := 0
	start := true
	for n := 0; n < len(line); n++ {
		c := line[n]
		switch {
		case depth > 0:
			switch c {
			case '(':
				depth++
			case ')':
				depth--
			}
			start = false
			continue
		case strings.HasPrefix(line[n:], "$("):
			depth = 1
			n++
			start = false
			continue
		case unicode.IsSpace(rune(c)) || c == ',':
			start = true
			continue
		case start && strings.HasPrefix(line[n:], "//"):
			return line[:n]
		}
		start = false
	}

	return line
}

// isSeparator splits tokens on whitespace and commas.
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ','
}

// parseLine tokenizes a single line, handling labels and directives.
func (as *assembly) parseLine(line string, index int) (tokens []string, err error) {
	as.equate["LINENO"] = fmt.Sprintf("%d", index+1)

	line = stripComment(line)

	// Character literals.
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\000"
			case "e":
				str = "\033"
			default:
				return word
			}
		}
		return fmt.Sprintf("%d", str[0])
	})

	// Compile-time expressions.
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := as.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	tokens = strings.FieldsFunc(line, isSeparator)

	// Labels, at the front of the line.
	for len(tokens) > 0 && strings.HasSuffix(tokens[0], ":") {
		label := strings.TrimSuffix(tokens[0], ":")
		err = checkLabel(label)
		if err != nil {
			return
		}
		if _, ok := as.equate[label]; ok {
			err = ErrLabelSyntax(label)
			return
		}
		as.pending = append(as.pending, label)
		as.pendingAt = append(as.pendingAt, index)
		tokens = tokens[1:]
	}

	if len(tokens) == 0 {
		return
	}

	// .equ NAME VALUE
	if tokens[0] == ".equ" {
		if len(tokens) != 3 {
			err = ErrEquateSyntax
			return
		}
		name := tokens[1]
		_, ok := as.equate[name]
		if ok || as.isLabel(name) {
			err = ErrEquateDuplicate
			return
		}
		as.equate[name] = as.substitute(tokens[2])
		tokens = nil
		return
	}

	for n, token := range tokens {
		tokens[n] = as.substitute(token)
	}

	return
}

// isLabel returns true if name is a declared label, bound or pending.
func (as *assembly) isLabel(name string) bool {
	if _, ok := as.labels[name]; ok {
		return true
	}
	return slices.Contains(as.pending, name)
}

// substitute replaces a token that names an equate.
func (as *assembly) substitute(token string) string {
	if value, ok := as.equate[token]; ok {
		return value
	}
	if name, ok := strings.CutPrefix(token, "#"); ok {
		if value, ok := as.equate[name]; ok {
			return "#" + value
		}
	}
	return token
}

// checkLabel verifies a label name can be referenced as an operand.
func checkLabel(label string) error {
	if len(label) == 0 {
		return ErrLabelSyntax(label + ":")
	}
	if _, _, known := isa.ParseRegister(label); known {
		return ErrLabelSyntax(label)
	}
	first := rune(label[0])
	if first == '#' || first == '-' || unicode.IsDigit(first) {
		return ErrLabelSyntax(label)
	}
	return nil
}

// parenEval evaluates a $(...) compile-time expression over the integer equates.
func (as *assembly) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range as.equate {
		v64, _err := parseInteger(str)
		if _err != nil {
			// Non-integer equates may name registers.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}

	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > 0xffffffff || st_int64 < -0x80000000 {
		err = ErrParseExpression(expr)
		return
	}

	value = uint32(st_int64)
	return
}

// parseInteger parses a decimal, 0x hexadecimal, 0o octal or 0b binary integer.
func parseInteger(token string) (value int64, err error) {
	value, err = strconv.ParseInt(token, 0, 64)
	if err != nil {
		err = ErrParseNumber(token)
	}
	return
}

// looksNumeric is true if the token was meant as a number.
func looksNumeric(token string) bool {
	token = strings.TrimPrefix(token, "#")
	token = strings.TrimPrefix(token, "-")
	return len(token) > 0 && unicode.IsDigit(rune(token[0]))
}

// encode translates every unit into a memory word.
func (as *assembly) encode() (words []isa.Word, err error) {
	words = make([]isa.Word, 0, len(as.units))

	for address, u := range as.units {
		var word isa.Word
		word, err = as.encodeUnit(u.tokens)
		if err != nil {
			err = as.syntaxError(address, u.index, err)
			words = nil
			return
		}
		words = append(words, word)
	}

	return
}

// encodeUnit encodes a single instruction or literal word.
func (as *assembly) encodeUnit(tokens []string) (word isa.Word, err error) {
	op, ok := isa.ParseOpcode(tokens[0])
	if !ok {
		return as.literal(tokens)
	}

	args := tokens[1:]
	shape := op.Shape()
	if len(args) != shape.Arity() {
		err = ErrArity{Opcode: op, Got: len(args)}
		return
	}

	fields := isa.Fields{Opcode: op}
	for n, slot := range shape.Slots() {
		switch slot {
		case isa.SLOT_RD:
			fields.Rd, err = register(args[n])
		case isa.SLOT_RN:
			fields.Rn, err = register(args[n])
		case isa.SLOT_OP2:
			fields.Mode, fields.Operand2, err = as.operand(args[n])
		}
		if err != nil {
			return
		}
	}

	word = isa.Encode(fields)
	return
}

// literal encodes a raw data word.
func (as *assembly) literal(tokens []string) (word isa.Word, err error) {
	token := tokens[0]
	if !looksNumeric(token) {
		err = ErrOpcodeUnknown(token)
		return
	}

	if len(tokens) > 1 {
		err = ErrLiteralOperands
		return
	}

	v64, err := parseInteger(strings.TrimPrefix(token, "#"))
	if err != nil {
		return
	}

	if v64 > 0xffffffff || v64 < -0x80000000 {
		err = ErrParseNumber(token)
		return
	}

	word = isa.Word(uint32(v64))
	return
}

// register decodes a register operand.
func register(token string) (reg isa.Register, err error) {
	reg, ok, _ := isa.ParseRegister(token)
	if !ok {
		err = ErrRegisterUnknown(token)
	}
	return
}

// operand resolves operand2 to a register, a label address or a literal.
func (as *assembly) operand(token string) (mode isa.AddressMode, value uint16, err error) {
	reg, ok, known := isa.ParseRegister(token)
	switch {
	case ok:
		mode = isa.MODE_DIRECT
		value = uint16(reg)
		return
	case known:
		err = ErrRegisterUnknown(token)
		return
	}

	mode = isa.MODE_IMMEDIATE
	name := strings.TrimPrefix(token, "#")

	var v64 int64
	address, ok := as.labels[name]
	if ok {
		v64 = int64(address)
	} else {
		v64, err = parseInteger(name)
		if err != nil {
			err = ErrOperandUnresolved(token)
			return
		}
	}

	if v64 < 0 || v64 > isa.OPERAND_MAX {
		err = ErrOperandRange(token)
		return
	}

	value = uint16(v64)
	return
}
