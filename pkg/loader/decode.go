// Package loader turns class files into executable instruction lists.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/daimatz/minijvm/pkg/classfile"
	"github.com/daimatz/minijvm/pkg/insn"
)

var (
	// ErrNoCode is returned for methods without a Code attribute.
	ErrNoCode = errors.New("method has no code")
	// ErrBadBytecode is returned for bytecode that cannot be decoded.
	ErrBadBytecode = errors.New("malformed bytecode")
)

// raw is one decoded instruction before labels are placed.
type raw struct {
	offset int
	node   insn.Node
	target int // branch target offset, or -1
}

// Decode converts the bytecode of m into an instruction list. Branch
// offsets become labels placed before their targets and StackMapTable
// entries become frame markers.
func Decode(cf *classfile.ClassFile, m *classfile.MethodInfo) (*insn.Method, error) {
	if m.Code == nil {
		return nil, fmt.Errorf("%w: %s%s", ErrNoCode, m.Name, m.Descriptor)
	}
	code := m.Code.Code

	d := decoder{pool: cf.ConstantPool, code: code}
	var insns []raw
	starts := make(map[int]bool)
	for d.pc < len(code) {
		r, err := d.next()
		if err != nil {
			return nil, fmt.Errorf("decoding %s%s: %w", m.Name, m.Descriptor, err)
		}
		starts[r.offset] = true
		insns = append(insns, r)
	}

	labels := make(map[int]*insn.Label)
	var targets []int
	for _, r := range insns {
		if r.target < 0 {
			continue
		}
		if !starts[r.target] {
			return nil, fmt.Errorf("decoding %s%s: %w: branch at %d to %d is not an instruction",
				m.Name, m.Descriptor, ErrBadBytecode, r.offset, r.target)
		}
		if _, ok := labels[r.target]; !ok {
			labels[r.target] = nil
			targets = append(targets, r.target)
		}
	}
	sort.Ints(targets)
	for i, off := range targets {
		labels[off] = &insn.Label{ID: i + 1}
	}

	frames := make(map[int]bool, len(m.Code.FrameOffsets))
	for _, off := range m.Code.FrameOffsets {
		frames[off] = true
	}

	nodes := make([]insn.Node, 0, len(insns)+len(labels)+len(frames))
	for _, r := range insns {
		if l := labels[r.offset]; l != nil {
			nodes = append(nodes, l)
		}
		if frames[r.offset] {
			nodes = append(nodes, &insn.FrameMarker{Offset: r.offset})
		}
		if j, ok := r.node.(*insn.JumpInsn); ok {
			j.Target = labels[r.target]
		}
		nodes = append(nodes, r.node)
	}

	return insn.NewMethod(m.Name, m.Descriptor, m.AccessFlags,
		int(m.Code.MaxStack), int(m.Code.MaxLocals), nodes), nil
}

type decoder struct {
	pool []classfile.ConstantPoolEntry
	code []byte
	pc   int
}

func (d *decoder) need(n int) error {
	if d.pc+n > len(d.code) {
		return fmt.Errorf("%w: truncated instruction at %d", ErrBadBytecode, d.pc)
	}
	return nil
}

func (d *decoder) u1() int {
	v := d.code[d.pc]
	d.pc++
	return int(v)
}

func (d *decoder) s1() int32 {
	v := int8(d.code[d.pc])
	d.pc++
	return int32(v)
}

func (d *decoder) u2() int {
	v := binary.BigEndian.Uint16(d.code[d.pc:])
	d.pc += 2
	return int(v)
}

func (d *decoder) s2() int32 {
	v := int16(binary.BigEndian.Uint16(d.code[d.pc:]))
	d.pc += 2
	return int32(v)
}

func (d *decoder) s4() int32 {
	v := int32(binary.BigEndian.Uint32(d.code[d.pc:]))
	d.pc += 4
	return v
}

// operandWidth holds the operand byte count of fixed-width opcodes with
// operands. tableswitch, lookupswitch and wide are handled separately.
var operandWidth = map[insn.Opcode]int{
	insn.BIPUSH: 1, insn.SIPUSH: 2, insn.LDC: 1, insn.LDC_W: 2, insn.LDC2_W: 2,
	insn.ILOAD: 1, insn.LLOAD: 1, insn.FLOAD: 1, insn.DLOAD: 1, insn.ALOAD: 1,
	insn.ISTORE: 1, insn.LSTORE: 1, insn.FSTORE: 1, insn.DSTORE: 1, insn.ASTORE: 1,
	insn.IINC: 2, insn.RET: 1,
	insn.GETSTATIC: 2, insn.PUTSTATIC: 2, insn.GETFIELD: 2, insn.PUTFIELD: 2,
	insn.INVOKEVIRTUAL: 2, insn.INVOKESPECIAL: 2, insn.INVOKESTATIC: 2,
	insn.INVOKEINTERFACE: 4, insn.INVOKEDYNAMIC: 4,
	insn.NEW: 2, insn.NEWARRAY: 1, insn.ANEWARRAY: 2, insn.CHECKCAST: 2, insn.INSTANCEOF: 2,
	insn.MULTIANEWARRAY: 3,
	insn.GOTO_W: 4, insn.JSR_W: 4,
}

func (d *decoder) next() (raw, error) {
	start := d.pc
	op := insn.Opcode(d.u1())
	r := raw{offset: start, target: -1}
	if !op.Defined() {
		return r, fmt.Errorf("%w: unknown opcode 0x%02X at %d", ErrBadBytecode, int(op), start)
	}

	switch {
	case op == insn.TABLESWITCH || op == insn.LOOKUPSWITCH:
		if err := d.skipSwitch(op, start); err != nil {
			return r, err
		}
		r.node = &insn.Insn{Op: op}
		return r, nil
	case op == insn.WIDE:
		return d.wide(start)
	case op.IsJump() && op != insn.GOTO_W && op != insn.JSR_W:
		if err := d.need(2); err != nil {
			return r, err
		}
		r.target = start + int(d.s2())
		r.node = &insn.JumpInsn{Op: op}
		return r, nil
	}

	if err := d.need(operandWidth[op]); err != nil {
		return r, err
	}
	switch op {
	case insn.BIPUSH:
		r.node = &insn.IntInsn{Op: op, Operand: d.s1()}
	case insn.SIPUSH:
		r.node = &insn.IntInsn{Op: op, Operand: d.s2()}
	case insn.LDC, insn.LDC_W, insn.LDC2_W:
		var index int
		if op == insn.LDC {
			index = d.u1()
		} else {
			index = d.u2()
		}
		c, err := d.constant(index)
		if err != nil {
			return r, fmt.Errorf("%s at %d: %w", op, start, err)
		}
		r.node = &insn.LdcInsn{Const: c}
	case insn.ILOAD, insn.LLOAD, insn.FLOAD, insn.DLOAD, insn.ALOAD,
		insn.ISTORE, insn.LSTORE, insn.FSTORE, insn.DSTORE, insn.ASTORE, insn.RET:
		r.node = &insn.VarInsn{Op: op, Var: d.u1()}
	case insn.IINC:
		index := d.u1()
		r.node = &insn.IincInsn{Var: index, Incr: d.s1()}
	case insn.GOTO_W, insn.JSR_W:
		r.target = start + int(d.s4())
		r.node = &insn.JumpInsn{Op: op}
	default:
		if v, ok := shortForm(op); ok {
			r.node = v
			break
		}
		d.pc += operandWidth[op]
		r.node = &insn.Insn{Op: op}
	}
	return r, nil
}

// shortForm expands xload_<n> and xstore_<n> to their indexed forms.
func shortForm(op insn.Opcode) (*insn.VarInsn, bool) {
	switch {
	case op >= insn.ILOAD_0 && op <= insn.ALOAD_0+3:
		n := int(op - insn.ILOAD_0)
		return &insn.VarInsn{Op: insn.ILOAD + insn.Opcode(n/4), Var: n % 4}, true
	case op >= insn.ISTORE_0 && op <= insn.ASTORE_0+3:
		n := int(op - insn.ISTORE_0)
		return &insn.VarInsn{Op: insn.ISTORE + insn.Opcode(n/4), Var: n % 4}, true
	}
	return nil, false
}

func (d *decoder) wide(start int) (raw, error) {
	r := raw{offset: start, target: -1}
	if err := d.need(3); err != nil {
		return r, err
	}
	op := insn.Opcode(d.u1())
	switch op {
	case insn.IINC:
		if err := d.need(4); err != nil {
			return r, err
		}
		index := d.u2()
		r.node = &insn.IincInsn{Var: index, Incr: d.s2()}
	case insn.ILOAD, insn.LLOAD, insn.FLOAD, insn.DLOAD, insn.ALOAD,
		insn.ISTORE, insn.LSTORE, insn.FSTORE, insn.DSTORE, insn.ASTORE, insn.RET:
		r.node = &insn.VarInsn{Op: op, Var: d.u2()}
	default:
		return r, fmt.Errorf("%w: wide %s at %d", ErrBadBytecode, op, start)
	}
	return r, nil
}

// skipSwitch steps over the padding and jump table of a switch. Switches
// are never executed, so their targets get no labels.
func (d *decoder) skipSwitch(op insn.Opcode, start int) error {
	pad := (4 - (start+1)%4) % 4
	if err := d.need(pad + 8); err != nil {
		return err
	}
	d.pc += pad
	d.s4() // default
	var entries int
	if op == insn.TABLESWITCH {
		low := d.s4()
		if err := d.need(4); err != nil {
			return err
		}
		high := d.s4()
		if high < low {
			return fmt.Errorf("%w: tableswitch at %d has low %d > high %d", ErrBadBytecode, start, low, high)
		}
		entries = (int(high) - int(low) + 1) * 4
	} else {
		npairs := d.s4()
		if npairs < 0 {
			return fmt.Errorf("%w: lookupswitch at %d has %d pairs", ErrBadBytecode, start, npairs)
		}
		entries = int(npairs) * 8
	}
	if err := d.need(entries); err != nil {
		return err
	}
	d.pc += entries
	return nil
}

func (d *decoder) constant(index int) (insn.Constant, error) {
	entry, err := classfile.GetEntry(d.pool, uint16(index))
	if err != nil {
		return insn.Constant{}, err
	}
	switch c := entry.(type) {
	case *classfile.ConstantInteger:
		return insn.IntConst(c.Value), nil
	case *classfile.ConstantLong:
		return insn.LongConst(c.Value), nil
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(d.pool, c.StringIndex)
		if err != nil {
			return insn.Constant{}, err
		}
		return insn.StringConst(s), nil
	}
	return insn.Constant{}, fmt.Errorf("%w: unsupported constant tag %d at index %d", ErrBadBytecode, entry.Tag(), index)
}
