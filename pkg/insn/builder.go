package insn

import "math"

// Type selects the int or long flavour of an instruction.
type Type int

const (
	Int Type = iota
	Long
)

// Comparison is the relation tested by a conditional jump.
type Comparison int

const (
	EQ Comparison = iota
	NE
	LT
	LE
	GT
	GE
)

// binary returns the if_icmp<cond> opcode, unary the if<cond> opcode.
func (c Comparison) binary() Opcode {
	return [...]Opcode{IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPLE, IF_ICMPGT, IF_ICMPGE}[c]
}

func (c Comparison) unary() Opcode {
	return [...]Opcode{IFEQ, IFNE, IFLT, IFLE, IFGT, IFGE}[c]
}

const mainDescriptor = "([Ljava/lang/String;)V"

// Builder assembles a Method instruction by instruction, restricted to the
// instruction subset the interpreter executes. Build appends the final
// RETURN and computes the frame sizes unless they were set explicitly.
type Builder struct {
	name      string
	desc      string
	access    uint16
	code      []Node
	labels    int
	maxLocals int
	maxStack  int
	fixed     bool
}

// NewBuilder starts a public static void method taking a String[] argument,
// the shape of an entry point.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:      name,
		desc:      mainDescriptor,
		access:    AccPublic | AccStatic,
		maxLocals: 1,
	}
}

// Push emits the shortest instruction pushing the int v: bipush for byte
// range, sipush for short range and ldc otherwise.
func (b *Builder) Push(v int32) *Builder {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return b.emit(&IntInsn{Op: BIPUSH, Operand: v})
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return b.emit(&IntInsn{Op: SIPUSH, Operand: v})
	}
	return b.emit(&LdcInsn{Const: IntConst(v)})
}

// PushLong emits ldc for the long v.
func (b *Builder) PushLong(v int64) *Builder {
	return b.emit(&LdcInsn{Const: LongConst(v)})
}

// Add emits iadd or ladd.
func (b *Builder) Add(t Type) *Builder { return b.op(t, IADD, LADD) }

// Sub emits isub or lsub.
func (b *Builder) Sub(t Type) *Builder { return b.op(t, ISUB, LSUB) }

// Mul emits imul or lmul.
func (b *Builder) Mul(t Type) *Builder { return b.op(t, IMUL, LMUL) }

// Neg emits ineg or lneg.
func (b *Builder) Neg(t Type) *Builder { return b.op(t, INEG, LNEG) }

// Load emits iload or lload of slot v.
func (b *Builder) Load(t Type, v int) *Builder {
	b.use(t, v)
	if t == Long {
		return b.emit(&VarInsn{Op: LLOAD, Var: v})
	}
	return b.emit(&VarInsn{Op: ILOAD, Var: v})
}

// Store emits istore or lstore to slot v.
func (b *Builder) Store(t Type, v int) *Builder {
	b.use(t, v)
	if t == Long {
		return b.emit(&VarInsn{Op: LSTORE, Var: v})
	}
	return b.emit(&VarInsn{Op: ISTORE, Var: v})
}

// I2B emits i2b.
func (b *Builder) I2B() *Builder { return b.emit(&Insn{Op: I2B}) }

// I2S emits i2s.
func (b *Builder) I2S() *Builder { return b.emit(&Insn{Op: I2S}) }

// I2L emits i2l.
func (b *Builder) I2L() *Builder { return b.emit(&Insn{Op: I2L}) }

// L2I emits l2i.
func (b *Builder) L2I() *Builder { return b.emit(&Insn{Op: L2I}) }

// Inc emits iinc of slot v by amount.
func (b *Builder) Inc(v int, amount int32) *Builder {
	b.use(Int, v)
	return b.emit(&IincInsn{Var: v, Incr: amount})
}

// NewLabel returns a label that is not yet placed.
func (b *Builder) NewLabel() *Label {
	b.labels++
	return &Label{ID: b.labels}
}

// Mark places l at the current position.
func (b *Builder) Mark(l *Label) *Builder { return b.emit(l) }

// Frame places a stack map frame marker at the current position.
func (b *Builder) Frame() *Builder { return b.emit(&FrameMarker{Offset: len(b.code)}) }

// IfCmp emits a jump to l taken when the two topmost values satisfy c. For
// longs this is lcmp followed by the zero comparison.
func (b *Builder) IfCmp(t Type, c Comparison, l *Label) *Builder {
	if t == Long {
		b.emit(&Insn{Op: LCMP})
		return b.emit(&JumpInsn{Op: c.unary(), Target: l})
	}
	return b.emit(&JumpInsn{Op: c.binary(), Target: l})
}

// IfZero emits a jump to l taken when the topmost int satisfies c against 0.
func (b *Builder) IfZero(c Comparison, l *Label) *Builder {
	return b.emit(&JumpInsn{Op: c.unary(), Target: l})
}

// Goto emits an unconditional jump to l.
func (b *Builder) Goto(l *Label) *Builder {
	return b.emit(&JumpInsn{Op: GOTO, Target: l})
}

// Op emits op without operands. It accepts any opcode, including ones the
// interpreter rejects.
func (b *Builder) Op(op Opcode) *Builder { return b.emit(&Insn{Op: op}) }

// Maxs fixes the frame sizes instead of computing them.
func (b *Builder) Maxs(maxStack, maxLocals int) *Builder {
	b.maxStack, b.maxLocals, b.fixed = maxStack, maxLocals, true
	return b
}

// Build appends RETURN and returns the finished method.
func (b *Builder) Build() *Method {
	b.emit(&Insn{Op: RETURN})
	m := NewMethod(b.name, b.desc, b.access, b.maxStack, b.maxLocals, b.code)
	if !b.fixed {
		m.MaxStack = maxStack(m)
	}
	return m
}

func (b *Builder) op(t Type, i, l Opcode) *Builder {
	if t == Long {
		return b.emit(&Insn{Op: l})
	}
	return b.emit(&Insn{Op: i})
}

func (b *Builder) use(t Type, v int) {
	n := v + 1
	if t == Long {
		n = v + 2
	}
	if !b.fixed && n > b.maxLocals {
		b.maxLocals = n
	}
}

func (b *Builder) emit(n Node) *Builder {
	b.code = append(b.code, n)
	return b
}

// stackEffect returns the net operand stack change of n. Long values take a
// single slot in this model.
func stackEffect(n Node) int {
	switch n := n.(type) {
	case *IntInsn, *LdcInsn:
		return 1
	case *VarInsn:
		switch n.Op {
		case ILOAD, LLOAD, FLOAD, DLOAD, ALOAD:
			return 1
		}
		return -1
	case *JumpInsn:
		switch {
		case n.Op >= IF_ICMPEQ && n.Op <= IF_ACMPNE:
			return -2
		case n.Op == GOTO || n.Op == GOTO_W:
			return 0
		}
		return -1
	case *Insn:
		switch n.Op {
		case IADD, LADD, ISUB, LSUB, IMUL, LMUL, IDIV, LCMP, POP:
			return -1
		case DUP:
			return 1
		}
	}
	return 0
}

// maxStack computes the deepest operand stack reachable along any path
// through m.
func maxStack(m *Method) int {
	depth := make([]int, len(m.Code))
	seen := make([]bool, len(m.Code))
	deepest := 0
	var work []int
	if len(m.Code) > 0 {
		seen[0] = true
		work = append(work, 0)
	}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		d := depth[i]
	walk:
		for i < len(m.Code) {
			n := m.Code[i]
			d += stackEffect(n)
			if d < 0 {
				d = 0
			}
			if d > deepest {
				deepest = d
			}
			switch n := n.(type) {
			case *JumpInsn:
				if t := m.IndexOf(n.Target); t >= 0 && !seen[t] {
					seen[t] = true
					depth[t] = d
					work = append(work, t)
				}
				if n.Op == GOTO || n.Op == GOTO_W {
					break walk
				}
			case *Insn:
				if n.Op >= IRETURN && n.Op <= RETURN {
					break walk
				}
			}
			i++
			if i >= len(m.Code) || seen[i] {
				break
			}
			seen[i] = true
			depth[i] = d
		}
	}
	return deepest
}
