package vm

import (
	"errors"
	"math"
	"testing"

	"github.com/daimatz/minijvm/pkg/insn"
)

// runUntilReturn enters method and executes it up to, but not including,
// the final RETURN so the entry frame can still be inspected.
func runUntilReturn(t *testing.T, method *insn.Method) *Machine {
	t.Helper()

	m := NewMachine()
	if err := m.Enter(method); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	it := NewInterpreter(m, WithMaxSteps(1000))
	for {
		n, ok := m.PeekInstruction()
		if !ok {
			t.Fatal("program ended before RETURN")
		}
		if n.Opcode() == insn.RETURN {
			return m
		}
		if err := it.Next(); err != nil {
			t.Fatalf("execution error: %v", err)
		}
	}
}

func topInt(t *testing.T, m *Machine) int32 {
	t.Helper()
	v, err := m.PopInt()
	if err != nil {
		t.Fatalf("PopInt: %v", err)
	}
	return v
}

func topLong(t *testing.T, m *Machine) int64 {
	t.Helper()
	v, err := m.PopLong()
	if err != nil {
		t.Fatalf("PopLong: %v", err)
	}
	return v
}

// runError executes method to completion and returns the error it failed
// with.
func runError(t *testing.T, method *insn.Method) error {
	t.Helper()
	m := NewMachine()
	if err := m.Enter(method); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	err := NewInterpreter(m).Run()
	if err == nil {
		t.Fatal("Run: got nil error")
	}
	return err
}

func TestIntArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		v1, v2 int32
		op     func(*insn.Builder) *insn.Builder
		want   int32
	}{
		{"iadd", 2, 3, func(b *insn.Builder) *insn.Builder { return b.Add(insn.Int) }, 5},
		{"iadd overflow", math.MaxInt32, 1, func(b *insn.Builder) *insn.Builder { return b.Add(insn.Int) }, math.MinInt32},
		{"isub", 10, 3, func(b *insn.Builder) *insn.Builder { return b.Sub(insn.Int) }, 7},
		{"isub order", 3, 10, func(b *insn.Builder) *insn.Builder { return b.Sub(insn.Int) }, -7},
		{"isub underflow", math.MinInt32, 1, func(b *insn.Builder) *insn.Builder { return b.Sub(insn.Int) }, math.MaxInt32},
		{"imul", 6, 7, func(b *insn.Builder) *insn.Builder { return b.Mul(insn.Int) }, 42},
		{"imul overflow", 0x10000, 0x10000, func(b *insn.Builder) *insn.Builder { return b.Mul(insn.Int) }, 0},
		{"imul negative", -6, 7, func(b *insn.Builder) *insn.Builder { return b.Mul(insn.Int) }, -42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.op(insn.NewBuilder("main").Push(tt.v1).Push(tt.v2)).Build()
			m := runUntilReturn(t, method)
			if got := topInt(t, m); got != tt.want {
				t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestLongArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		v1, v2 int64
		op     func(*insn.Builder) *insn.Builder
		want   int64
	}{
		{"ladd", 1 << 40, 1, func(b *insn.Builder) *insn.Builder { return b.Add(insn.Long) }, 1<<40 + 1},
		{"ladd overflow", math.MaxInt64, 1, func(b *insn.Builder) *insn.Builder { return b.Add(insn.Long) }, math.MinInt64},
		{"lsub", 5, 8, func(b *insn.Builder) *insn.Builder { return b.Sub(insn.Long) }, -3},
		{"lmul", 1 << 32, 1 << 31, func(b *insn.Builder) *insn.Builder { return b.Mul(insn.Long) }, math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.op(insn.NewBuilder("main").PushLong(tt.v1).PushLong(tt.v2)).Build()
			m := runUntilReturn(t, method)
			if got := topLong(t, m); got != tt.want {
				t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestNegate(t *testing.T) {
	t.Run("ineg", func(t *testing.T) {
		tests := []struct {
			v, want int32
		}{
			{5, -5},
			{-5, 5},
			{0, 0},
			{math.MinInt32, math.MinInt32},
		}
		for _, tt := range tests {
			m := runUntilReturn(t, insn.NewBuilder("main").Push(tt.v).Neg(insn.Int).Build())
			if got := topInt(t, m); got != tt.want {
				t.Errorf("ineg %d: got %d, want %d", tt.v, got, tt.want)
			}
		}
	})

	t.Run("lneg", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").PushLong(math.MinInt64).Neg(insn.Long).Build())
		if got := topLong(t, m); got != math.MinInt64 {
			t.Errorf("got %d, want %d", got, int64(math.MinInt64))
		}
	})
}

func TestConversions(t *testing.T) {
	intTests := []struct {
		name string
		v    int32
		conv func(*insn.Builder) *insn.Builder
		want int32
	}{
		{"i2b 300", 300, (*insn.Builder).I2B, 44},
		{"i2b 200", 200, (*insn.Builder).I2B, -56},
		{"i2b -1", -1, (*insn.Builder).I2B, -1},
		{"i2s 42", 42, (*insn.Builder).I2S, 42},
		{"i2s 40000", 40000, (*insn.Builder).I2S, -25536},
		{"i2s 65536", 65536, (*insn.Builder).I2S, 0},
	}
	for _, tt := range intTests {
		t.Run(tt.name, func(t *testing.T) {
			m := runUntilReturn(t, tt.conv(insn.NewBuilder("main").Push(tt.v)).Build())
			if got := topInt(t, m); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("i2l sign extends", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").Push(-1).I2L().Build())
		if got := topLong(t, m); got != -1 {
			t.Errorf("got %d, want -1", got)
		}
	})

	t.Run("l2i truncates", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").PushLong(1<<32+5).L2I().Build())
		if got := topInt(t, m); got != 5 {
			t.Errorf("got %d, want 5", got)
		}
	})

	t.Run("l2i keeps low bits sign", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").PushLong(0xFFFFFFFF).L2I().Build())
		if got := topInt(t, m); got != -1 {
			t.Errorf("got %d, want -1", got)
		}
	})
}

func TestLcmp(t *testing.T) {
	tests := []struct {
		name   string
		v1, v2 int64
		want   int32
	}{
		{"less", 0, 1, -1},
		{"greater", 1, 0, 1},
		{"equal", 5, 5, 0},
		{"extremes", math.MinInt64, math.MaxInt64, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := insn.NewBuilder("main").PushLong(tt.v1).PushLong(tt.v2).Op(insn.LCMP).Build()
			m := runUntilReturn(t, method)
			if got := topInt(t, m); got != tt.want {
				t.Errorf("lcmp(%d, %d): got %d, want %d", tt.v1, tt.v2, got, tt.want)
			}
		})
	}
}

// branchResult builds a program that pushes 1 if the jump emitted by jump
// is taken and 0 otherwise.
func branchResult(t *testing.T, setup func(b *insn.Builder, taken *insn.Label)) int32 {
	t.Helper()
	b := insn.NewBuilder("main")
	taken, end := b.NewLabel(), b.NewLabel()
	setup(b, taken)
	b.Push(0).Goto(end).Mark(taken).Push(1).Mark(end)
	return topInt(t, runUntilReturn(t, b.Build()))
}

func TestIfIcmp(t *testing.T) {
	tests := []struct {
		name   string
		cmp    insn.Comparison
		v1, v2 int32
		taken  bool
	}{
		{"if_icmpeq true", insn.EQ, 4, 4, true},
		{"if_icmpeq false", insn.EQ, 4, 5, false},
		{"if_icmpne true", insn.NE, 4, 5, true},
		{"if_icmpne false", insn.NE, 4, 4, false},
		{"if_icmplt true", insn.LT, 1, 2, true},
		{"if_icmplt false", insn.LT, 5, 3, false},
		{"if_icmplt equal", insn.LT, 3, 3, false},
		{"if_icmple equal", insn.LE, 3, 3, true},
		{"if_icmple false", insn.LE, 4, 3, false},
		{"if_icmpgt true", insn.GT, 5, 3, true},
		{"if_icmpgt false", insn.GT, 3, 5, false},
		{"if_icmpge equal", insn.GE, 3, 3, true},
		{"if_icmpge false", insn.GE, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := branchResult(t, func(b *insn.Builder, taken *insn.Label) {
				b.Push(tt.v1).Push(tt.v2).IfCmp(insn.Int, tt.cmp, taken)
			})
			if (got == 1) != tt.taken {
				t.Errorf("taken: got %v, want %v", got == 1, tt.taken)
			}
		})
	}
}

func TestIfZero(t *testing.T) {
	tests := []struct {
		name  string
		cmp   insn.Comparison
		v     int32
		taken bool
	}{
		{"ifeq zero", insn.EQ, 0, true},
		{"ifeq nonzero", insn.EQ, 1, false},
		{"ifne nonzero", insn.NE, -3, true},
		{"ifne zero", insn.NE, 0, false},
		{"iflt negative", insn.LT, -1, true},
		{"iflt zero", insn.LT, 0, false},
		{"ifle zero", insn.LE, 0, true},
		{"ifle positive", insn.LE, 1, false},
		{"ifgt positive", insn.GT, 1, true},
		{"ifgt zero", insn.GT, 0, false},
		{"ifge zero", insn.GE, 0, true},
		{"ifge negative", insn.GE, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := branchResult(t, func(b *insn.Builder, taken *insn.Label) {
				b.Push(tt.v).IfZero(tt.cmp, taken)
			})
			if (got == 1) != tt.taken {
				t.Errorf("taken: got %v, want %v", got == 1, tt.taken)
			}
		})
	}
}

func TestLongCompareBranch(t *testing.T) {
	got := branchResult(t, func(b *insn.Builder, taken *insn.Label) {
		b.PushLong(7).PushLong(7).IfCmp(insn.Long, insn.EQ, taken)
	})
	if got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestLocalVariables(t *testing.T) {
	t.Run("istore iload", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").Push(21).Store(insn.Int, 0).Load(insn.Int, 0).Build())
		if got := topInt(t, m); got != 21 {
			t.Errorf("got %d, want 21", got)
		}
	})

	t.Run("lstore lload", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").PushLong(-1<<40).Store(insn.Long, 1).Load(insn.Long, 1).Build())
		if got := topLong(t, m); got != -1<<40 {
			t.Errorf("got %d, want %d", got, int64(-1<<40))
		}
	})

	t.Run("iinc", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").Push(10).Store(insn.Int, 0).Inc(0, -3).Load(insn.Int, 0).Build())
		if got := topInt(t, m); got != 7 {
			t.Errorf("got %d, want 7", got)
		}
	})

	t.Run("iinc wraps", func(t *testing.T) {
		m := runUntilReturn(t, insn.NewBuilder("main").Push(math.MaxInt32).Store(insn.Int, 0).Inc(0, 1).Build())
		if got, _ := m.LoadInt(0); got != math.MinInt32 {
			t.Errorf("got %d, want %d", got, int32(math.MinInt32))
		}
	})
}

func TestActionErrors(t *testing.T) {
	tests := []struct {
		name   string
		method *insn.Method
		pos    int
		op     insn.Opcode
		want   error
	}{
		{
			name:   "iadd on long",
			method: insn.NewBuilder("main").PushLong(1).PushLong(2).Add(insn.Int).Build(),
			pos:    2, op: insn.IADD, want: ErrTypeMismatch,
		},
		{
			name:   "iload of empty slot",
			method: insn.NewBuilder("main").Load(insn.Int, 0).Build(),
			pos:    0, op: insn.ILOAD, want: ErrUninitializedSlot,
		},
		{
			name:   "lload of int slot",
			method: insn.NewBuilder("main").Push(1).Store(insn.Int, 0).Load(insn.Long, 0).Build(),
			pos:    2, op: insn.LLOAD, want: ErrTypeMismatch,
		},
		{
			name:   "istore past max locals",
			method: insn.NewBuilder("main").Push(1).Store(insn.Int, 3).Maxs(1, 1).Build(),
			pos:    1, op: insn.ISTORE, want: ErrOutOfBounds,
		},
		{
			name:   "ineg on empty stack",
			method: insn.NewBuilder("main").Neg(insn.Int).Build(),
			pos:    0, op: insn.INEG, want: ErrStackUnderflow,
		},
		{
			name:   "push past max stack",
			method: insn.NewBuilder("main").Push(1).Push(2).Maxs(1, 1).Build(),
			pos:    1, op: insn.BIPUSH, want: ErrStackOverflow,
		},
		{
			name: "ldc of string",
			method: insn.NewMethod("main", "()V", insn.AccPublic|insn.AccStatic, 1, 0, []insn.Node{
				&insn.LdcInsn{Const: insn.StringConst("hello")},
				&insn.Insn{Op: insn.RETURN},
			}),
			pos: 0, op: insn.LDC, want: ErrTypeMismatch,
		},
		{
			name: "bipush without operand",
			method: insn.NewMethod("main", "()V", insn.AccPublic|insn.AccStatic, 1, 0, []insn.Node{
				&insn.Insn{Op: insn.BIPUSH},
			}),
			pos: 0, op: insn.BIPUSH, want: ErrMalformedInstruction,
		},
		{
			name: "jump to foreign label",
			method: insn.NewMethod("main", "()V", insn.AccPublic|insn.AccStatic, 1, 0, []insn.Node{
				&insn.JumpInsn{Op: insn.GOTO, Target: &insn.Label{ID: 9}},
			}),
			pos: 0, op: insn.GOTO, want: ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runError(t, tt.method)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var execErr *ExecError
			if !errors.As(err, &execErr) {
				t.Fatalf("got %T, want *ExecError", err)
			}
			if execErr.Pos != tt.pos || execErr.Op != tt.op {
				t.Errorf("got %s at %d, want %s at %d", execErr.Op, execErr.Pos, tt.op, tt.pos)
			}
		})
	}
}

func TestReturnPopsEntryFrame(t *testing.T) {
	m := NewMachine()
	if err := m.Enter(insn.NewBuilder("main").Build()); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	it := NewInterpreter(m)

	if err := it.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if m.Depth() != 0 {
		t.Errorf("depth: got %d, want 0", m.Depth())
	}
	if it.HasNext() {
		t.Error("HasNext after return: got true")
	}
}
