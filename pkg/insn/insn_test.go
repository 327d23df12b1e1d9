package insn

import (
	"bytes"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{NOP, "NOP"},
		{BIPUSH, "BIPUSH"},
		{LDC2_W, "LDC2_W"},
		{ILOAD_0, "ILOAD_0"},
		{LSTORE_0 + 3, "LSTORE_3"},
		{IF_ICMPLT, "IF_ICMPLT"},
		{RETURN, "RETURN"},
		{JSR_W, "JSR_W"},
		{NoOpcode, "<marker>"},
		{Opcode(0xCA), "<0xCA>"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(%d).String(): got %q, want %q", int(tt.op), got, tt.want)
		}
	}
}

func TestOpcodeIsJump(t *testing.T) {
	for _, op := range []Opcode{IFEQ, IF_ICMPGE, IF_ACMPNE, GOTO, JSR, IFNULL, GOTO_W} {
		if !op.IsJump() {
			t.Errorf("%s.IsJump(): got false", op)
		}
	}
	for _, op := range []Opcode{LCMP, RET, TABLESWITCH, RETURN, NoOpcode} {
		if op.IsJump() {
			t.Errorf("%s.IsJump(): got true", op)
		}
	}
}

func TestFormat(t *testing.T) {
	l := &Label{ID: 3}
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"nil", nil, ""},
		{"label", l, "L3:"},
		{"frame", &FrameMarker{Offset: 7}, "FRAME @7"},
		{"plain", &Insn{Op: IMUL}, "IMUL"},
		{"int operand", &IntInsn{Op: SIPUSH, Operand: -300}, "SIPUSH -300"},
		{"var", &VarInsn{Op: LLOAD, Var: 2}, "LLOAD 2"},
		{"iinc", &IincInsn{Var: 1, Incr: -1}, "IINC 1, -1"},
		{"jump", &JumpInsn{Op: GOTO, Target: l}, "GOTO L3"},
		{"ldc int", &LdcInsn{Const: IntConst(-889275715)}, "LDC -889275715"},
		{"ldc long", &LdcInsn{Const: LongConst(1 << 40)}, "LDC 1099511627776"},
		{"ldc string", &LdcInsn{Const: StringConst("hi")}, `LDC "hi"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.node); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuilderPushSelectsInstruction(t *testing.T) {
	tests := []struct {
		v    int32
		want string
	}{
		{0, "BIPUSH 0"},
		{-128, "BIPUSH -128"},
		{127, "BIPUSH 127"},
		{128, "SIPUSH 128"},
		{-32768, "SIPUSH -32768"},
		{32768, "LDC 32768"},
		{-889275715, "LDC -889275715"},
	}
	for _, tt := range tests {
		m := NewBuilder("main").Push(tt.v).Build()
		if got := Format(m.Code[0]); got != tt.want {
			t.Errorf("Push(%d): got %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestBuilderFrameSizes(t *testing.T) {
	loop := func() *Method {
		b := NewBuilder("main")
		body, cond := b.NewLabel(), b.NewLabel()
		return b.Push(0).Store(Int, 1).Goto(cond).
			Mark(body).Inc(1, 1).
			Mark(cond).Load(Int, 1).Push(3).IfCmp(Int, LT, body).
			Build()
	}

	tests := []struct {
		name      string
		method    *Method
		maxStack  int
		maxLocals int
	}{
		{
			name:   "arithmetic",
			method: NewBuilder("main").Push(2).Push(3).Mul(Int).Push(6).Neg(Int).Push(128).Sub(Int).Add(Int).Build(),
			maxStack: 3, maxLocals: 1,
		},
		{
			name:   "loop",
			method: loop(),
			maxStack: 2, maxLocals: 2,
		},
		{
			name:   "long local",
			method: NewBuilder("main").PushLong(1).Store(Long, 1).Build(),
			maxStack: 1, maxLocals: 3,
		},
		{
			name:   "lcmp",
			method: NewBuilder("main").PushLong(0).PushLong(1).Op(LCMP).Build(),
			maxStack: 2, maxLocals: 1,
		},
		{
			name:   "fixed",
			method: NewBuilder("main").Push(1).Store(Int, 5).Maxs(4, 2).Build(),
			maxStack: 4, maxLocals: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.method.MaxStack != tt.maxStack {
				t.Errorf("max stack: got %d, want %d", tt.method.MaxStack, tt.maxStack)
			}
			if tt.method.MaxLocals != tt.maxLocals {
				t.Errorf("max locals: got %d, want %d", tt.method.MaxLocals, tt.maxLocals)
			}
		})
	}
}

func TestBuilderEntryShape(t *testing.T) {
	m := NewBuilder("main").Build()
	if m.AccessFlags != AccPublic|AccStatic {
		t.Errorf("access: got 0x%04X, want 0x%04X", m.AccessFlags, AccPublic|AccStatic)
	}
	if m.Descriptor != "([Ljava/lang/String;)V" {
		t.Errorf("descriptor: got %q", m.Descriptor)
	}
	if len(m.Code) != 1 || m.Code[0].Opcode() != RETURN {
		t.Errorf("code: got %d nodes, want a single RETURN", len(m.Code))
	}
}

func TestMethodCursor(t *testing.T) {
	b := NewBuilder("main")
	l := b.NewLabel()
	unused := b.NewLabel()
	m := b.Mark(l).Frame().Push(1).Goto(l).Build()

	first := m.First()
	if first.Index() != 2 {
		t.Errorf("First: got %d, want 2", first.Index())
	}
	if got := m.Resolve(l); got != first {
		t.Errorf("Resolve: got %v, want %v", got, first)
	}
	if got := m.Resolve(unused); got.Valid() {
		t.Errorf("Resolve of unplaced label: got %v, want end", got)
	}
	if m.IndexOf(l) != 0 || m.IndexOf(unused) != -1 {
		t.Errorf("IndexOf: got %d and %d, want 0 and -1", m.IndexOf(l), m.IndexOf(unused))
	}

	var ops []Opcode
	for r := m.First(); r.Valid(); r = r.Next() {
		ops = append(ops, r.Node().Opcode())
	}
	want := []Opcode{BIPUSH, GOTO, RETURN}
	if len(ops) != len(want) {
		t.Fatalf("got %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("instruction %d: got %s, want %s", i, ops[i], want[i])
		}
	}

	var end Ref
	if end.Valid() || end.Node() != nil || end.Index() != -1 || end.Next().Valid() {
		t.Error("zero Ref should point at nothing")
	}
	if end.String() != "<end>" || first.String() != "main@2" {
		t.Errorf("String: got %q and %q", end.String(), first.String())
	}
}

func TestDisassemble(t *testing.T) {
	b := NewBuilder("main")
	l := b.NewLabel()
	m := b.Push(1).Mark(l).Frame().Push(2).Build()

	var buf bytes.Buffer
	if err := m.Disassemble(&buf); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	want := "main([Ljava/lang/String;)V  stack=2, locals=1\n" +
		"   0:   BIPUSH 1\n" +
		"      L1:\n" +
		"      FRAME @2\n" +
		"   3:   BIPUSH 2\n" +
		"   4:   RETURN\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
