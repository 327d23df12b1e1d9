package vm

import (
	"errors"
	"testing"

	"github.com/daimatz/minijvm/pkg/insn"
)

func newTestFrame(t *testing.T, maxStack, maxLocals int) *Frame {
	t.Helper()
	f, err := NewFrame(maxStack, maxLocals, noFrame, insn.Ref{})
	if err != nil {
		t.Fatalf("NewFrame(%d, %d): %v", maxStack, maxLocals, err)
	}
	return f
}

func TestFramePushPop(t *testing.T) {
	t.Run("LIFO order", func(t *testing.T) {
		frame := newTestFrame(t, 3, 0)

		for _, v := range []int32{10, 20, 30} {
			if err := frame.Push(IntValue(v)); err != nil {
				t.Fatalf("Push(%d): %v", v, err)
			}
		}
		for _, want := range []int32{30, 20, 10} {
			v, err := frame.Pop(KindInt)
			if err != nil {
				t.Fatalf("Pop: %v", err)
			}
			if v.Int != want {
				t.Errorf("got %d, want %d", v.Int, want)
			}
		}
	})

	t.Run("push after pop reuses space", func(t *testing.T) {
		frame := newTestFrame(t, 2, 0)

		frame.Push(IntValue(1))
		frame.Push(IntValue(2))
		frame.Pop(KindInt) // remove 2

		if err := frame.Push(IntValue(3)); err != nil {
			t.Fatalf("Push: %v", err)
		}
		v, _ := frame.Pop(KindInt)
		if v.Int != 3 {
			t.Errorf("got %d, want 3", v.Int)
		}
		v, _ = frame.Pop(KindInt)
		if v.Int != 1 {
			t.Errorf("got %d, want 1", v.Int)
		}
	})

	t.Run("long values", func(t *testing.T) {
		frame := newTestFrame(t, 1, 0)

		frame.Push(LongValue(1 << 40))
		v, err := frame.Pop(KindLong)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if v.Long != 1<<40 {
			t.Errorf("got %d, want %d", v.Long, int64(1<<40))
		}
	})
}

func TestFrameStackErrors(t *testing.T) {
	t.Run("overflow", func(t *testing.T) {
		frame := newTestFrame(t, 1, 0)
		frame.Push(IntValue(1))

		err := frame.Push(IntValue(2))
		if !errors.Is(err, ErrStackOverflow) {
			t.Fatalf("got %v, want ErrStackOverflow", err)
		}
		if frame.Size() != 1 {
			t.Errorf("size: got %d, want 1", frame.Size())
		}
	})

	t.Run("zero capacity", func(t *testing.T) {
		frame := newTestFrame(t, 0, 0)
		if err := frame.Push(IntValue(1)); !errors.Is(err, ErrStackOverflow) {
			t.Errorf("got %v, want ErrStackOverflow", err)
		}
	})

	t.Run("underflow", func(t *testing.T) {
		frame := newTestFrame(t, 2, 0)
		if _, err := frame.Pop(KindInt); !errors.Is(err, ErrStackUnderflow) {
			t.Errorf("got %v, want ErrStackUnderflow", err)
		}
	})

	t.Run("type mismatch keeps operand", func(t *testing.T) {
		frame := newTestFrame(t, 2, 0)
		frame.Push(LongValue(7))

		if _, err := frame.Pop(KindInt); !errors.Is(err, ErrTypeMismatch) {
			t.Fatalf("got %v, want ErrTypeMismatch", err)
		}
		if got := frame.OperandTypes(); got != "J" {
			t.Errorf("operand types: got %q, want %q", got, "J")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		frame := newTestFrame(t, 2, 0)
		for _, v := range []Value{{}, {Kind: 7, Int: 1}} {
			if err := frame.Push(v); !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("Push(%v): got %v, want ErrTypeMismatch", v, err)
			}
		}
		if frame.Size() != 0 {
			t.Errorf("size: got %d, want 0", frame.Size())
		}
		if got := frame.OperandTypes(); got != "" {
			t.Errorf("operand types: got %q, want empty", got)
		}
	})
}

func TestFrameLocals(t *testing.T) {
	t.Run("store then load", func(t *testing.T) {
		frame := newTestFrame(t, 0, 3)
		frame.Store(0, IntValue(42))
		frame.Store(2, LongValue(-9))

		v, err := frame.Load(0, KindInt)
		if err != nil || v.Int != 42 {
			t.Errorf("Load(0): got %v, %v, want 42", v, err)
		}
		v, err = frame.Load(2, KindLong)
		if err != nil || v.Long != -9 {
			t.Errorf("Load(2): got %v, %v, want -9", v, err)
		}
	})

	t.Run("overwrite changes kind", func(t *testing.T) {
		frame := newTestFrame(t, 0, 1)
		frame.Store(0, IntValue(1))
		frame.Store(0, LongValue(2))

		if _, err := frame.Load(0, KindInt); !errors.Is(err, ErrTypeMismatch) {
			t.Errorf("got %v, want ErrTypeMismatch", err)
		}
	})

	tests := []struct {
		name  string
		setup func(f *Frame)
		index int
		kind  Kind
		want  error
	}{
		{"negative index", nil, -1, KindInt, ErrOutOfBounds},
		{"index past end", nil, 2, KindInt, ErrOutOfBounds},
		{"never stored", nil, 1, KindInt, ErrUninitializedSlot},
		{"wrong kind", func(f *Frame) { f.Store(0, IntValue(1)) }, 0, KindLong, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := newTestFrame(t, 0, 2)
			if tt.setup != nil {
				tt.setup(frame)
			}
			if _, err := frame.Load(tt.index, tt.kind); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("store out of range", func(t *testing.T) {
		frame := newTestFrame(t, 0, 1)
		if err := frame.Store(1, IntValue(1)); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("got %v, want ErrOutOfBounds", err)
		}
	})

	t.Run("store invalid value", func(t *testing.T) {
		frame := newTestFrame(t, 0, 2)
		if err := frame.Store(1, IntValue(5)); err != nil {
			t.Fatalf("Store(1): %v", err)
		}
		for _, v := range []Value{{}, {Kind: 7}} {
			if err := frame.Store(0, v); !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("Store(0, %v): got %v, want ErrTypeMismatch", v, err)
			}
			if err := frame.Store(1, v); !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("Store(1, %v): got %v, want ErrTypeMismatch", v, err)
			}
		}
		if _, err := frame.Load(0, KindInt); !errors.Is(err, ErrUninitializedSlot) {
			t.Errorf("Load(0): got %v, want ErrUninitializedSlot", err)
		}
		if v, err := frame.Load(1, KindInt); err != nil || v.Int != 5 {
			t.Errorf("Load(1): got %v, %v, want 5", v, err)
		}
	})
}

func TestFrameInspection(t *testing.T) {
	frame := newTestFrame(t, 3, 0)

	if _, ok := frame.Peek(); ok {
		t.Error("Peek on empty stack: got ok")
	}
	if got := frame.OperandTypes(); got != "" {
		t.Errorf("empty operand types: got %q", got)
	}

	frame.Push(IntValue(1))
	frame.Push(LongValue(2))
	frame.Push(IntValue(3))

	if got := frame.OperandTypes(); got != "IJI" {
		t.Errorf("operand types: got %q, want %q", got, "IJI")
	}
	v, ok := frame.Peek()
	if !ok || v.Int != 3 {
		t.Errorf("Peek: got %v, %v, want 3", v, ok)
	}
	if frame.Size() != 3 {
		t.Errorf("Peek changed size: got %d, want 3", frame.Size())
	}
}

func TestNewFrameInvalidSize(t *testing.T) {
	for _, sizes := range [][2]int{{-1, 0}, {0, -1}} {
		if _, err := NewFrame(sizes[0], sizes[1], noFrame, insn.Ref{}); !errors.Is(err, ErrInvalidFrameSize) {
			t.Errorf("NewFrame(%d, %d): got %v, want ErrInvalidFrameSize", sizes[0], sizes[1], err)
		}
	}
}
