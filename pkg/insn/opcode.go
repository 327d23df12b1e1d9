package insn

import "fmt"

// Opcode is a JVM instruction opcode.
type Opcode int

// NoOpcode is reported by structural markers, which carry no instruction.
const NoOpcode Opcode = -1

// Opcodes
const (
	NOP             Opcode = 0x00
	ACONST_NULL     Opcode = 0x01
	ICONST_M1       Opcode = 0x02
	ICONST_0        Opcode = 0x03
	ICONST_1        Opcode = 0x04
	ICONST_2        Opcode = 0x05
	ICONST_3        Opcode = 0x06
	ICONST_4        Opcode = 0x07
	ICONST_5        Opcode = 0x08
	LCONST_0        Opcode = 0x09
	LCONST_1        Opcode = 0x0A
	BIPUSH          Opcode = 0x10
	SIPUSH          Opcode = 0x11
	LDC             Opcode = 0x12
	LDC_W           Opcode = 0x13
	LDC2_W          Opcode = 0x14
	ILOAD           Opcode = 0x15
	LLOAD           Opcode = 0x16
	FLOAD           Opcode = 0x17
	DLOAD           Opcode = 0x18
	ALOAD           Opcode = 0x19
	ILOAD_0         Opcode = 0x1A
	LLOAD_0         Opcode = 0x1E
	FLOAD_0         Opcode = 0x22
	DLOAD_0         Opcode = 0x26
	ALOAD_0         Opcode = 0x2A
	ISTORE          Opcode = 0x36
	LSTORE          Opcode = 0x37
	FSTORE          Opcode = 0x38
	DSTORE          Opcode = 0x39
	ASTORE          Opcode = 0x3A
	ISTORE_0        Opcode = 0x3B
	LSTORE_0        Opcode = 0x3F
	FSTORE_0        Opcode = 0x43
	DSTORE_0        Opcode = 0x47
	ASTORE_0        Opcode = 0x4B
	POP             Opcode = 0x57
	DUP             Opcode = 0x59
	IADD            Opcode = 0x60
	LADD            Opcode = 0x61
	ISUB            Opcode = 0x64
	LSUB            Opcode = 0x65
	IMUL            Opcode = 0x68
	LMUL            Opcode = 0x69
	IDIV            Opcode = 0x6C
	INEG            Opcode = 0x74
	LNEG            Opcode = 0x75
	IINC            Opcode = 0x84
	I2L             Opcode = 0x85
	L2I             Opcode = 0x88
	I2B             Opcode = 0x91
	I2C             Opcode = 0x92
	I2S             Opcode = 0x93
	LCMP            Opcode = 0x94
	IFEQ            Opcode = 0x99
	IFNE            Opcode = 0x9A
	IFLT            Opcode = 0x9B
	IFGE            Opcode = 0x9C
	IFGT            Opcode = 0x9D
	IFLE            Opcode = 0x9E
	IF_ICMPEQ       Opcode = 0x9F
	IF_ICMPNE       Opcode = 0xA0
	IF_ICMPLT       Opcode = 0xA1
	IF_ICMPGE       Opcode = 0xA2
	IF_ICMPGT       Opcode = 0xA3
	IF_ICMPLE       Opcode = 0xA4
	IF_ACMPEQ       Opcode = 0xA5
	IF_ACMPNE       Opcode = 0xA6
	GOTO            Opcode = 0xA7
	JSR             Opcode = 0xA8
	RET             Opcode = 0xA9
	TABLESWITCH     Opcode = 0xAA
	LOOKUPSWITCH    Opcode = 0xAB
	IRETURN         Opcode = 0xAC
	RETURN          Opcode = 0xB1
	GETSTATIC       Opcode = 0xB2
	PUTSTATIC       Opcode = 0xB3
	GETFIELD        Opcode = 0xB4
	PUTFIELD        Opcode = 0xB5
	INVOKEVIRTUAL   Opcode = 0xB6
	INVOKESPECIAL   Opcode = 0xB7
	INVOKESTATIC    Opcode = 0xB8
	INVOKEINTERFACE Opcode = 0xB9
	INVOKEDYNAMIC   Opcode = 0xBA
	NEW             Opcode = 0xBB
	NEWARRAY        Opcode = 0xBC
	ANEWARRAY       Opcode = 0xBD
	CHECKCAST       Opcode = 0xC0
	INSTANCEOF      Opcode = 0xC1
	WIDE            Opcode = 0xC4
	MULTIANEWARRAY  Opcode = 0xC5
	IFNULL          Opcode = 0xC6
	IFNONNULL       Opcode = 0xC7
	GOTO_W          Opcode = 0xC8
	JSR_W           Opcode = 0xC9
)

// mnemonics holds the display name of every opcode defined by the JVM SE
// instruction set, indexed by opcode value.
var mnemonics = [...]string{
	"NOP", "ACONST_NULL", "ICONST_M1", "ICONST_0", "ICONST_1", "ICONST_2",
	"ICONST_3", "ICONST_4", "ICONST_5", "LCONST_0", "LCONST_1", "FCONST_0",
	"FCONST_1", "FCONST_2", "DCONST_0", "DCONST_1", "BIPUSH", "SIPUSH", "LDC",
	"LDC_W", "LDC2_W", "ILOAD", "LLOAD", "FLOAD", "DLOAD", "ALOAD", "ILOAD_0",
	"ILOAD_1", "ILOAD_2", "ILOAD_3", "LLOAD_0", "LLOAD_1", "LLOAD_2", "LLOAD_3",
	"FLOAD_0", "FLOAD_1", "FLOAD_2", "FLOAD_3", "DLOAD_0", "DLOAD_1", "DLOAD_2",
	"DLOAD_3", "ALOAD_0", "ALOAD_1", "ALOAD_2", "ALOAD_3", "IALOAD", "LALOAD",
	"FALOAD", "DALOAD", "AALOAD", "BALOAD", "CALOAD", "SALOAD", "ISTORE",
	"LSTORE", "FSTORE", "DSTORE", "ASTORE", "ISTORE_0", "ISTORE_1", "ISTORE_2",
	"ISTORE_3", "LSTORE_0", "LSTORE_1", "LSTORE_2", "LSTORE_3", "FSTORE_0",
	"FSTORE_1", "FSTORE_2", "FSTORE_3", "DSTORE_0", "DSTORE_1", "DSTORE_2",
	"DSTORE_3", "ASTORE_0", "ASTORE_1", "ASTORE_2", "ASTORE_3", "IASTORE",
	"LASTORE", "FASTORE", "DASTORE", "AASTORE", "BASTORE", "CASTORE", "SASTORE",
	"POP", "POP2", "DUP", "DUP_X1", "DUP_X2", "DUP2", "DUP2_X1", "DUP2_X2",
	"SWAP", "IADD", "LADD", "FADD", "DADD", "ISUB", "LSUB", "FSUB", "DSUB",
	"IMUL", "LMUL", "FMUL", "DMUL", "IDIV", "LDIV", "FDIV", "DDIV", "IREM",
	"LREM", "FREM", "DREM", "INEG", "LNEG", "FNEG", "DNEG", "ISHL", "LSHL",
	"ISHR", "LSHR", "IUSHR", "LUSHR", "IAND", "LAND", "IOR", "LOR", "IXOR",
	"LXOR", "IINC", "I2L", "I2F", "I2D", "L2I", "L2F", "L2D", "F2I", "F2L",
	"F2D", "D2I", "D2L", "D2F", "I2B", "I2C", "I2S", "LCMP", "FCMPL", "FCMPG",
	"DCMPL", "DCMPG", "IFEQ", "IFNE", "IFLT", "IFGE", "IFGT", "IFLE",
	"IF_ICMPEQ", "IF_ICMPNE", "IF_ICMPLT", "IF_ICMPGE", "IF_ICMPGT",
	"IF_ICMPLE", "IF_ACMPEQ", "IF_ACMPNE", "GOTO", "JSR", "RET", "TABLESWITCH",
	"LOOKUPSWITCH", "IRETURN", "LRETURN", "FRETURN", "DRETURN", "ARETURN",
	"RETURN", "GETSTATIC", "PUTSTATIC", "GETFIELD", "PUTFIELD",
	"INVOKEVIRTUAL", "INVOKESPECIAL", "INVOKESTATIC", "INVOKEINTERFACE",
	"INVOKEDYNAMIC", "NEW", "NEWARRAY", "ANEWARRAY", "ARRAYLENGTH", "ATHROW",
	"CHECKCAST", "INSTANCEOF", "MONITORENTER", "MONITOREXIT", "WIDE",
	"MULTIANEWARRAY", "IFNULL", "IFNONNULL", "GOTO_W", "JSR_W",
}

// Defined reports whether op is part of the JVM instruction set.
func (op Opcode) Defined() bool {
	return op >= 0 && int(op) < len(mnemonics)
}

// String returns the mnemonic of op.
func (op Opcode) String() string {
	if op == NoOpcode {
		return "<marker>"
	}
	if !op.Defined() {
		return fmt.Sprintf("<0x%02X>", int(op))
	}
	return mnemonics[op]
}

// IsJump reports whether op transfers control to a label operand.
func (op Opcode) IsJump() bool {
	switch {
	case op >= IFEQ && op <= JSR:
		return true
	case op == IFNULL || op == IFNONNULL || op == GOTO_W || op == JSR_W:
		return true
	}
	return false
}
