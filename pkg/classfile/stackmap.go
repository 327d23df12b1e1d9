package classfile

import "fmt"

// Verification type tags that carry a u2 operand.
const (
	itemObject        = 7
	itemUninitialized = 8
)

// parseStackMapTable returns the bytecode offset of every frame in a
// StackMapTable attribute. Only offsets are kept; the verification types
// are skipped.
func parseStackMapTable(data []byte) ([]int, error) {
	r := newReader(data)
	count := r.u2("number of entries")
	if r.err != nil {
		return nil, r.err
	}

	offsets := make([]int, 0, count)
	offset := -1
	for i := 0; i < int(count); i++ {
		frameType := r.u1("frame type")

		var delta uint16
		switch {
		case frameType <= 63: // same_frame
			delta = uint16(frameType)
		case frameType <= 127: // same_locals_1_stack_item_frame
			delta = uint16(frameType - 64)
			skipVerificationTypes(r, 1)
		case frameType <= 246:
			return nil, fmt.Errorf("frame %d: reserved frame type %d", i, frameType)
		case frameType == 247: // same_locals_1_stack_item_frame_extended
			delta = r.u2("offset_delta")
			skipVerificationTypes(r, 1)
		case frameType <= 251: // chop_frame, same_frame_extended
			delta = r.u2("offset_delta")
		case frameType <= 254: // append_frame
			delta = r.u2("offset_delta")
			skipVerificationTypes(r, int(frameType)-251)
		default: // full_frame
			delta = r.u2("offset_delta")
			skipVerificationTypes(r, int(r.u2("number_of_locals")))
			skipVerificationTypes(r, int(r.u2("number_of_stack_items")))
		}
		if r.err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, r.err)
		}

		offset += int(delta) + 1
		offsets = append(offsets, offset)
	}
	if n := r.remaining(); n != 0 {
		return nil, fmt.Errorf("%d trailing bytes", n)
	}
	return offsets, nil
}

// skipVerificationTypes reads n verification_type_info entries. Errors are
// left in r.err.
func skipVerificationTypes(r *reader, n int) {
	for i := 0; i < n && r.err == nil; i++ {
		switch tag := r.u1("verification type"); {
		case tag == itemObject || tag == itemUninitialized:
			r.u2("verification type operand")
		case tag > itemUninitialized:
			r.err = fmt.Errorf("unknown verification type %d", tag)
		}
	}
}
