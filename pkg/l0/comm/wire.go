package comm

// writer appends postcard-compatible primitives.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) varint(v uint32) {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
}

func (w *writer) u16(v uint16) {
	w.varint(uint32(v))
}

func (w *writer) i16(v int16) {
	w.varint(uint32(uint16((v << 1) ^ (v >> 15))))
}

// reader consumes postcard-compatible primitives. The first error sticks.
type reader struct {
	buf []byte
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) == 0 {
		r.fail(ErrUnexpectedEnd)
		return 0
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v
}

func (r *reader) boolean() bool {
	switch r.u8() {
	case 0:
		return false
	case 1:
		return true
	}
	r.fail(ErrBadBool)
	return false
}

// varint reads an unsigned LEB128 value of at most bits width.
func (r *reader) varint(bits uint) uint32 {
	var v uint32
	for shift := uint(0); ; shift += 7 {
		if shift >= bits {
			r.fail(ErrBadVarint)
			return 0
		}
		b := r.u8()
		if r.err != nil {
			return 0
		}
		part := uint32(b & 0x7f)
		if (uint64(part)<<shift)>>bits != 0 {
			r.fail(ErrBadVarint)
			return 0
		}
		v |= part << shift
		if b&0x80 == 0 {
			return v
		}
	}
}

func (r *reader) tag() uint32 {
	return r.varint(32)
}

func (r *reader) u16() uint16 {
	return uint16(r.varint(16))
}

func (r *reader) i16() int16 {
	z := r.u16()
	return int16(z>>1) ^ -int16(z&1)
}

func (r *reader) finish() error {
	if r.err == nil && len(r.buf) > 0 {
		r.err = ErrTrailingBytes
	}
	return r.err
}
