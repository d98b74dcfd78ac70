package comm

// MaxStuffedLen is the worst-case COBS encoded size of n bytes, without delimiter.
func MaxStuffedLen(n int) int {
	return n + n/254 + 1
}

// cobsEncode stuffs src into dst, which must hold MaxStuffedLen(len(src)) bytes.
// It returns the number of bytes written. No delimiter is appended.
func cobsEncode(dst, src []byte) int {
	codeAt, out, code := 0, 1, byte(1)
	for _, b := range src {
		if b == 0 {
			dst[codeAt] = code
			codeAt, code = out, 1
			out++
			continue
		}
		dst[out] = b
		out++
		code++
		if code == 0xff {
			dst[codeAt] = code
			codeAt, code = out, 1
			out++
		}
	}
	dst[codeAt] = code
	return out
}

// cobsDecodeInPlace reverses cobsEncode over buf (without delimiter) and
// returns the decoded length. Decoding never writes ahead of the read position.
func cobsDecodeInPlace(buf []byte) (int, error) {
	in, out := 0, 0
	for in < len(buf) {
		code := buf[in]
		if code == 0 {
			return 0, ErrCOBS
		}
		in++
		end := in + int(code) - 1
		if end > len(buf) {
			return 0, ErrCOBS
		}
		for ; in < end; in++ {
			if buf[in] == 0 {
				return 0, ErrCOBS
			}
			buf[out] = buf[in]
			out++
		}
		if code != 0xff && in < len(buf) {
			buf[out] = 0
			out++
		}
	}
	return out, nil
}
