package codec

// walkBits calls fn for every bit of sig from least to most significant,
// passing the bit index within the raw value and its absolute payload bit
// position (byte*8 + bit-in-byte).
func walkBits(sig *Signal, fn func(i, pos int)) {
	if sig.ByteOrder == BigEndian {
		// Motorola: start bit is the MSB; walk towards the LSB, then
		// report in LSB-first order.
		positions := make([]int, sig.Length)
		pos := sig.StartBit
		for i := sig.Length - 1; i >= 0; i-- {
			positions[i] = pos
			if pos%8 == 0 {
				pos += 15
			} else {
				pos--
			}
		}
		for i, p := range positions {
			fn(i, p)
		}
		return
	}
	for i := 0; i < sig.Length; i++ {
		fn(i, sig.StartBit+i)
	}
}

// packRaw writes the low sig.Length bits of raw into buf.
func packRaw(buf []byte, sig *Signal, raw uint64) {
	walkBits(sig, func(i, pos int) {
		mask := byte(1) << uint(pos%8)
		if raw>>uint(i)&1 == 1 {
			buf[pos/8] |= mask
		} else {
			buf[pos/8] &^= mask
		}
	})
}

// unpackRaw reads sig.Length bits from buf.
func unpackRaw(buf []byte, sig *Signal) uint64 {
	var raw uint64
	walkBits(sig, func(i, pos int) {
		if buf[pos/8]>>uint(pos%8)&1 == 1 {
			raw |= 1 << uint(i)
		}
	})
	return raw
}

// signExtend interprets the low n bits of raw as two's complement.
func signExtend(raw uint64, n int) int64 {
	if n >= 64 {
		return int64(raw)
	}
	shift := uint(64 - n)
	return int64(raw<<shift) >> shift
}
