package ir

import "fmt"

// ExceptionRegion is one protected range -> handler mapping (spec §3, §6).
// Regions may nest to represent finally/else wrapping.
type ExceptionRegion struct {
	Start, End uint32 // [Start, End) in byte offsets
	Handler    uint32 // handler entry byte offset
	StackDepth int    // stack depth expected at handler entry
	HasLasti   bool   // 3.11+: handler seed includes (exit_fn, exc_triple) = 4 slots
}

// DecodeExceptionTable decodes the variable-length 7-bit-continuation
// integer sequence described in spec §6: each entry is (start, length,
// target, depth_with_lasti_flag) in instruction units, converted here to
// byte offsets (the caller-supplied unit multiplier, 2 for 3.11+ words).
func DecodeExceptionTable(raw []byte, unitToByte uint32) ([]ExceptionRegion, error) {
	var regions []ExceptionRegion
	pos := 0
	readVarint := func() (uint64, error) {
		var x uint64
		var shift uint
		for {
			if pos >= len(raw) {
				return 0, fmt.Errorf("ir: truncated exception table at byte %d", pos)
			}
			b := raw[pos]
			pos++
			x |= uint64(b&0x7f) << shift
			if b&0x80 == 0 {
				return x, nil
			}
			shift += 7
		}
	}
	for pos < len(raw) {
		start, err := readVarint()
		if err != nil {
			return nil, err
		}
		length, err := readVarint()
		if err != nil {
			return nil, err
		}
		target, err := readVarint()
		if err != nil {
			return nil, err
		}
		depthLasti, err := readVarint()
		if err != nil {
			return nil, err
		}
		regions = append(regions, ExceptionRegion{
			Start:      uint32(start) * unitToByte,
			End:        uint32(start+length) * unitToByte,
			Handler:    uint32(target) * unitToByte,
			StackDepth: int(depthLasti >> 1),
			HasLasti:   depthLasti&1 != 0,
		})
	}
	return regions, nil
}
