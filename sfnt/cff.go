package sfnt

// CFF holds the pieces of a parsed 'CFF '/'CFF2' table needed to
// execute Type 2 charstrings: the charstring per glyph, the global
// subroutine index, and (selected per glyph via FDSelect, for CID-keyed
// fonts) a local subroutine index.
type CFF struct {
	IsCFF2       bool
	charStrings  [][]byte
	globalSubrs  [][]byte
	localSubrs   [][]byte // non-CID default
	fdLocalSubrs [][][]byte
	fdSelect     []uint8 // len(charStrings); index into fdLocalSubrs, empty if non-CID
	NominalWidthX, DefaultWidthX float64

	// VarStore is CFF2's "vstore" ItemVariationStore (Top DICT operator
	// 24): it backs the blend/vsindex charstring operators that
	// evaluate a variable font's blended outlines (spec §4.9).
	VarStore *ItemVariationStore
}

// CFF returns the parsed 'CFF ' (PostScript, version 1) table.
func (f *Face) CFF() (*CFF, error) {
	return cachedTable(f, TagCFF, func(d []byte) (*CFF, error) { return parseCFF(d, false) })
}

// CFF2 returns the parsed 'CFF2' (variable-capable) table.
func (f *Face) CFF2() (*CFF, error) {
	return cachedTable(f, TagCFF2, func(d []byte) (*CFF, error) { return parseCFF(d, true) })
}

// cffIndex reads a CFF INDEX structure starting at offset, returning
// its entries and the offset just past it.
func cffIndex(c *Cursor, offset int, isCFF2 bool) ([][]byte, int, bool) {
	countSize := 2
	if isCFF2 {
		countSize = 4
	}
	var count uint32
	var ok bool
	if isCFF2 {
		count, ok = c.U32(offset)
	} else {
		v, o := c.U16(offset)
		count, ok = uint32(v), o
	}
	if !ok {
		return nil, offset, false
	}
	if count == 0 {
		return nil, offset + countSize, true
	}
	offSizeOff := offset + countSize
	offSize, ok := c.U8(offSizeOff)
	if !ok || offSize < 1 || offSize > 4 {
		return nil, offset, false
	}
	offArrayBase := offSizeOff + 1
	readOff := func(i int) (uint32, bool) {
		base := offArrayBase + int(offSize)*i
		if !c.CheckRange(base, int(offSize)) {
			return 0, false
		}
		var v uint32
		for k := 0; k < int(offSize); k++ {
			b, _ := c.U8(base + k)
			v = v<<8 | uint32(b)
		}
		return v, true
	}
	offsets := make([]uint32, count+1)
	for i := 0; i <= int(count); i++ {
		v, ok := readOff(i)
		if !ok {
			return nil, offset, false
		}
		offsets[i] = v
	}
	dataBase := offArrayBase + int(offSize)*(int(count)+1) - 1
	entries := make([][]byte, count)
	for i := 0; i < int(count); i++ {
		start := dataBase + int(offsets[i])
		end := dataBase + int(offsets[i+1])
		if end < start || !c.CheckRange(start, end-start) {
			return nil, offset, false
		}
		entries[i] = c.Bytes()[start:end]
	}
	return entries, dataBase + int(offsets[count]), true
}

// cffDict parses a CFF DICT's operator/operand pairs into a map from
// operator code (two-byte "12 x" operators encoded as 1200+x) to the
// operand stack preceding it.
func cffDict(data []byte) map[int][]float64 {
	out := map[int][]float64{}
	var operands []float64
	i := 0
	for i < len(data) {
		b0 := data[i]
		switch {
		case b0 <= 21 || b0 == 24:
			op := int(b0)
			i++
			if b0 == 12 && i < len(data) {
				op = 1200 + int(data[i])
				i++
			}
			out[op] = operands
			operands = nil
		case b0 == 28:
			if i+3 > len(data) {
				return out
			}
			v := int16(uint16(data[i+1])<<8 | uint16(data[i+2]))
			operands = append(operands, float64(v))
			i += 3
		case b0 == 29:
			if i+5 > len(data) {
				return out
			}
			v := int32(uint32(data[i+1])<<24 | uint32(data[i+2])<<16 | uint32(data[i+3])<<8 | uint32(data[i+4]))
			operands = append(operands, float64(v))
			i += 5
		case b0 == 30: // real number
			i++
			for i < len(data) {
				b := data[i]
				i++
				if b&0xF == 0xF || b>>4 == 0xF {
					break
				}
			}
			operands = append(operands, 0) // real operands unused by the values we read
		case b0 >= 32 && b0 <= 246:
			operands = append(operands, float64(int(b0)-139))
			i++
		case b0 >= 247 && b0 <= 250:
			if i+2 > len(data) {
				return out
			}
			operands = append(operands, float64((int(b0)-247)*256+int(data[i+1])+108))
			i += 2
		case b0 >= 251 && b0 <= 254:
			if i+2 > len(data) {
				return out
			}
			operands = append(operands, float64(-(int(b0)-251)*256-int(data[i+1])-108))
			i += 2
		default:
			i++
		}
	}
	return out
}

const (
	dictOpCharStrings = 17
	dictOpPrivate     = 18
	dictOpFDArray     = 1236
	dictOpFDSelect    = 1237
	dictOpCharstringType = 1206
	dictOpVarStore    = 24 // CFF2 Top DICT "vstore" (single-byte operator 24)
)

func bias(n int, isCFF2 bool) int {
	// CFF2 charstrings always use the Type 2 bias rule.
	_ = isCFF2
	switch {
	case n < 1240:
		return 107
	case n < 33900:
		return 1131
	default:
		return 32768
	}
}

func parseCFF(data []byte, isCFF2 bool) (*CFF, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 4) {
		return nil, ErrInvalidTable
	}
	hdrSize, ok := c.U8(2)
	if !ok {
		return nil, ErrInvalidTable
	}

	var topDicts [][]byte
	pos := int(hdrSize)
	if !isCFF2 {
		_, pos1, ok := cffIndex(c, pos, false) // Name INDEX
		if !ok {
			return nil, ErrInvalidTable
		}
		pos = pos1
		var ok2 bool
		topDicts, pos, ok2 = cffIndex(c, pos, false)
		if !ok2 || len(topDicts) == 0 {
			return nil, ErrInvalidTable
		}
		_, pos, ok = cffIndex(c, pos, false) // String INDEX
		if !ok {
			return nil, ErrInvalidTable
		}
	} else {
		topLen, ok := c.U16(3)
		if !ok || !c.CheckRange(pos, int(topLen)) {
			return nil, ErrInvalidTable
		}
		topDicts = [][]byte{c.Bytes()[pos : pos+int(topLen)]}
		pos += int(topLen)
	}

	globalSubrs, pos, ok := cffIndex(c, pos, false)
	if !ok {
		return nil, ErrInvalidTable
	}
	_ = pos

	top := cffDict(topDicts[0])
	csOff, ok := top[dictOpCharStrings]
	if !ok || len(csOff) == 0 {
		return nil, ErrInvalidTable
	}
	charStrings, _, ok := cffIndex(c, int(csOff[0]), isCFF2)
	if !ok {
		return nil, ErrInvalidTable
	}

	out := &CFF{IsCFF2: isCFF2, charStrings: charStrings, globalSubrs: globalSubrs}

	if priv, ok := top[dictOpPrivate]; ok && len(priv) == 2 {
		privSize, privOff := int(priv[0]), int(priv[1])
		if c.CheckRange(privOff, privSize) {
			pd := cffDict(c.Bytes()[privOff : privOff+privSize])
			if v, ok := pd[19]; ok && len(v) == 1 { // Subrs, local to Private DICT offset
				if subrs, _, ok := cffIndex(c, privOff+int(v[0]), isCFF2); ok {
					out.localSubrs = subrs
				}
			}
			if v, ok := pd[20]; ok && len(v) == 1 {
				out.DefaultWidthX = v[0]
			}
			if v, ok := pd[21]; ok && len(v) == 1 {
				out.NominalWidthX = v[0]
			}
		}
	}

	if isCFF2 {
		if vsOff, ok := top[dictOpVarStore]; ok && len(vsOff) == 1 {
			if store, ok := ParseItemVariationStore(c, int(vsOff[0])); ok {
				out.VarStore = store
			}
		}
	}

	if fdaOff, ok := top[dictOpFDArray]; ok && len(fdaOff) == 1 {
		fdArray, _, ok := cffIndex(c, int(fdaOff[0]), isCFF2)
		if ok {
			out.fdLocalSubrs = make([][][]byte, len(fdArray))
			for i, fd := range fdArray {
				fdDict := cffDict(fd)
				if priv, ok := fdDict[dictOpPrivate]; ok && len(priv) == 2 {
					privSize, privOff := int(priv[0]), int(priv[1])
					if c.CheckRange(privOff, privSize) {
						pd := cffDict(c.Bytes()[privOff : privOff+privSize])
						if v, ok := pd[19]; ok && len(v) == 1 {
							if subrs, _, ok := cffIndex(c, privOff+int(v[0]), isCFF2); ok {
								out.fdLocalSubrs[i] = subrs
							}
						}
					}
				}
			}
		}
		if fdsOff, ok := top[dictOpFDSelect]; ok && len(fdsOff) == 1 {
			out.fdSelect = parseFDSelect(c, int(fdsOff[0]), len(charStrings))
		}
	}

	return out, nil
}

func parseFDSelect(c *Cursor, offset, numGlyphs int) []uint8 {
	format, ok := c.U8(offset)
	if !ok {
		return nil
	}
	out := make([]uint8, numGlyphs)
	switch format {
	case 0:
		if !c.CheckRange(offset+1, numGlyphs) {
			return nil
		}
		for i := 0; i < numGlyphs; i++ {
			v, _ := c.U8(offset + 1 + i)
			out[i] = v
		}
	case 3:
		nRanges, ok := c.U16(offset + 1)
		if !ok {
			return nil
		}
		base := offset + 3
		for i := 0; i < int(nRanges); i++ {
			first, _ := c.U16(base + 3*i)
			fd, _ := c.U8(base + 3*i + 2)
			next, _ := c.U16(base + 3*(i+1))
			for g := int(first); g < int(next) && g < numGlyphs; g++ {
				out[g] = fd
			}
		}
	}
	return out
}

// Charstring returns the Type 2 charstring bytes for gid.
func (cff *CFF) Charstring(gid GlyphID) ([]byte, bool) {
	if cff == nil || int(gid) >= len(cff.charStrings) {
		return nil, false
	}
	return cff.charStrings[gid], true
}

// GlobalSubrs returns the bias-indexed global subroutine index.
func (cff *CFF) GlobalSubrs() [][]byte { return cff.globalSubrs }

// LocalSubrs returns the local subroutine index applicable to gid,
// selecting the CID FDArray entry through FDSelect when present.
func (cff *CFF) LocalSubrs(gid GlyphID) [][]byte {
	if len(cff.fdSelect) > int(gid) {
		fd := cff.fdSelect[gid]
		if int(fd) < len(cff.fdLocalSubrs) {
			return cff.fdLocalSubrs[fd]
		}
	}
	return cff.localSubrs
}

// SubrBias computes the Type 2 charstring bias for an index of size n.
func SubrBias(n int) int { return bias(n, false) }
