package sfnt

// StatAxis is one 'STAT' design-axis record.
type StatAxis struct {
	Tag      Tag
	NameID   uint16
	Ordering uint16
}

// StatAxisValue is one 'STAT' axis-value table (formats 1-4 collapsed
// to the fields shaping and naming actually need).
type StatAxisValue struct {
	Format     uint16
	AxisIndex  uint16
	Value      float64
	NominalValue float64
	RangeMin   float64
	RangeMax   float64
	Flags      uint16
	ValueNameID uint16
}

// STAT is the parsed 'STAT' table: axis records plus axis-value tables,
// used to resolve named style positions across axes.
type STAT struct {
	Axes   []StatAxis
	Values []StatAxisValue
}

// STAT returns the parsed 'STAT' table.
func (f *Face) STAT() (STAT, error) { return cachedTable(f, TagSTAT, parseSTAT) }

func parseSTAT(data []byte) (STAT, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 16) {
		return STAT{}, ErrInvalidTable
	}
	major, _ := c.U16(0)
	if major != 1 {
		return STAT{}, ErrInvalidTable
	}
	axisSize, _ := c.U16(4)
	axisCount, _ := c.U16(6)
	axisOff, _ := c.U32(8)
	valueCount, _ := c.U16(12)
	valueOff, _ := c.U32(14)

	var out STAT
	for i := 0; i < int(axisCount); i++ {
		base := int(axisOff) + int(axisSize)*i
		if !c.CheckRange(base, 8) {
			break
		}
		tag, _ := c.Tag(base)
		nameID, _ := c.U16(base + 4)
		ordering, _ := c.U16(base + 6)
		out.Axes = append(out.Axes, StatAxis{Tag: tag, NameID: nameID, Ordering: ordering})
	}

	for i := 0; i < int(valueCount); i++ {
		offOff := int(valueOff) + 2*i
		rel, ok := c.U16(offOff)
		if !ok {
			break
		}
		base := int(valueOff) + int(rel)
		format, ok := c.U16(base)
		if !ok {
			continue
		}
		var v StatAxisValue
		v.Format = format
		switch format {
		case 1:
			v.AxisIndex, _ = c.U16(base + 2)
			v.Flags, _ = c.U16(base + 4)
			v.ValueNameID, _ = c.U16(base + 6)
			fx, _ := c.U32(base + 8)
			v.Value = fixed16_16(fx)
		case 2:
			v.AxisIndex, _ = c.U16(base + 2)
			v.Flags, _ = c.U16(base + 4)
			v.ValueNameID, _ = c.U16(base + 6)
			nom, _ := c.U32(base + 8)
			lo, _ := c.U32(base + 12)
			hi, _ := c.U32(base + 16)
			v.NominalValue = fixed16_16(nom)
			v.RangeMin = fixed16_16(lo)
			v.RangeMax = fixed16_16(hi)
		case 3:
			v.AxisIndex, _ = c.U16(base + 2)
			v.Flags, _ = c.U16(base + 4)
			v.ValueNameID, _ = c.U16(base + 6)
			fx, _ := c.U32(base + 8)
			v.Value = fixed16_16(fx)
		case 4:
			v.ValueNameID, _ = c.U16(base + 4)
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}
