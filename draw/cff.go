package draw

import (
	"encoding/binary"
	"math"

	"github.com/textforge/shaping/sfnt"
)

// Type 2 charstring operators (CFF Appendix A / CFF2 Appendix C).
const (
	csHstem     = 1
	csVstem     = 3
	csVmoveto   = 4
	csRlineto   = 5
	csHlineto   = 6
	csVlineto   = 7
	csRrcurveto = 8
	csCallsubr  = 10
	csReturn    = 11
	csEndchar   = 14
	csHstemhm   = 18
	csHintmask  = 19
	csCntrmask  = 20
	csRmoveto   = 21
	csHmoveto   = 22
	csVstemhm   = 23
	csRcurveline = 24
	csRlinecurve = 25
	csVvcurveto  = 26
	csHhcurveto  = 27
	csCallgsubr  = 29
	csVhcurveto  = 30
	csHvcurveto  = 31

	// CFF2-only operators.
	csVsindex = 15
	csBlend   = 16

	// Flex operators (escape prefix 12).
	csHflex   = 12<<8 | 34
	csFlex    = 12<<8 | 35
	csHflex1  = 12<<8 | 36
	csFlex1   = 12<<8 | 37
)

const cffMaxOps = 200000
const cffMaxCallDepth = 10

// cffInterp evaluates a Type 2 (or CFF2) charstring, streaming the
// resulting path into st. Ported from ot/cff_outline.go's
// cffDrawInterpreter, restructured to call st.moveTo/lineTo/cubicTo
// directly instead of buffering Segment values, and extended with
// CFF2's vsindex/blend operators (spec §4.9's variable-font outline
// requirement).
type cffInterp struct {
	st *state

	stack    []float64
	argStart int

	x, y float64

	processedWidth bool
	hstemCount     int
	vstemCount     int

	globalSubrs [][]byte
	localSubrs  [][]byte
	globalBias  int
	localBias   int
	callDepth   int
	opsCount    int

	isCFF2 bool
	coords []float64
	store  *sfnt.ItemVariationStore
	vsIdx  uint16

	err bool
}

// cffOutline draws gid's charstring from cff into st. coords is the
// font's normalized variation coordinates, used only for CFF2's
// blend operator.
func cffOutline(cff *sfnt.CFF, gid sfnt.GlyphID, coords []float64, st *state) bool {
	cs, ok := cff.Charstring(gid)
	if !ok || len(cs) == 0 {
		return false
	}
	globalSubrs := cff.GlobalSubrs()
	localSubrs := cff.LocalSubrs(gid)
	interp := cffInterp{
		st:          st,
		stack:       make([]float64, 0, 48),
		globalSubrs: globalSubrs,
		localSubrs:  localSubrs,
		globalBias:  sfnt.SubrBias(len(globalSubrs)),
		localBias:   sfnt.SubrBias(len(localSubrs)),
		isCFF2:      cff.IsCFF2,
		coords:      coords,
		store:       cff.VarStore,
	}
	if !cff.IsCFF2 {
		interp.processedWidth = false
	} else {
		interp.processedWidth = true // CFF2 charstrings carry no width argument
	}
	interp.execute(cs)
	st.closePath()
	return !interp.err
}

func (di *cffInterp) argCount() int { return len(di.stack) - di.argStart }

func (di *cffInterp) evalArg(i int) float64 { return di.stack[di.argStart+i] }

func (di *cffInterp) popArg() float64 {
	if len(di.stack) == 0 {
		di.err = true
		return 0
	}
	v := di.stack[len(di.stack)-1]
	di.stack = di.stack[:len(di.stack)-1]
	return v
}

func (di *cffInterp) clearArgs() {
	di.argStart = 0
	di.stack = di.stack[:0]
}

func (di *cffInterp) checkWidth(op int) {
	if di.processedWidth {
		return
	}
	hasWidth := false
	switch op {
	case csEndchar, csHstem, csHstemhm, csVstem, csVstemhm, csHintmask, csCntrmask:
		hasWidth = (di.argCount() & 1) != 0
	case csHmoveto, csVmoveto:
		hasWidth = di.argCount() > 1
	case csRmoveto:
		hasWidth = di.argCount() > 2
	default:
		return
	}
	if hasWidth && len(di.stack) > 0 {
		di.argStart = 1
	}
	di.processedWidth = true
}

func (di *cffInterp) moveTo(x, y float64) {
	di.x, di.y = x, y
	di.st.moveTo(Point{float32(x), float32(y)})
}

func (di *cffInterp) lineTo(x, y float64) {
	di.x, di.y = x, y
	di.st.lineTo(Point{float32(x), float32(y)})
}

func (di *cffInterp) cubicTo(x1, y1, x2, y2, x3, y3 float64) {
	di.st.cubicTo(Point{float32(x1), float32(y1)}, Point{float32(x2), float32(y2)}, Point{float32(x3), float32(y3)})
	di.x, di.y = x3, y3
}

func (di *cffInterp) rrcurve(dxa, dya, dxb, dyb, dxc, dyc float64) {
	p1x, p1y := di.x+dxa, di.y+dya
	p2x, p2y := p1x+dxb, p1y+dyb
	p3x, p3y := p2x+dxc, p2y+dyc
	di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
}

// execute interprets a charstring byte stream, recursing for subroutine
// calls. HarfBuzz equivalent: cs_interpreter_t::interpret.
func (di *cffInterp) execute(data []byte) {
	pos := 0
	for pos < len(data) {
		if di.err {
			return
		}
		di.opsCount++
		if di.opsCount > cffMaxOps {
			di.err = true
			return
		}

		b := data[pos]
		if b >= 32 || b == 28 || b == 255 {
			val, consumed := decodeCSOperand(data[pos:])
			di.stack = append(di.stack, val)
			pos += consumed
			continue
		}

		op := int(b)
		pos++
		if b == 12 && pos < len(data) {
			op = 12<<8 | int(data[pos])
			pos++
		}

		switch op {
		case csHstem, csHstemhm:
			di.checkWidth(op)
			di.hstemCount += di.argCount() / 2
			di.clearArgs()

		case csVstem, csVstemhm:
			di.checkWidth(op)
			di.vstemCount += di.argCount() / 2
			di.clearArgs()

		case csHintmask, csCntrmask:
			di.checkWidth(op)
			if di.argCount() > 0 {
				di.vstemCount += di.argCount() / 2
			}
			di.clearArgs()
			maskBytes := (di.hstemCount + di.vstemCount + 7) / 8
			pos += maskBytes

		case csRmoveto:
			di.checkWidth(op)
			dy := di.popArg()
			dx := di.popArg()
			di.moveTo(di.x+dx, di.y+dy)

		case csHmoveto:
			di.checkWidth(op)
			dx := di.popArg()
			di.moveTo(di.x+dx, di.y)

		case csVmoveto:
			di.checkWidth(op)
			dy := di.popArg()
			di.moveTo(di.x, di.y+dy)

		case csRlineto:
			for i := 0; i+2 <= di.argCount(); i += 2 {
				di.lineTo(di.x+di.evalArg(i), di.y+di.evalArg(i+1))
			}
			di.clearArgs()

		case csHlineto:
			i := 0
			horiz := true
			for i < di.argCount() {
				if horiz {
					di.lineTo(di.x+di.evalArg(i), di.y)
				} else {
					di.lineTo(di.x, di.y+di.evalArg(i))
				}
				horiz = !horiz
				i++
			}
			di.clearArgs()

		case csVlineto:
			i := 0
			horiz := false
			for i < di.argCount() {
				if horiz {
					di.lineTo(di.x+di.evalArg(i), di.y)
				} else {
					di.lineTo(di.x, di.y+di.evalArg(i))
				}
				horiz = !horiz
				i++
			}
			di.clearArgs()

		case csRrcurveto:
			for i := 0; i+6 <= di.argCount(); i += 6 {
				di.rrcurve(di.evalArg(i), di.evalArg(i+1), di.evalArg(i+2), di.evalArg(i+3), di.evalArg(i+4), di.evalArg(i+5))
			}
			di.clearArgs()

		case csRcurveline:
			ac := di.argCount()
			if ac < 8 {
				di.clearArgs()
				break
			}
			i := 0
			curveLimit := ac - 2
			for i+6 <= curveLimit {
				di.rrcurve(di.evalArg(i), di.evalArg(i+1), di.evalArg(i+2), di.evalArg(i+3), di.evalArg(i+4), di.evalArg(i+5))
				i += 6
			}
			di.lineTo(di.x+di.evalArg(i), di.y+di.evalArg(i+1))
			di.clearArgs()

		case csRlinecurve:
			ac := di.argCount()
			if ac < 8 {
				di.clearArgs()
				break
			}
			i := 0
			lineLimit := ac - 6
			for i+2 <= lineLimit {
				di.lineTo(di.x+di.evalArg(i), di.y+di.evalArg(i+1))
				i += 2
			}
			di.rrcurve(di.evalArg(i), di.evalArg(i+1), di.evalArg(i+2), di.evalArg(i+3), di.evalArg(i+4), di.evalArg(i+5))
			di.clearArgs()

		case csVvcurveto:
			i := 0
			dx1 := 0.0
			if di.argCount()&1 != 0 {
				dx1 = di.evalArg(i)
				i++
			}
			for i+4 <= di.argCount() {
				p1x, p1y := di.x+dx1, di.y+di.evalArg(i)
				p2x, p2y := p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
				p3x, p3y := p2x, p2y+di.evalArg(i+3)
				di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
				dx1 = 0
				i += 4
			}
			di.clearArgs()

		case csHhcurveto:
			i := 0
			dy1 := 0.0
			if di.argCount()&1 != 0 {
				dy1 = di.evalArg(i)
				i++
			}
			for i+4 <= di.argCount() {
				p1x, p1y := di.x+di.evalArg(i), di.y+dy1
				p2x, p2y := p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
				p3x, p3y := p2x+di.evalArg(i+3), p2y
				di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
				dy1 = 0
				i += 4
			}
			di.clearArgs()

		case csVhcurveto:
			di.alternatingCurves(true)
			di.clearArgs()

		case csHvcurveto:
			di.alternatingCurves(false)
			di.clearArgs()

		case csHflex:
			if di.argCount() == 7 {
				startY := di.y
				p1x, p1y := di.x+di.evalArg(0), di.y
				p2x, p2y := p1x+di.evalArg(1), p1y+di.evalArg(2)
				p3x, p3y := p2x+di.evalArg(3), p2y
				di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
				p4x, p4y := di.x+di.evalArg(4), di.y
				p5x, p5y := p4x+di.evalArg(5), startY
				p6x, p6y := p5x+di.evalArg(6), p5y
				di.cubicTo(p4x, p4y, p5x, p5y, p6x, p6y)
			}
			di.clearArgs()

		case csFlex:
			if di.argCount() == 13 {
				p1x, p1y := di.x+di.evalArg(0), di.y+di.evalArg(1)
				p2x, p2y := p1x+di.evalArg(2), p1y+di.evalArg(3)
				p3x, p3y := p2x+di.evalArg(4), p2y+di.evalArg(5)
				di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
				p4x, p4y := di.x+di.evalArg(6), di.y+di.evalArg(7)
				p5x, p5y := p4x+di.evalArg(8), p4y+di.evalArg(9)
				p6x, p6y := p5x+di.evalArg(10), p5y+di.evalArg(11)
				di.cubicTo(p4x, p4y, p5x, p5y, p6x, p6y)
			}
			di.clearArgs()

		case csHflex1:
			if di.argCount() == 9 {
				startY := di.y
				p1x, p1y := di.x+di.evalArg(0), di.y+di.evalArg(1)
				p2x, p2y := p1x+di.evalArg(2), p1y+di.evalArg(3)
				p3x, p3y := p2x+di.evalArg(4), p2y
				di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
				p4x, p4y := di.x+di.evalArg(5), di.y
				p5x, p5y := p4x+di.evalArg(6), p4y+di.evalArg(7)
				p6x, p6y := p5x+di.evalArg(8), startY
				di.cubicTo(p4x, p4y, p5x, p5y, p6x, p6y)
			}
			di.clearArgs()

		case csFlex1:
			if di.argCount() == 11 {
				var dx, dy float64
				for i := 0; i < 10; i += 2 {
					dx += di.evalArg(i)
					dy += di.evalArg(i + 1)
				}
				startX, startY := di.x, di.y
				p1x, p1y := di.x+di.evalArg(0), di.y+di.evalArg(1)
				p2x, p2y := p1x+di.evalArg(2), p1y+di.evalArg(3)
				p3x, p3y := p2x+di.evalArg(4), p2y+di.evalArg(5)
				di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
				p4x, p4y := di.x+di.evalArg(6), di.y+di.evalArg(7)
				p5x, p5y := p4x+di.evalArg(8), p4y+di.evalArg(9)
				var p6x, p6y float64
				if math.Abs(dx) > math.Abs(dy) {
					p6x, p6y = p5x+di.evalArg(10), startY
				} else {
					p6x, p6y = startX, p5y+di.evalArg(10)
				}
				di.cubicTo(p4x, p4y, p5x, p5y, p6x, p6y)
			}
			di.clearArgs()

		case csCallsubr:
			if len(di.stack) > 0 {
				n := int(di.popArg()) + di.localBias
				if n >= 0 && n < len(di.localSubrs) && di.callDepth < cffMaxCallDepth {
					di.callDepth++
					di.execute(di.localSubrs[n])
					di.callDepth--
				}
			}

		case csCallgsubr:
			if len(di.stack) > 0 {
				n := int(di.popArg()) + di.globalBias
				if n >= 0 && n < len(di.globalSubrs) && di.callDepth < cffMaxCallDepth {
					di.callDepth++
					di.execute(di.globalSubrs[n])
					di.callDepth--
				}
			}

		case csReturn:
			return

		case csEndchar:
			di.checkWidth(op)
			di.clearArgs()
			return

		case csVsindex:
			if di.isCFF2 && len(di.stack) > 0 {
				di.vsIdx = uint16(di.popArg())
			}
			di.clearArgs()

		case csBlend:
			if di.isCFF2 {
				di.blend()
			} else {
				di.clearArgs()
			}

		default:
			di.clearArgs()
		}
	}
}

// blend implements CFF2's blend operator: pops a count k, then
// k*regionCount per-value deltas, and replaces the top k default
// values on the stack with their blended (instanced) results,
// leaving them on the stack for the operator that follows.
// HarfBuzz equivalent: cff2_cs_opset_t::blend in hb-cff2-interp-cs.hh.
func (di *cffInterp) blend() {
	if len(di.stack) == 0 {
		di.err = true
		return
	}
	k := int(di.popArg())
	if k < 0 {
		di.err = true
		return
	}
	regions := di.store.RegionCount(di.vsIdx)
	need := k * regions
	if need > len(di.stack) || k > len(di.stack) {
		di.err = true
		return
	}
	deltaStart := len(di.stack) - need
	valueStart := deltaStart - k
	if valueStart < 0 {
		di.err = true
		return
	}
	for i := 0; i < k; i++ {
		regionDeltas := make([]int32, regions)
		for r := 0; r < regions; r++ {
			regionDeltas[r] = int32(di.stack[deltaStart+i*regions+r])
		}
		di.stack[valueStart+i] += di.store.DeltaForRegions(di.vsIdx, regionDeltas, di.coords)
	}
	di.stack = di.stack[:valueStart+k]
}

func (di *cffInterp) alternatingCurves(startVertical bool) {
	ac := di.argCount()
	i := 0
	if ac%8 >= 4 {
		var p1x, p1y, p2x, p2y, p3x, p3y float64
		if startVertical {
			p1x, p1y = di.x, di.y+di.evalArg(i)
			p2x, p2y = p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
			p3x, p3y = p2x+di.evalArg(i+3), p2y
		} else {
			p1x, p1y = di.x+di.evalArg(i), di.y
			p2x, p2y = p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
			p3x, p3y = p2x, p2y+di.evalArg(i+3)
		}
		i += 4
		for i+8 <= ac {
			di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
			if startVertical {
				p1x, p1y = di.x+di.evalArg(i), di.y
				p2x, p2y = p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
				p3x, p3y = p2x, p2y+di.evalArg(i+3)
			} else {
				p1x, p1y = di.x, di.y+di.evalArg(i)
				p2x, p2y = p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
				p3x, p3y = p2x+di.evalArg(i+3), p2y
			}
			di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
			if startVertical {
				p1x, p1y = di.x, di.y+di.evalArg(i+4)
				p2x, p2y = p1x+di.evalArg(i+5), p1y+di.evalArg(i+6)
				p3x, p3y = p2x+di.evalArg(i+7), p2y
			} else {
				p1x, p1y = di.x+di.evalArg(i+4), di.y
				p2x, p2y = p1x+di.evalArg(i+5), p1y+di.evalArg(i+6)
				p3x, p3y = p2x, p2y+di.evalArg(i+7)
			}
			i += 8
		}
		if i < ac {
			if startVertical {
				p3y += di.evalArg(i)
			} else {
				p3x += di.evalArg(i)
			}
		}
		di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
		return
	}
	for i+8 <= ac {
		var p1x, p1y, p2x, p2y, p3x, p3y float64
		if startVertical {
			p1x, p1y = di.x, di.y+di.evalArg(i)
			p2x, p2y = p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
			p3x, p3y = p2x+di.evalArg(i+3), p2y
		} else {
			p1x, p1y = di.x+di.evalArg(i), di.y
			p2x, p2y = p1x+di.evalArg(i+1), p1y+di.evalArg(i+2)
			p3x, p3y = p2x, p2y+di.evalArg(i+3)
		}
		di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
		if startVertical {
			p1x, p1y = di.x+di.evalArg(i+4), di.y
			p2x, p2y = p1x+di.evalArg(i+5), p1y+di.evalArg(i+6)
			p3x, p3y = p2x, p2y+di.evalArg(i+7)
		} else {
			p1x, p1y = di.x, di.y+di.evalArg(i+4)
			p2x, p2y = p1x+di.evalArg(i+5), p1y+di.evalArg(i+6)
			p3x, p3y = p2x+di.evalArg(i+7), p2y
		}
		if ac-i < 16 && ac&1 != 0 {
			if startVertical {
				p3x += di.evalArg(i + 8)
			} else {
				p3y += di.evalArg(i + 8)
			}
		}
		di.cubicTo(p1x, p1y, p2x, p2y, p3x, p3y)
		i += 8
	}
}

// decodeCSOperand decodes one charstring number operand.
// HarfBuzz equivalent: number_t encoding in hb-cff-interp-common.hh.
func decodeCSOperand(data []byte) (float64, int) {
	if len(data) == 0 {
		return 0, 0
	}
	b0 := data[0]
	switch {
	case b0 >= 32 && b0 <= 246:
		return float64(int(b0) - 139), 1
	case b0 >= 247 && b0 <= 250:
		if len(data) < 2 {
			return 0, 1
		}
		return float64((int(b0)-247)*256 + int(data[1]) + 108), 2
	case b0 >= 251 && b0 <= 254:
		if len(data) < 2 {
			return 0, 1
		}
		return float64(-(int(b0)-251)*256 - int(data[1]) - 108), 2
	case b0 == 28:
		if len(data) < 3 {
			return 0, 1
		}
		v := int16(binary.BigEndian.Uint16(data[1:3]))
		return float64(v), 3
	case b0 == 255:
		if len(data) < 5 {
			return 0, 1
		}
		v := int32(binary.BigEndian.Uint32(data[1:5]))
		return float64(v) / 65536.0, 5
	default:
		return 0, 1
	}
}
