package layout

// 场景坐标以 CSS 像素为单位（96 DPI）。渲染后端需要毫米或点时经由这里换算。

// Unit 是长度单位。
type Unit int

const (
	UnitPX Unit = iota
	UnitPT
	UnitMM
	UnitIN
)

// Conversion constants between px, pt and mm.
const (
	PxPerInch = 96.0
	MmPerInch = 25.4
	PtPerInch = 72.0

	PxToMm = MmPerInch / PxPerInch
	PxToPt = PtPerInch / PxPerInch
)

func (u Unit) String() string {
	switch u {
	case UnitPT:
		return "pt"
	case UnitMM:
		return "mm"
	case UnitIN:
		return "in"
	default:
		return "px"
	}
}

// Length 保留数值与单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Px converts the length to CSS pixels.
func (l Length) Px() float64 {
	switch l.Unit {
	case UnitPT:
		return l.Value / PxToPt
	case UnitMM:
		return l.Value / PxToMm
	case UnitIN:
		return l.Value * PxPerInch
	default:
		return l.Value
	}
}

// To converts the length to target unit.
func (l Length) To(target Unit) float64 {
	px := l.Px()
	switch target {
	case UnitPT:
		return px * PxToPt
	case UnitMM:
		return px * PxToMm
	case UnitIN:
		return px / PxPerInch
	default:
		return px
	}
}
