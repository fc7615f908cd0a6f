package scale

import (
	"fmt"
	"math"
	"time"

	mscale "github.com/aclements/go-moremath/scale"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/spec"
)

// Scale 以名字标识；共享同一名字的通道共享同一个实例与同一个训练域。
type Scale struct {
	Name string
	Type spec.DataType
	// Zero 为真时连续域在映射时包含 0。
	Zero bool
	// Padding 是类别带之间的内边距比例。
	Padding float64
	Title   string
	Axis    *spec.AxisConfig

	domain *Domain
}

const defaultPadding = 0.1

// New creates an untrained scale.
func New(name string, t spec.DataType, sort []any) *Scale {
	return &Scale{Name: name, Type: t, Padding: defaultPadding, domain: NewDomain(t, sort)}
}

func (s *Scale) Domain() *Domain { return s.domain }

// Train adds one raw value to the domain.
func (s *Scale) Train(v any) error { return s.domain.Add(v) }

// TrainNumber adds an already numeric value to a continuous domain.
func (s *Scale) TrainNumber(f float64) error { return s.domain.AddNumber(f) }

// Freeze 冻结训练域；空域返回 ScaleError.DegenerateDomain。
func (s *Scale) Freeze() error {
	s.domain.Freeze()
	if s.domain.Len() == 0 {
		return spec.ScaleErrorf(spec.CodeDegenerateDomain, s.Name, "比例尺 %q 的训练域为空", s.Name)
	}
	return nil
}

// Frozen reports whether training is finished.
func (s *Scale) Frozen() bool { return s.domain.Frozen() }

// fork 复制配置但不复制训练结果，用于独立比例尺。
func (s *Scale) fork() *Scale {
	out := *s
	out.domain = s.domain.clone()
	return &out
}

// Extent 返回映射使用的连续范围，Zero 时包含 0。
func (s *Scale) Extent() (float64, float64) {
	lo, hi := s.domain.Extent()
	if s.Zero && s.Type == spec.Quantitative {
		lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	}
	return lo, hi
}

// Range 把冻结的域绑定到可视区间 [r0, r1]，返回不可变映射，Scale 本身不被修改。
func (s *Scale) Range(r0, r1 float64) Mapping {
	switch s.Type {
	case spec.Quantitative:
		lo, hi := s.Extent()
		return &Linear{lin: mscale.Linear{Min: lo, Max: hi}, r0: r0, r1: r1}
	case spec.Temporal:
		lo, hi := s.domain.Extent()
		return &Time{Linear: Linear{lin: mscale.Linear{Min: lo, Max: hi}, r0: r0, r1: r1}}
	default:
		return newBand(s.domain, r0, r1, s.Padding, s.Padding/2)
	}
}

// Position 返回位置通道在 width×height 绘图区内的映射：x 自左向右；y 上的类别自上而下，
// 连续值自下而上。
func (s *Scale) Position(ch spec.Channel, width, height float64) Mapping {
	switch {
	case ch == spec.ChannelX || ch == spec.ChannelX2:
		return s.Range(0, width)
	case s.Type.Categorical():
		return s.Range(0, height)
	default:
		return s.Range(height, 0)
	}
}

// Mapping 是绑定了值域区间的映射与刻度生成。
type Mapping interface {
	// Map 返回值对应的坐标；类别映射返回带的起点。
	Map(v any) (float64, error)
	Ticks(count int) []Tick
	// Bandwidth 对连续映射为 0。
	Bandwidth() float64
	Range() (float64, float64)
}

// Linear 是连续数值映射。domain 退化为单点时映射到区间中点。
type Linear struct {
	lin    mscale.Linear
	r0, r1 float64
}

func (l *Linear) Map(v any) (float64, error) {
	f, ok := ToNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: %v", errMismatch, v)
	}
	return l.MapNumber(f), nil
}

// MapNumber maps an already numeric value.
func (l *Linear) MapNumber(f float64) float64 {
	return l.r0 + l.lin.Map(f)*(l.r1-l.r0)
}

func (l *Linear) Bandwidth() float64        { return 0 }
func (l *Linear) Range() (float64, float64) { return l.r0, l.r1 }

// Domain returns the mapped numeric bounds.
func (l *Linear) Domain() (float64, float64) { return l.lin.Min, l.lin.Max }

func (l *Linear) Ticks(count int) []Tick {
	if count <= 0 {
		count = DefaultTickCount
	}
	values := NiceTicks(l.lin.Min, l.lin.Max, count)
	ticks := make([]Tick, 0, len(values))
	for _, v := range values {
		ticks = append(ticks, Tick{Value: v, Pos: l.MapNumber(v), Label: FormatNumber(v)})
	}
	return ticks
}

// Time 是时间映射，内部以 Unix 毫秒做线性插值。
type Time struct {
	Linear
}

func (t *Time) Map(v any) (float64, error) {
	ts, ok := spec.ParseTime(v)
	if !ok {
		return 0, fmt.Errorf("%w: %v", errMismatch, v)
	}
	return t.MapNumber(float64(ts.UnixMilli())), nil
}

func (t *Time) Ticks(count int) []Tick {
	lo := time.UnixMilli(int64(t.lin.Min)).UTC()
	hi := time.UnixMilli(int64(t.lin.Max)).UTC()
	values, unit := TimeTicks(lo, hi, count)
	ticks := make([]Tick, 0, len(values))
	for _, v := range values {
		ticks = append(ticks, Tick{
			Value: v,
			Pos:   t.MapNumber(float64(v.UnixMilli())),
			Label: v.Format(unit.layout()),
		})
	}
	return ticks
}

// Band 把类别映射为等宽的带。
type Band struct {
	domain    *Domain
	r0, r1    float64
	start     float64
	step      float64
	bandwidth float64
	reversed  bool
}

func newBand(d *Domain, r0, r1, inner, outer float64) *Band {
	b := &Band{domain: d, r0: r0, r1: r1}
	lo, hi := r0, r1
	if hi < lo {
		lo, hi = hi, lo
		b.reversed = true
	}
	n := float64(d.Len())
	if n == 0 {
		return b
	}
	b.step = (hi - lo) / math.Max(1, n+2*outer-inner)
	b.bandwidth = b.step * (1 - inner)
	b.start = lo + b.step*outer
	return b
}

func (b *Band) Map(v any) (float64, error) {
	i, ok := b.domain.Index(v)
	if !ok {
		return 0, fmt.Errorf("类别 %q 不在比例尺域中", binding.Format(v))
	}
	return b.position(i), nil
}

func (b *Band) position(i int) float64 {
	if b.reversed {
		i = b.domain.Len() - 1 - i
	}
	return b.start + float64(i)*b.step
}

func (b *Band) Bandwidth() float64        { return b.bandwidth }
func (b *Band) Step() float64             { return b.step }
func (b *Band) Range() (float64, float64) { return b.r0, b.r1 }

// Ticks 为每个类别生成一个位于带中心的刻度，count 被忽略。
func (b *Band) Ticks(int) []Tick {
	values := b.domain.Values()
	ticks := make([]Tick, 0, len(values))
	for i, v := range values {
		ticks = append(ticks, Tick{Value: v, Pos: b.position(i) + b.bandwidth/2, Label: binding.Format(v)})
	}
	return ticks
}
