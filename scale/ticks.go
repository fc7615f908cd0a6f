package scale

import (
	"fmt"
	"math"
	"time"

	"github.com/aclements/go-moremath/vec"
)

// DefaultTickCount 是未声明 tickCount 时的目标刻度数。
const DefaultTickCount = 5

// Tick 是一个刻度：原始值、映射后的坐标与标签。
type Tick struct {
	Value any
	Pos   float64
	Label string
}

// NiceStep 返回不小于 span/count 的 {1,2,5}×10^k 步长。
func NiceStep(span float64, count int) float64 {
	if count <= 0 || span <= 0 {
		return 0
	}
	rough := span / float64(count)
	magnitude := math.Pow(10, math.Floor(math.Log10(rough)))
	switch residual := rough / magnitude; {
	case residual <= 1.5:
		return magnitude
	case residual <= 3:
		return 2 * magnitude
	case residual <= 7:
		return 5 * magnitude
	default:
		return 10 * magnitude
	}
}

// NiceTicks 在 [min, max] 内生成整齐刻度，不向外扩展域。
func NiceTicks(min, max float64, count int) []float64 {
	if count <= 0 || !(min < max) {
		if min == max && !math.IsInf(min, 0) {
			return []float64{min}
		}
		return nil
	}
	step := NiceStep(max-min, count)
	first := math.Ceil(min/step) * step
	last := math.Floor((max+step*0.001)/step) * step
	n := int(math.Round((last-first)/step)) + 1
	if n <= 0 {
		return nil
	}
	ticks := vec.Linspace(first, last, n)
	for i, t := range ticks {
		// 消除 0.1*3 一类的浮点噪声
		ticks[i] = math.Round(t/step) * step
	}
	return ticks
}

// FormatNumber 生成数值刻度标签：百万、千分别以 M、K 结尾。
func FormatNumber(v float64) string {
	switch abs := math.Abs(v); {
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// TimeUnit 是时间刻度的粒度。
type TimeUnit int

const (
	UnitDay TimeUnit = iota
	UnitMonth
	UnitYear
)

func (u TimeUnit) layout() string {
	switch u {
	case UnitYear:
		return "2006"
	case UnitMonth:
		return "2006-01"
	default:
		return "2006-01-02"
	}
}

const day = 24 * time.Hour

// ChooseTimeUnit 按“跨度 / 目标刻度数”选择粒度与步长。
func ChooseTimeUnit(span time.Duration, count int) (TimeUnit, int) {
	if count <= 0 {
		count = DefaultTickCount
	}
	per := span / time.Duration(count)
	switch {
	case per < 28*day:
		return UnitDay, pickStep(float64(per)/float64(day), []int{1, 2, 7, 14})
	case per < 365*day:
		return UnitMonth, pickStep(float64(per)/float64(30*day), []int{1, 2, 3, 6})
	default:
		years := float64(per) / float64(365*day)
		return UnitYear, int(math.Max(1, NiceStep(years*float64(count), count)))
	}
}

func pickStep(rough float64, steps []int) int {
	for _, s := range steps {
		if rough <= float64(s) {
			return s
		}
	}
	return steps[len(steps)-1]
}

// TimeTicks 生成落在 [min, max] 内、对齐到粒度边界的时间刻度。
func TimeTicks(min, max time.Time, count int) ([]time.Time, TimeUnit) {
	if max.Before(min) {
		return nil, UnitDay
	}
	unit, step := ChooseTimeUnit(max.Sub(min), count)
	var t time.Time
	switch unit {
	case UnitYear:
		y := min.Year()
		if !time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC).Equal(min) {
			y++
		}
		y = ((y + step - 1) / step) * step
		t = time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	case UnitMonth:
		t = time.Date(min.Year(), min.Month(), 1, 0, 0, 0, 0, time.UTC)
		if t.Before(min) {
			t = t.AddDate(0, 1, 0)
		}
	default:
		t = time.Date(min.Year(), min.Month(), min.Day(), 0, 0, 0, 0, time.UTC)
		if t.Before(min) {
			t = t.AddDate(0, 0, 1)
		}
	}
	var out []time.Time
	for !t.After(max) {
		out = append(out, t)
		switch unit {
		case UnitYear:
			t = t.AddDate(step, 0, 0)
		case UnitMonth:
			t = t.AddDate(0, step, 0)
		default:
			t = t.AddDate(0, 0, step)
		}
	}
	return out, unit
}
