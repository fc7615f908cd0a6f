package scale

import (
	"errors"
	"sort"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/spec"
)

// Binding 记录某个编码单元的通道绑定到某个比例尺。
type Binding struct {
	Unit    *spec.Unit
	Channel spec.Channel
	Def     *spec.ChannelDef
}

// Path returns the description path of the bound channel.
func (b Binding) Path() string { return b.Unit.ChannelPath(b.Channel) }

// Resolver 收集所有通道绑定并为每个比例尺名保留一个未训练的原型。
type Resolver struct {
	protos   map[string]*Scale
	names    []string
	bindings map[string][]Binding
}

func NewResolver() *Resolver {
	return &Resolver{protos: map[string]*Scale{}, bindings: map[string][]Binding{}}
}

// BindUnit binds every scaled channel of u in channel order.
func (r *Resolver) BindUnit(u *spec.Unit) error {
	var err error
	u.Encoding.Each(func(ch spec.Channel, _ *spec.ChannelDef) {
		if err == nil {
			err = r.Bind(u, ch)
		}
	})
	return err
}

// Bind 绑定单个通道。常量通道、text 与 theta 不经过比例尺。
// 同名比例尺的分类必须一致，否则返回 SpecError.ConflictingScale。
func (r *Resolver) Bind(u *spec.Unit, ch spec.Channel) error {
	def := u.Encoding.Get(ch)
	if def == nil || def.IsConstant() || ch == spec.ChannelText || ch == spec.ChannelTheta {
		return nil
	}
	name := u.ScaleName(ch)
	s, ok := r.protos[name]
	if !ok {
		s = New(name, def.Type, def.Sort)
		r.protos[name] = s
		r.names = append(r.names, name)
	} else if s.Type != def.Type {
		return spec.SpecErrorf(spec.CodeConflictingScale, u.ChannelPath(ch),
			"比例尺 %q 已按 %s 绑定，不能再按 %s 使用", name, s.Type, def.Type)
	}
	r.bindings[name] = append(r.bindings[name], Binding{Unit: u, Channel: ch, Def: def})

	if s.Title == "" {
		s.Title = channelTitle(def)
	}
	if s.Axis == nil && def.Axis != nil {
		s.Axis = def.Axis
	}
	positional := ch == spec.ChannelX || ch == spec.ChannelY || ch == spec.ChannelX2 || ch == spec.ChannelY2
	switch {
	case positional && bandMark(u.Mark.Type):
		s.Padding = 0.2
	case positional && pointMark(u.Mark.Type) && s.Padding == defaultPadding:
		// 折线类 mark 的类别点落在带中心，带之间不留空
		s.Padding = 0
	}
	switch {
	case def.Zero != nil:
		s.Zero = *def.Zero
	case positional && zeroMark(u.Mark.Type) && def.Type == spec.Quantitative:
		s.Zero = true
	}
	return nil
}

func channelTitle(def *spec.ChannelDef) string {
	switch {
	case def.Title != "":
		return def.Title
	case def.Aggregate != "" && def.Field != "":
		return string(def.Aggregate) + "(" + def.Field + ")"
	case def.Aggregate != "":
		return string(def.Aggregate)
	default:
		return def.Field
	}
}

func bandMark(m spec.MarkType) bool {
	switch m {
	case spec.MarkBar, spec.MarkRect, spec.MarkBoxplot, spec.MarkBullet, spec.MarkFunnel:
		return true
	}
	return false
}

func pointMark(m spec.MarkType) bool {
	return m == spec.MarkLine || m == spec.MarkArea || m == spec.MarkPath
}

func zeroMark(m spec.MarkType) bool {
	switch m {
	case spec.MarkBar, spec.MarkArea, spec.MarkBullet, spec.MarkFunnel:
		return true
	}
	return false
}

// Names returns scale names in first-bind order.
func (r *Resolver) Names() []string { return r.names }

// Bindings returns the channels bound to name in bind order.
func (r *Resolver) Bindings(name string) []Binding { return r.bindings[name] }

// Prototype returns the untrained configuration of a scale.
func (r *Resolver) Prototype(name string) *Scale { return r.protos[name] }

// Instance 返回一个新的未训练实例，配置与原型一致。
func (r *Resolver) Instance(name string) *Scale {
	p, ok := r.protos[name]
	if !ok {
		return nil
	}
	return p.fork()
}

// Set 是单个分面单元可见的比例尺集合，冻结后只读。
type Set map[string]*Scale

// For returns the scale bound to a unit channel, or nil for unscaled channels.
func (s Set) For(u *spec.Unit, ch spec.Channel) *Scale {
	def := u.Encoding.Get(ch)
	if def == nil || def.IsConstant() {
		return nil
	}
	return s[u.ScaleName(ch)]
}

// Partition 是一组记录及其在源数据中的下标。
type Partition struct {
	Rows  []spec.Row
	Index []int
}

// Resolve 按共享策略训练并冻结一个比例尺：shared 合并全部分区（按源记录顺序，
// 与分区遍历顺序无关），independent 只使用 owner 分区。
func Resolve(name string, bindings []Binding, partitions []Partition, policy spec.ResolveMode, owner int) (*Scale, error) {
	if len(bindings) == 0 {
		return nil, spec.ScaleErrorf(spec.CodeDegenerateDomain, name, "比例尺 %q 没有绑定任何通道", name)
	}
	r := NewResolver()
	for _, b := range bindings {
		if err := r.Bind(b.Unit, b.Channel); err != nil {
			return nil, err
		}
	}
	s := r.Instance(name)
	if s == nil {
		return nil, spec.ScaleErrorf(spec.CodeDegenerateDomain, name, "比例尺 %q 没有绑定任何通道", name)
	}

	var rows []spec.Row
	if policy == spec.ResolveIndependent {
		if owner >= 0 && owner < len(partitions) {
			rows = partitions[owner].Rows
		}
	} else {
		rows = mergeSourceOrder(partitions)
	}
	if err := TrainRows(s, bindings, rows); err != nil {
		return nil, err
	}
	if err := s.Freeze(); err != nil {
		return nil, err
	}
	return s, nil
}

func mergeSourceOrder(partitions []Partition) []spec.Row {
	type entry struct {
		index int
		row   spec.Row
	}
	var all []entry
	for _, p := range partitions {
		for i, row := range p.Rows {
			idx := len(all)
			if i < len(p.Index) {
				idx = p.Index[i]
			}
			all = append(all, entry{idx, row})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].index < all[j].index })
	out := make([]spec.Row, len(all))
	for i, e := range all {
		out[i] = e.row
	}
	return out
}

// TrainRows 以“记录优先、绑定其次”的顺序训练，保证首次出现顺序由源记录顺序决定。
func TrainRows(s *Scale, bindings []Binding, rows []spec.Row) error {
	for _, row := range rows {
		for _, b := range bindings {
			if !b.Def.HasField() {
				continue
			}
			v, ok := binding.Lookup(row, b.Def.Field)
			if !ok {
				return spec.DataErrorf(spec.CodeMissingField, b.Path()+".field",
					"记录缺少字段 %q（通道 %s）", b.Def.Field, b.Channel)
			}
			if err := s.Train(v); err != nil {
				return TrainError(s, b, v, err)
			}
		}
	}
	return nil
}

// TrainError 把域训练错误转换为带路径的分类错误。
func TrainError(s *Scale, b Binding, v any, err error) error {
	switch {
	case errors.Is(err, errFrozen):
		return spec.ScaleErrorf(spec.CodeFrozenDomain, s.Name, "比例尺 %q 已冻结，不能继续训练", s.Name)
	case errors.Is(err, errMismatch):
		return spec.DataErrorf(spec.CodeTypeMismatch, b.Path()+".field",
			"字段 %q 的值 %q 不是 %s（通道 %s）", b.Def.Field, binding.Format(v), b.Def.Type, b.Channel)
	default:
		return err
	}
}
