package compile

import (
	"log/slog"

	"github.com/ByLCY/vellum/facet"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/spec"
	"github.com/ByLCY/vellum/transform"
)

// plan 是屏障阶段的产物。之后各分面单元只读取其中的冻结比例尺与变换结果。
type plan struct {
	chart    *spec.Chart
	cells    []facet.Cell
	grid     facet.Grid
	resolver *scale.Resolver

	// sets[i] 是第 i 个单元可见的比例尺；共享比例尺在所有单元中是同一个实例
	sets []scale.Set
	// results[i][u] 是编码单元 u 在第 i 个单元内的变换结果
	results [][]*transform.Result
}

// policy 返回比例尺的共享策略，没有分面时总是共享。
func (p *plan) policy(name string) spec.ResolveMode {
	if p.chart.Facet == nil {
		return spec.ResolveShared
	}
	return p.chart.Facet.Resolve.Mode(name)
}

func (p *plan) share(name string, s *scale.Scale) {
	for _, set := range p.sets {
		set[name] = s
	}
}

// train 完成全部比例尺训练：类别比例尺先由原始记录训练（分组顺序依赖它），
// 然后逐单元做聚合与堆叠，最后用变换结果训练连续比例尺。返回时所有比例尺均已冻结。
func train(chart *spec.Chart, cells []facet.Cell, grid facet.Grid, log *slog.Logger) (*plan, error) {
	p := &plan{
		chart:    chart,
		cells:    cells,
		grid:     grid,
		resolver: scale.NewResolver(),
		sets:     make([]scale.Set, len(cells)),
		results:  make([][]*transform.Result, len(cells)),
	}
	for i := range p.sets {
		p.sets[i] = scale.Set{}
	}
	for _, u := range chart.Units {
		if err := p.resolver.BindUnit(u); err != nil {
			return nil, err
		}
	}

	parts := facet.Partitions(cells)
	for _, name := range p.resolver.Names() {
		if !p.resolver.Prototype(name).Type.Categorical() {
			continue
		}
		mode := p.policy(name)
		if mode == spec.ResolveIndependent {
			for i := range cells {
				s, err := scale.Resolve(name, p.resolver.Bindings(name), parts, mode, i)
				if err != nil {
					return nil, err
				}
				p.sets[i][name] = s
			}
			continue
		}
		s, err := scale.Resolve(name, p.resolver.Bindings(name), parts, mode, 0)
		if err != nil {
			return nil, err
		}
		p.share(name, s)
	}
	log.Debug("categorical scales frozen", "cells", len(cells))

	for i, c := range cells {
		p.results[i] = make([]*transform.Result, len(chart.Units))
		for _, u := range chart.Units {
			res, err := transform.Apply(c.Rows, u, p.sets[i])
			if err != nil {
				return nil, err
			}
			p.results[i][u.Index] = res
		}
	}
	log.Debug("transforms applied", "units", len(chart.Units))

	for _, name := range p.resolver.Names() {
		if p.resolver.Prototype(name).Type.Categorical() {
			continue
		}
		if p.policy(name) == spec.ResolveIndependent {
			for i := range cells {
				s, err := p.continuous(name, i, i+1)
				if err != nil {
					return nil, err
				}
				p.sets[i][name] = s
			}
			continue
		}
		s, err := p.continuous(name, 0, len(cells))
		if err != nil {
			return nil, err
		}
		p.share(name, s)
	}
	log.Debug("continuous scales frozen", "scales", len(p.resolver.Names()))
	return p, nil
}

// continuous 用单元 [from, to) 的变换结果训练一个新的连续比例尺并冻结。
// 连续域只记录极值，训练顺序不影响结果。
func (p *plan) continuous(name string, from, to int) (*scale.Scale, error) {
	s := p.resolver.Instance(name)
	for i := from; i < to; i++ {
		for _, b := range p.resolver.Bindings(name) {
			if err := p.results[i][b.Unit.Index].Train(s, b); err != nil {
				return nil, err
			}
		}
	}
	if err := s.Freeze(); err != nil {
		return nil, err
	}
	return s, nil
}
