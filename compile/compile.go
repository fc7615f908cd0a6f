// Package compile 把图表描述编译为场景图。
//
// 编译分两个阶段。屏障阶段依次完成规范化、分面、类别比例尺训练、逐单元的聚合与堆叠、
// 连续比例尺训练，结束时所有比例尺都已冻结。之后各分面单元并发地完成布局与 mark 编译，
// 结果按单元下标放回，因此输出与调度顺序无关。
package compile

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/vellum/facet"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
	"github.com/ByLCY/vellum/style"
)

// Options 控制一次编译。零值可用。
type Options struct {
	// Palette 为空时使用 style.DefaultPalette。
	Palette style.Palette
	// Logger 接收各阶段的调试记录，为 nil 时不输出。
	Logger *slog.Logger
	// Parallelism 限制同时编译的分面单元数，<= 0 表示不限制。
	Parallelism int
	// Measurer 用于估算文字尺寸，为 nil 时按字符数估算。
	Measurer layout.TextMeasurer
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Compile 编译一份图表描述。任何阶段出错都不会返回部分结果。
func Compile(ctx context.Context, s *spec.Spec, opts Options) (*scene.Scene, error) {
	log := opts.logger()
	chart, err := spec.Normalize(s)
	if err != nil {
		return nil, err
	}
	log.Debug("normalized", "units", len(chart.Units), "rows", len(chart.Data))

	var background *scene.Color
	if chart.Background != "" {
		c, err := style.ParseColor(chart.Background)
		if err != nil {
			return nil, spec.SpecErrorf(spec.CodeInvalidValue, "background", "无法解析背景色 %q: %v", chart.Background, err)
		}
		background = &c
	}

	cells, grid, err := facet.Partition(chart.Data, chart.Facet)
	if err != nil {
		return nil, err
	}
	log.Debug("partitioned", "cells", len(cells), "rows", grid.Rows, "columns", grid.Columns)

	p, err := train(chart, cells, grid, log)
	if err != nil {
		return nil, err
	}

	measured, frames := p.layout(layout.Options{Measurer: opts.Measurer})
	log.Debug("layout placed", "padding", measured.Padding)

	groups := make([]*scene.Group, len(cells))
	errs := make([]error, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i := range cells {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grp, err := p.cell(i, frames[i], opts)
			if err != nil {
				errs[i] = err
				return err
			}
			groups[i] = grp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// 多个单元失败时报告下标最小的那个
		for _, e := range errs {
			if e != nil {
				return nil, e
			}
		}
		return nil, err
	}
	log.Debug("cells compiled", "cells", len(groups))

	root := &scene.Group{Name: "root"}
	if chart.Title != "" {
		root.Add(layout.Title(chart.Title, chart.Width, measured))
	}
	for _, grp := range groups {
		root.Add(grp)
	}
	return &scene.Scene{
		Width:      chart.Width,
		Height:     chart.Height,
		Background: background,
		Root:       root,
	}, nil
}
