package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/vellum/compile"
	"github.com/ByLCY/vellum/renderer"
	canvasrenderer "github.com/ByLCY/vellum/renderer/canvas"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

func main() {
	input := flag.String("in", "examples/bar.json", "图表描述路径（.json / .yaml）")
	output := flag.String("out", "output/bar.svg", "输出路径，扩展名决定格式")
	format := flag.String("format", "", "输出格式 svg|pdf|png，默认取自 -out 的扩展名")
	debug := flag.String("debug", "", "场景图调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "替换描述中 data.values 的 JSON 记录数组")
	parallel := flag.Int("parallel", 0, "同时编译的分面单元数，0 表示不限制")
	verbose := flag.Bool("v", false, "输出各编译阶段的调试日志")
	flag.Parse()

	var rows []spec.Row
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &rows); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	f := canvasrenderer.Format(*format)
	if f == "" {
		f = canvasrenderer.FormatFromPath(*output)
	}
	r := canvasrenderer.NewRenderer(f)

	opts := compile.Options{Parallelism: *parallel, Measurer: r}
	if *verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if err := run(*input, *output, *debug, rows, opts, r); err != nil {
		log.Fatalf("生成图表失败: %v", err)
	}
	fmt.Printf("已生成图表：%s\n", *output)
}

// run 串联解析、编译与渲染。rows 非空时替换描述中的数据。
func run(inputPath, outputPath, debugPath string, rows []spec.Row, opts compile.Options, r renderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("无法打开图表描述 %s: %w", inputPath, err)
	}
	defer file.Close()

	s, err := spec.Parse(file, spec.FormatFromPath(inputPath))
	if err != nil {
		return fmt.Errorf("解析图表描述失败: %w", err)
	}
	if rows != nil {
		s.Data.Values = rows
	}

	sc, err := compile.Compile(context.Background(), s, opts)
	if err != nil {
		return fmt.Errorf("编译图表失败: %w", err)
	}

	if debugPath != "" {
		if err := writeDebug(sc, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := r.Render(sc)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func writeDebug(sc *scene.Scene, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := scene.WriteDebugJSON(sc, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
