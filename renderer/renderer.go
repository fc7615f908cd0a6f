package renderer

import "github.com/ByLCY/vellum/scene"

// Renderer 将场景图输出为最终文件，例如 SVG、PDF 或 PNG。
// Render 返回生成的二进制数据以及可能的错误，不修改场景图。
type Renderer interface {
	Render(s *scene.Scene) ([]byte, error)
}
