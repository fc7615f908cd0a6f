package scene

import (
	"encoding/json"
	"io"
	"os"
)

// Encode 将场景图写成缩进 JSON，同一场景图的输出逐字节一致。
func Encode(w io.Writer, s *Scene) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteDebugJSON 将场景图输出为 JSON 文件，便于调试或可视化。
func WriteDebugJSON(s *Scene, path string) error {
	if s == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
