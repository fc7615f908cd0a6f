package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format 是图表描述的文本格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath 按扩展名推断格式，未知扩展名按 JSON 处理。
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse reads a chart description in the given format.
func Parse(r io.Reader, format Format) (*Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取图表描述失败: %w", err)
	}
	switch format {
	case FormatYAML:
		return ParseYAML(data)
	case FormatJSON, "":
		return ParseJSON(data)
	default:
		return nil, SpecErrorf(CodeInvalidValue, "", "不支持的描述格式 %q", format)
	}
}

// ParseJSON decodes a JSON chart description; unknown properties are rejected.
func ParseJSON(data []byte) (*Spec, error) {
	var s Spec
	if err := decodeStrict(data, &s); err != nil {
		return nil, asSpecError(err)
	}
	return &s, nil
}

// ParseYAML 先用 yaml.v3 解码为通用结构，再按 JSON 规则做严格解码，两种格式共享同一套校验。
func ParseYAML(data []byte) (*Spec, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, SpecErrorf(CodeInvalidValue, "", "YAML 解析失败: %v", err)
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, SpecErrorf(CodeInvalidValue, "", "YAML 内容无法转换为 JSON: %v", err)
	}
	return ParseJSON(buf)
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func asSpecError(err error) error {
	if e, ok := AsError(err); ok {
		return e
	}
	msg := err.Error()
	if field, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		return SpecErrorf(CodeUnknownField, strings.Trim(field, `"`), "未知属性")
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &Error{Kind: KindSpec, Code: CodeInvalidValue, Path: typeErr.Field, Message: "属性类型不匹配", Err: err}
	}
	return &Error{Kind: KindSpec, Code: CodeInvalidValue, Message: "图表描述解析失败", Err: err}
}

// UnmarshalJSON accepts a bare mark name or a styled object.
func (m *MarkDef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*m = MarkDef{Type: MarkType(name)}
		return nil
	}
	type plain MarkDef
	var p plain
	if err := decodeStrict(data, &p); err != nil {
		return asSpecError(err)
	}
	*m = MarkDef(p)
	return nil
}

// UnmarshalJSON accepts a field-name shorthand or a full definition.
func (d *ChannelDef) UnmarshalJSON(data []byte) error {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		*d = ChannelDef{Field: field}
		return nil
	}
	type plain ChannelDef
	var p plain
	if err := decodeStrict(data, &p); err != nil {
		return asSpecError(err)
	}
	*d = ChannelDef(p)
	return nil
}

// UnmarshalJSON 拒绝未知通道名。
func (e *Encoding) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return asSpecError(err)
	}
	out := make(Encoding, len(raw))
	for name, msg := range raw {
		ch := Channel(name)
		if !ch.Valid() {
			return SpecErrorf(CodeUnknownField, "encoding."+name, "未知编码通道")
		}
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var def ChannelDef
		if err := json.Unmarshal(msg, &def); err != nil {
			if e, ok := AsError(err); ok {
				e.Path = joinPath("encoding."+name, e.Path)
				return e
			}
			return asSpecError(err)
		}
		out[ch] = &def
	}
	*e = out
	return nil
}

// UnmarshalJSON accepts a bool or a stack mode name.
func (s *StackConfig) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*s = StackConfig{Enabled: enabled, Mode: StackZero}
		return nil
	}
	var mode string
	if err := json.Unmarshal(data, &mode); err != nil {
		return SpecErrorf(CodeInvalidValue, "stack", "stack 只能是布尔值或模式名")
	}
	switch StackMode(mode) {
	case StackZero, StackNormalize, StackCenter:
		*s = StackConfig{Enabled: true, Mode: StackMode(mode)}
		return nil
	}
	return SpecErrorf(CodeInvalidValue, "stack", "未知堆叠模式 %q", mode)
}

// MarshalJSON mirrors UnmarshalJSON.
func (s StackConfig) MarshalJSON() ([]byte, error) {
	if !s.Enabled {
		return []byte("false"), nil
	}
	return json.Marshal(string(s.Mode))
}

// UnmarshalJSON 支持统一数值或按边声明，未声明的边取默认值。
func (p *Padding) UnmarshalJSON(data []byte) error {
	var all float64
	if err := json.Unmarshal(data, &all); err == nil {
		*p = Padding{Top: all, Right: all, Bottom: all, Left: all}
		return nil
	}
	var sides struct {
		Top    *float64 `json:"top"`
		Right  *float64 `json:"right"`
		Bottom *float64 `json:"bottom"`
		Left   *float64 `json:"left"`
	}
	if err := decodeStrict(data, &sides); err != nil {
		e := asSpecError(err).(*Error)
		e.Path = joinPath("padding", e.Path)
		return e
	}
	out := DefaultPadding
	if sides.Top != nil {
		out.Top = *sides.Top
	}
	if sides.Right != nil {
		out.Right = *sides.Right
	}
	if sides.Bottom != nil {
		out.Bottom = *sides.Bottom
	}
	if sides.Left != nil {
		out.Left = *sides.Left
	}
	*p = out
	return nil
}

// UnmarshalJSON accepts a field-name shorthand.
func (f *FacetField) UnmarshalJSON(data []byte) error {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		*f = FacetField{Field: field}
		return nil
	}
	type plain FacetField
	var p plain
	if err := decodeStrict(data, &p); err != nil {
		return asSpecError(err)
	}
	*f = FacetField(p)
	return nil
}

func joinPath(prefix, rest string) string {
	switch {
	case prefix == "":
		return rest
	case rest == "":
		return prefix
	default:
		return prefix + "." + rest
	}
}
