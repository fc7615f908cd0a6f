package spec

import (
	"errors"
	"fmt"
)

// Kind 区分错误所属的阶段，调用方可以用 errors.Is 匹配对应的哨兵错误。
type Kind string

const (
	KindSpec  Kind = "SpecError"
	KindData  Kind = "DataError"
	KindScale Kind = "ScaleError"
	KindFacet Kind = "FacetError"
)

// Code identifies a specific failure within a Kind.
type Code string

const (
	// CodeUnknownField indicates an unrecognized property or channel name.
	CodeUnknownField Code = "unknown_field"
	// CodeRequiredField indicates a required property is absent from the chart description.
	CodeRequiredField Code = "required_field"
	// CodeInvalidValue indicates a property holds a value outside its allowed set.
	CodeInvalidValue Code = "invalid_value"
	// CodeFieldValueExclusive indicates a channel sets both or neither of field/value.
	CodeFieldValueExclusive Code = "field_value_exclusive"
	// CodeUnsupportedMark indicates the mark kind is not known.
	CodeUnsupportedMark Code = "unsupported_mark"
	// CodeAmbiguousOrientation indicates x/y classifications do not determine a direction.
	CodeAmbiguousOrientation Code = "ambiguous_orientation"
	// CodeConflictingScale indicates a scale name is bound with incompatible classifications.
	CodeConflictingScale Code = "conflicting_scale"

	// CodeMissingField indicates a record lacks a field referenced by a channel.
	CodeMissingField Code = "missing_field"
	// CodeTypeMismatch indicates a value cannot be read under its declared classification.
	CodeTypeMismatch Code = "type_mismatch"

	// CodeDegenerateDomain indicates no record contributed to a scale domain.
	CodeDegenerateDomain Code = "degenerate_domain"
	// CodeFrozenDomain indicates training was attempted after the domain was frozen.
	CodeFrozenDomain Code = "frozen_domain"

	// CodeFacetFieldMissing indicates a record lacks the facet field.
	CodeFacetFieldMissing Code = "facet_field_missing"
)

var (
	ErrSpec  = errors.New("spec error")
	ErrData  = errors.New("data error")
	ErrScale = errors.New("scale error")
	ErrFacet = errors.New("facet error")
)

var kindSentinels = map[Kind]error{
	KindSpec:  ErrSpec,
	KindData:  ErrData,
	KindScale: ErrScale,
	KindFacet: ErrFacet,
}

// Error 是编译管线中所有可恢复错误的统一形态，Path 指向出错的描述位置（例如 encoding.y.field）。
type Error struct {
	Kind    Kind
	Code    Code
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s[%s]", e.Kind, e.Code)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrSpec) 等按类别匹配。
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func newError(kind Kind, code Code, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// SpecErrorf 构造 SpecError。
func SpecErrorf(code Code, path, format string, args ...any) *Error {
	return newError(KindSpec, code, path, format, args...)
}

// DataErrorf 构造 DataError。
func DataErrorf(code Code, path, format string, args ...any) *Error {
	return newError(KindData, code, path, format, args...)
}

// ScaleErrorf 构造 ScaleError。
func ScaleErrorf(code Code, path, format string, args ...any) *Error {
	return newError(KindScale, code, path, format, args...)
}

// FacetErrorf 构造 FacetError。
func FacetErrorf(code Code, path, format string, args ...any) *Error {
	return newError(KindFacet, code, path, format, args...)
}

// AsError unwraps err into an *Error when one is present in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
