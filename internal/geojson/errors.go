package geojson

import (
	"errors"
	"fmt"
)

// 哨兵错误：供调用方以 errors.Is 判定失败类别
var (
	ErrParse            = errors.New("geojson parse error")
	ErrUnsupportedShape = errors.New("unsupported geojson document shape")
	ErrShape            = errors.New("unsupported geometry kind")
)

// ParseError：文档不是合法 JSON，或要素/几何结构不符合约定
// 约束：对该文件不可恢复；Source 为文件标识，便于运维定位源文件
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse: %v", e.Err)
	}
	return fmt.Sprintf("%s: parse: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// UnsupportedShapeError：顶层值既不是对象也不是数组
type UnsupportedShapeError struct {
	Source string
	Kind   string
}

func (e *UnsupportedShapeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("unsupported document shape %q", e.Kind)
	}
	return fmt.Sprintf("%s: unsupported document shape %q", e.Source, e.Kind)
}

func (e *UnsupportedShapeError) Is(target error) bool { return target == ErrUnsupportedShape }

// ShapeError：要素几何类型既不是 Polygon 也不是 MultiPolygon
// 背景：默认策略是跳过该要素而不是中止整个文档
type ShapeError struct {
	Source string
	Kind   string
}

func (e *ShapeError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "<none>"
	}
	if e.Source == "" {
		return fmt.Sprintf("unsupported geometry kind %q", kind)
	}
	return fmt.Sprintf("%s: unsupported geometry kind %q", e.Source, kind)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// WithSource：为本包错误补充文件标识；其他错误原样返回
func WithSource(err error, source string) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Source == "" {
			return &ParseError{Source: source, Err: pe.Err}
		}
		return err
	}
	var se *ShapeError
	if errors.As(err, &se) {
		if se.Source == "" {
			return &ShapeError{Source: source, Kind: se.Kind}
		}
		return err
	}
	var ue *UnsupportedShapeError
	if errors.As(err, &ue) && ue.Source == "" {
		return &UnsupportedShapeError{Source: source, Kind: ue.Kind}
	}
	return err
}
