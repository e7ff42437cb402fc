package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// 文档注释：解码单个输入文档并展开为要素序列
// 背景：输入可能是带 features 的 FeatureCollection、单个 Feature 对象，或直接是 Feature 数组。
// 约束：对象缺少 features 键时视为单个要素；顶层为标量或 null 时返回 UnsupportedShapeError。
func Decode(source string, data []byte) (*Document, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		if err == nil {
			err = errors.New("invalid json")
		}
		return nil, &ParseError{Source: source, Err: err}
	}
	doc := &Document{Source: source}
	raws, err := flatten(data)
	if err != nil {
		return nil, WithSource(err, source)
	}
	doc.Features = make([]Feature, 0, len(raws))
	for i, raw := range raws {
		f, err := decodeFeature(raw)
		if err != nil {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("feature %d: %w", i, err)}
		}
		doc.Features = append(doc.Features, f)
	}
	return doc, nil
}

// DecodeFile：读取文件并解码，文件路径作为错误中的 Source
func DecodeFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, b)
}

func flatten(data []byte) ([]json.RawMessage, error) {
	switch kindOf(data) {
	case "object":
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, &ParseError{Err: err}
		}
		fs, ok := top["features"]
		if !ok {
			return []json.RawMessage{data}, nil
		}
		if kindOf(fs) != "array" {
			return nil, &ParseError{Err: fmt.Errorf("features is %s, want array", kindOf(fs))}
		}
		var out []json.RawMessage
		if err := json.Unmarshal(fs, &out); err != nil {
			return nil, &ParseError{Err: err}
		}
		return out, nil
	case "array":
		var out []json.RawMessage
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, &ParseError{Err: err}
		}
		return out, nil
	default:
		return nil, &UnsupportedShapeError{Kind: kindOf(data)}
	}
}

// object：解码为键值表；键名严格区分大小写，Properties、NAME 之类的写法视为缺失
func object(raw json.RawMessage, what string) (map[string]json.RawMessage, error) {
	if k := kindOf(raw); k != "object" {
		return nil, fmt.Errorf("%s is %s, want object", what, k)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return m, nil
}

func decodeFeature(raw json.RawMessage) (Feature, error) {
	var f Feature
	obj, err := object(raw, "feature")
	if err != nil {
		return f, err
	}
	if g := obj["geometry"]; !absent(g) {
		geom, err := decodeGeometry(g)
		if err != nil {
			return f, err
		}
		f.Geometry = geom
	}
	if absent(obj["properties"]) {
		return f, nil
	}
	props, err := object(obj["properties"], "properties")
	if err != nil {
		return f, err
	}
	if absent(props["classification"]) {
		return f, nil
	}
	cls, err := object(props["classification"], "classification")
	if err != nil {
		return f, err
	}
	if name := cls["name"]; !absent(name) {
		if err := json.Unmarshal(name, &f.Name); err != nil {
			return f, fmt.Errorf("classification name: %w", err)
		}
	}
	if color := cls["color"]; !absent(color) {
		c, err := decodeColor(color)
		if err != nil {
			return f, err
		}
		f.Color = c
	}
	return f, nil
}

func decodeGeometry(raw json.RawMessage) (*Geometry, error) {
	obj, err := object(raw, "geometry")
	if err != nil {
		return nil, err
	}
	g := &Geometry{Coordinates: obj["coordinates"]}
	if t := obj["type"]; !absent(t) {
		if err := json.Unmarshal(t, &g.Type); err != nil {
			return nil, fmt.Errorf("geometry type: %w", err)
		}
	}
	return g, nil
}

func decodeColor(raw json.RawMessage) (*Color, error) {
	var rgb []int
	if err := json.Unmarshal(raw, &rgb); err != nil {
		return nil, fmt.Errorf("classification color: %w", err)
	}
	if len(rgb) != 3 {
		return nil, fmt.Errorf("classification color has %d channels, want 3", len(rgb))
	}
	return &Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

// kindOf：按首个非空白字节判定 JSON 值类别
func kindOf(raw []byte) string {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return "empty"
	}
	switch b[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

func absent(raw json.RawMessage) bool {
	k := kindOf(raw)
	return k == "empty" || k == "null"
}
