package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// Ring：一条外环
// 约束：Text 与 Points 一一对应，保存坐标在输入中的数字原文（X、Y），输出时按原文区分整数与小数写法。
type Ring struct {
	Points orb.Ring
	Text   [][2]string
}

// 文档注释：几何归一化，提取外环
// 背景：Polygon 只取第 0 环（外环），洞被丢弃；MultiPolygon 取每个子多边形的外环。
// 约束：坐标缺失或嵌套层级不符返回 ParseError；其他几何类型返回 ShapeError，由调用方按策略跳过。
func (g *Geometry) OuterRings() ([]Ring, error) {
	if g == nil {
		return nil, &ShapeError{}
	}
	switch g.Type {
	case "Polygon":
		var coords [][][]json.RawMessage
		if err := decodeCoords(g.Coordinates, &coords); err != nil {
			return nil, err
		}
		if len(coords) == 0 || len(coords[0]) == 0 {
			return nil, &ParseError{Err: errors.New("polygon has no outer ring")}
		}
		r, err := toRing(coords[0])
		if err != nil {
			return nil, err
		}
		return []Ring{r}, nil
	case "MultiPolygon":
		var coords [][][][]json.RawMessage
		if err := decodeCoords(g.Coordinates, &coords); err != nil {
			return nil, err
		}
		rings := make([]Ring, 0, len(coords))
		for _, poly := range coords {
			// 空子多边形或空外环直接跳过
			if len(poly) == 0 || len(poly[0]) == 0 {
				continue
			}
			r, err := toRing(poly[0])
			if err != nil {
				return nil, err
			}
			rings = append(rings, r)
		}
		return rings, nil
	default:
		return nil, &ShapeError{Kind: g.Type}
	}
}

func decodeCoords(raw json.RawMessage, v any) error {
	if absent(raw) {
		return &ParseError{Err: errors.New("geometry has no coordinates")}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ParseError{Err: fmt.Errorf("unexpected coordinate nesting: %w", err)}
	}
	return nil
}

func toRing(pos [][]json.RawMessage) (Ring, error) {
	r := Ring{
		Points: make(orb.Ring, 0, len(pos)+1),
		Text:   make([][2]string, 0, len(pos)+1),
	}
	for i, p := range pos {
		if len(p) < 2 {
			return Ring{}, &ParseError{Err: fmt.Errorf("position %d has %d values, want at least 2", i, len(p))}
		}
		var pt orb.Point
		var txt [2]string
		for j := 0; j < 2; j++ {
			v, s, err := number(p[j])
			if err != nil {
				return Ring{}, &ParseError{Err: fmt.Errorf("position %d: %w", i, err)}
			}
			pt[j], txt[j] = v, s
		}
		r.Points = append(r.Points, pt)
		r.Text = append(r.Text, txt)
	}
	return r, nil
}

// number：坐标必须是 JSON 数字；超出 float64 范围的值按 ±Inf 保留
func number(raw json.RawMessage) (float64, string, error) {
	if k := kindOf(raw); k != "number" {
		return 0, "", fmt.Errorf("coordinate is %s, want number", k)
	}
	s := string(bytes.TrimSpace(raw))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, "", err
	}
	return v, s, nil
}

// CloseRing：首末点不同则追加首点的副本
// 约束：纯函数，总是返回新切片，入参不被修改；已闭合的环原样复制。
func CloseRing(r Ring) Ring {
	out := Ring{
		Points: make(orb.Ring, len(r.Points), len(r.Points)+1),
		Text:   make([][2]string, len(r.Text), len(r.Text)+1),
	}
	copy(out.Points, r.Points)
	copy(out.Text, r.Text)
	if len(out.Points) > 0 && !out.Points.Closed() {
		out.Points = append(out.Points, out.Points[0])
		if len(out.Text) > 0 {
			out.Text = append(out.Text, out.Text[0])
		}
	}
	return out
}
