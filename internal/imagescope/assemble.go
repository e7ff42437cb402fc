package imagescope

import (
	"errors"
	"fmt"
	"geojson2xml/internal/geojson"
	"geojson2xml/internal/labels"
	"math"
	"strconv"
	"strings"
)

// ShapePolicy：遇到非 Polygon/MultiPolygon 要素时的处理方式
type ShapePolicy string

const (
	ShapeSkip ShapePolicy = "skip"
	ShapeFail ShapePolicy = "fail"
)

type Options struct {
	ShapePolicy ShapePolicy
}

// Stats：单个文档的组装统计，供指标与审计使用
type Stats struct {
	Annotations  int
	Regions      int
	Vertices     int
	UnknownLabel int
	UnknownShape int
}

// PackColor：RGB 转为查看器使用的 BGR 整数
func PackColor(c geojson.Color) int {
	return (c.B << 16) + (c.G << 8) + c.R
}

type group struct {
	name     string
	color    int
	colorSet bool
	rings    []geojson.Ring
}

// 文档注释：将单个文档组装为 ImageScope 标注文档
// 背景：按全局 LabelOrder 预占位，每个标签一个槽位，填充后删除空槽并重新编号；不对增长中的集合排序，保证跨文件顺序一致。
// 约束：
//   - 名称缺失或不在 LabelOrder 中的要素静默跳过；
//   - 标签颜色由该标签首个要素决定（无颜色时取默认绿色），之后不再覆盖；
//   - 标注 Id 从 1 起按存活顺序分配；区域 Id 在整个文档内连续递增，不按标注重置；
//   - 坐标解析失败整体返回错误，不产生部分结果。
func Assemble(doc *geojson.Document, order labels.LabelOrder, opts Options) (*Annotations, Stats, error) {
	var st Stats
	if doc == nil {
		return nil, st, errors.New("nil document")
	}
	slots := make([]group, len(order))
	for i, name := range order {
		slots[i] = group{name: name}
	}
	for i, f := range doc.Features {
		idx, ok := order.Index(f.Name)
		if f.Name == "" || !ok {
			st.UnknownLabel++
			continue
		}
		g := &slots[idx]
		if !g.colorSet {
			c := geojson.DefaultColor
			if f.Color != nil {
				c = *f.Color
			}
			g.color = PackColor(c)
			g.colorSet = true
		}
		rings, err := f.Geometry.OuterRings()
		if err != nil {
			if errors.Is(err, geojson.ErrShape) && opts.ShapePolicy != ShapeFail {
				st.UnknownShape++
				continue
			}
			return nil, st, wrapFeature(err, doc.Source, i)
		}
		for _, r := range rings {
			g.rings = append(g.rings, geojson.CloseRing(r))
		}
	}

	out := &Annotations{MicronsPerPixel: MicronsPerPixel}
	regionID := 1
	for _, g := range slots {
		if len(g.rings) == 0 {
			continue
		}
		color := g.color
		if !g.colorSet {
			color = DefaultLineColor
		}
		a := newAnnotation(len(out.Annotations)+1, g.name, color)
		for _, r := range g.rings {
			a.Regions.Region = append(a.Regions.Region, newRegion(regionID, vertices(r)))
			st.Vertices += len(r.Points)
			regionID++
		}
		out.Annotations = append(out.Annotations, a)
	}
	st.Annotations = len(out.Annotations)
	st.Regions = regionID - 1
	return out, st, nil
}

func wrapFeature(err error, source string, i int) error {
	var pe *geojson.ParseError
	if errors.As(err, &pe) {
		return &geojson.ParseError{Source: source, Err: fmt.Errorf("feature %d: %w", i, pe.Err)}
	}
	return geojson.WithSource(err, source)
}

// vertices：二维数据，Z 恒为 0
func vertices(r geojson.Ring) []Vertex {
	vs := make([]Vertex, len(r.Points))
	for i, p := range r.Points {
		x, y := formatFloat(p.X()), formatFloat(p.Y())
		if i < len(r.Text) {
			x, y = formatCoord(r.Text[i][0], p.X()), formatCoord(r.Text[i][1], p.Y())
		}
		vs[i] = Vertex{X: x, Y: y, Z: "0"}
	}
	return vs
}

// 文档注释：坐标文本
// 背景：查看器导出与既有转换结果中，整数坐标原样输出（2048），小数坐标保留小数点（2048.0、1e-05）。
// 约束：输入原文是整数字面量时原样输出（-0 规整为 0）；否则按 v 的最短十进制表示输出，写法见 formatFloat。
func formatCoord(text string, v float64) string {
	if text != "" && !strings.ContainsAny(text, ".eE") {
		if text == "-0" {
			return "0"
		}
		return text
	}
	return formatFloat(v)
}

// formatFloat：十进制指数小于 -4 或不小于 16 时用科学计数法（1e-05、1e+16），否则定点且至少带一位小数
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}
	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
