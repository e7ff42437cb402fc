package geojson

import "encoding/json"

// 文档注释：输入要素的最小数据结构
// 背景：仅保留转换需要的分类名、颜色与几何；其余属性在解码时丢弃。
// 约束：要素只读；几何坐标延迟到 OuterRings 时再按类型解码，未知类型的要素不会因坐标格式而整体失败。
type Feature struct {
	Name     string
	Color    *Color
	Geometry *Geometry
}

// Color：RGB 三元组（来源通道顺序）
type Color struct{ R, G, B int }

// 未提供颜色时的默认值：绿色
var DefaultColor = Color{R: 0, G: 255, B: 0}

// Geometry：按 GeoJSON 约定的几何；Coordinates 保留原始 JSON
type Geometry struct {
	Type        string
	Coordinates json.RawMessage
}

// Document：一个输入文件展开后的要素序列
type Document struct {
	Source   string
	Features []Feature
}
