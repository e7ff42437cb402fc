// 包 labels：跨批次的分类名注册表，保证同一批次内所有输出文件的标注顺序与编号一致
package labels

import (
	"geojson2xml/internal/geojson"
	"slices"
	"sort"
)

// LabelOrder：批次内出现过的全部分类名，升序去重
// 约束：一次批次只计算一次，之后只读传入每个文档的转换
type LabelOrder []string

// 文档注释：扫描批次内全部文档，构建全局标签顺序
// 背景：每个文件可能只用到部分标签；先汇总全集，后续转换按全集顺序预占位，输出顺序才能跨文件一致。
// 约束：忽略空名；按字节序升序；相同输入多次调用得到相同序列。
func Build(docs []*geojson.Document) LabelOrder {
	seen := make(map[string]struct{})
	for _, d := range docs {
		if d == nil {
			continue
		}
		for _, f := range d.Features {
			if f.Name != "" {
				seen[f.Name] = struct{}{}
			}
		}
	}
	out := make(LabelOrder, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Index：二分查找标签位置
func (o LabelOrder) Index(name string) (int, bool) {
	i := sort.SearchStrings(o, name)
	if i < len(o) && o[i] == name {
		return i, true
	}
	return -1, false
}

func (o LabelOrder) Equal(other LabelOrder) bool { return slices.Equal(o, other) }

// Valid：严格升序且不含空名，即 Build 可能产生的序列；Index 依赖这一前提
func (o LabelOrder) Valid() bool {
	for i, name := range o {
		if name == "" || (i > 0 && o[i-1] >= name) {
			return false
		}
	}
	return true
}
