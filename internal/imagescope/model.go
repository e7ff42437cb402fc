// 包 imagescope：ImageScope 标注 XML 的文档模型与组装
package imagescope

import "encoding/xml"

// 固定常量：查看器依赖这些取值，不可配置
const (
	MicronsPerPixel  = "0.460100"
	DefaultLineColor = 13434828
)

// 文档注释：XML 元素模型
// 背景：字段顺序即属性输出顺序，与查看器导出的文件保持一致。
// 约束：层级固定为 Annotations → Annotation → Regions → Region → Vertices → Vertex。
type Annotations struct {
	XMLName         xml.Name     `xml:"Annotations"`
	MicronsPerPixel string       `xml:"MicronsPerPixel,attr"`
	Annotations     []Annotation `xml:"Annotation"`
}

type Annotation struct {
	ReadOnly          string     `xml:"ReadOnly,attr"`
	NameReadOnly      string     `xml:"NameReadOnly,attr"`
	LineColorReadOnly string     `xml:"LineColorReadOnly,attr"`
	Incremental       string     `xml:"Incremental,attr"`
	Type              string     `xml:"Type,attr"`
	LineColor         int        `xml:"LineColor,attr"`
	Visible           string     `xml:"Visible,attr"`
	Selected          string     `xml:"Selected,attr"`
	MarkupImagePath   string     `xml:"MarkupImagePath,attr"`
	MacroName         string     `xml:"MacroName,attr"`
	Id                int        `xml:"Id,attr"`
	Name              string     `xml:"Name,attr"`
	Attributes        Attributes `xml:"Attributes"`
	Regions           Regions    `xml:"Regions"`
	Plots             struct{}   `xml:"Plots"`
}

type Attributes struct {
	Attribute []Attribute `xml:"Attribute"`
}

type Attribute struct {
	Name  string `xml:"Name,attr"`
	Id    string `xml:"Id,attr"`
	Value string `xml:"Value,attr"`
}

type Regions struct {
	Headers RegionAttributeHeaders `xml:"RegionAttributeHeaders"`
	Region  []Region               `xml:"Region"`
}

type RegionAttributeHeaders struct {
	AttributeHeader []AttributeHeader `xml:"AttributeHeader"`
}

type AttributeHeader struct {
	Id          string `xml:"Id,attr"`
	Name        string `xml:"Name,attr"`
	ColumnWidth string `xml:"ColumnWidth,attr"`
}

type Region struct {
	Type          string     `xml:"Type,attr"`
	Zoom          string     `xml:"Zoom,attr"`
	Selected      string     `xml:"Selected,attr"`
	ImageLocation string     `xml:"ImageLocation,attr"`
	ImageFocus    string     `xml:"ImageFocus,attr"`
	Length        string     `xml:"Length,attr"`
	Area          string     `xml:"Area,attr"`
	LengthMicrons string     `xml:"LengthMicrons,attr"`
	AreaMicrons   string     `xml:"AreaMicrons,attr"`
	Text          string     `xml:"Text,attr"`
	NegativeROA   string     `xml:"NegativeROA,attr"`
	InputRegionId string     `xml:"InputRegionId,attr"`
	Analyze       string     `xml:"Analyze,attr"`
	Id            int        `xml:"Id,attr"`
	DisplayId     int        `xml:"DisplayId,attr"`
	Attributes    Attributes `xml:"Attributes"`
	Vertices      Vertices   `xml:"Vertices"`
}

type Vertices struct {
	Vertex []Vertex `xml:"Vertex"`
}

type Vertex struct {
	X string `xml:"X,attr"`
	Y string `xml:"Y,attr"`
	Z string `xml:"Z,attr"`
}

// newAnnotation：按默认元数据构造标注层，Selected 固定为 1
func newAnnotation(id int, name string, color int) Annotation {
	return Annotation{
		ReadOnly:          "0",
		NameReadOnly:      "0",
		LineColorReadOnly: "0",
		Incremental:       "0",
		Type:              "4",
		LineColor:         color,
		Visible:           "1",
		Selected:          "1",
		MarkupImagePath:   "",
		MacroName:         "",
		Id:                id,
		Name:              name,
		Attributes: Attributes{Attribute: []Attribute{
			{Name: "Description", Id: "0", Value: ""},
		}},
		Regions: Regions{Headers: regionHeaders()},
	}
}

func regionHeaders() RegionAttributeHeaders {
	return RegionAttributeHeaders{AttributeHeader: []AttributeHeader{
		{Id: "9999", Name: "Region", ColumnWidth: "-1"},
		{Id: "9997", Name: "Length", ColumnWidth: "-1"},
		{Id: "9996", Name: "Area", ColumnWidth: "-1"},
		{Id: "9998", Name: "Text", ColumnWidth: "-1"},
		{Id: "1", Name: "Description", ColumnWidth: "-1"},
	}}
}

func newRegion(id int, vs []Vertex) Region {
	return Region{
		Type:          "0",
		Zoom:          "1.0",
		Selected:      "0",
		ImageLocation: "",
		ImageFocus:    "-1",
		Length:        "0.0",
		Area:          "0.0",
		LengthMicrons: "0.0",
		AreaMicrons:   "0.0",
		Text:          "",
		NegativeROA:   "0",
		InputRegionId: "0",
		Analyze:       "1",
		Id:            id,
		DisplayId:     id,
		Vertices:      Vertices{Vertex: vs},
	}
}
