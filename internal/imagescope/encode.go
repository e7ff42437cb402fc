package imagescope

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"
)

// 与查看器导出文件一致的声明行
const header = `<?xml version="1.0" ?>` + "\n"

// Encode：两空格缩进输出完整文档
func Encode(w io.Writer, a *Annotations) error {
	b, err := Marshal(a)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// 文档注释：在内存中渲染整个文档，调用方确认成功后再落盘
// 背景：查看器导出的文件中，没有子元素的元素写成自闭合形式（<Plots/>、<Vertex .../>），每个元素独占一行。
// 约束：元素名、属性名与属性顺序取自模型的 xml 标签；属性值转义 & < > "。
func Marshal(a *Annotations) ([]byte, error) {
	if a == nil {
		return nil, errors.New("nil annotations")
	}
	p := &printer{}
	p.WriteString(header)
	if err := p.element("Annotations", reflect.ValueOf(*a)); err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

type printer struct {
	bytes.Buffer
	depth int
}

type child struct {
	name string
	v    reflect.Value
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;", `>`, "&gt;")

func (p *printer) element(name string, v reflect.Value) error {
	t := v.Type()
	var attrs [][2]string
	var kids []child
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, opt, _ := strings.Cut(f.Tag.Get("xml"), ",")
		if f.Name == "XMLName" || tag == "" || tag == "-" {
			continue
		}
		fv := v.Field(i)
		if opt == "attr" {
			s, err := scalar(fv)
			if err != nil {
				return err
			}
			attrs = append(attrs, [2]string{tag, s})
			continue
		}
		if fv.Kind() == reflect.Slice {
			for j := 0; j < fv.Len(); j++ {
				kids = append(kids, child{tag, fv.Index(j)})
			}
			continue
		}
		kids = append(kids, child{tag, fv})
	}

	p.indent()
	p.WriteByte('<')
	p.WriteString(name)
	for _, a := range attrs {
		p.WriteByte(' ')
		p.WriteString(a[0])
		p.WriteString(`="`)
		attrEscaper.WriteString(p, a[1])
		p.WriteByte('"')
	}
	if len(kids) == 0 {
		p.WriteString("/>\n")
		return nil
	}
	p.WriteString(">\n")
	p.depth++
	for _, k := range kids {
		if err := p.element(k.name, k.v); err != nil {
			return err
		}
	}
	p.depth--
	p.indent()
	p.WriteString("</")
	p.WriteString(name)
	p.WriteString(">\n")
	return nil
}

func (p *printer) indent() {
	for i := 0; i < p.depth; i++ {
		p.WriteString("  ")
	}
}

func scalar(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int64, reflect.Int32:
		return strconv.FormatInt(v.Int(), 10), nil
	default:
		return "", errors.New("unsupported attribute kind " + v.Kind().String())
	}
}
