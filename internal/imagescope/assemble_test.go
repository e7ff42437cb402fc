package imagescope

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"geojson2xml/internal/geojson"
	"geojson2xml/internal/labels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poly(coords string) *geojson.Geometry {
	return &geojson.Geometry{Type: "Polygon", Coordinates: []byte(coords)}
}

func multi(coords string) *geojson.Geometry {
	return &geojson.Geometry{Type: "MultiPolygon", Coordinates: []byte(coords)}
}

func rgb(r, g, b int) *geojson.Color { return &geojson.Color{R: r, G: g, B: b} }

func TestPackColor(t *testing.T) {
	assert.Equal(t, 255, PackColor(geojson.Color{R: 255}))
	assert.Equal(t, 65280, PackColor(geojson.DefaultColor))
	assert.Equal(t, 0xff0000, PackColor(geojson.Color{B: 255}))
	assert.Equal(t, 0x332211, PackColor(geojson.Color{R: 0x11, G: 0x22, B: 0x33}))
}

// Two-file batch: the same LabelOrder is threaded into both conversions.
func TestAssembleTwoFileBatch(t *testing.T) {
	fileA := &geojson.Document{Source: "a.geojson", Features: []geojson.Feature{
		{Name: "Tumor", Color: rgb(255, 0, 0), Geometry: poly(`[[[0,0],[0,1],[1,1],[1,0]]]`)},
	}}
	fileB := &geojson.Document{Source: "b.geojson", Features: []geojson.Feature{
		{Name: "Stroma", Geometry: poly(`[[[2,2],[2,3],[3,3],[2,2]]]`)},
	}}
	order := labels.Build([]*geojson.Document{fileA, fileB})
	require.Equal(t, labels.LabelOrder{"Stroma", "Tumor"}, order)

	a, st, err := Assemble(fileA, order, Options{})
	require.NoError(t, err)
	require.Len(t, a.Annotations, 1)
	tumor := a.Annotations[0]
	assert.Equal(t, "Tumor", tumor.Name)
	assert.Equal(t, 1, tumor.Id)
	assert.Equal(t, 255, tumor.LineColor)
	require.Len(t, tumor.Regions.Region, 1)
	r := tumor.Regions.Region[0]
	assert.Equal(t, 1, r.Id)
	assert.Equal(t, 1, r.DisplayId)
	assert.Equal(t, []Vertex{
		{X: "0", Y: "0", Z: "0"},
		{X: "0", Y: "1", Z: "0"},
		{X: "1", Y: "1", Z: "0"},
		{X: "1", Y: "0", Z: "0"},
		{X: "0", Y: "0", Z: "0"},
	}, r.Vertices.Vertex)
	assert.Equal(t, Stats{Annotations: 1, Regions: 1, Vertices: 5}, st)

	b, _, err := Assemble(fileB, order, Options{})
	require.NoError(t, err)
	require.Len(t, b.Annotations, 1)
	stroma := b.Annotations[0]
	assert.Equal(t, "Stroma", stroma.Name)
	assert.Equal(t, 1, stroma.Id)
	// no colour on the first Stroma feature: default green
	assert.Equal(t, 65280, stroma.LineColor)
	assert.Len(t, stroma.Regions.Region[0].Vertices.Vertex, 4)
}

func TestAssembleOrderingAndGlobalRegionIDs(t *testing.T) {
	doc := &geojson.Document{Features: []geojson.Feature{
		{Name: "c", Geometry: poly(`[[[0,0],[1,0],[1,1]]]`)},
		{Name: "a", Geometry: multi(`[[[[0,0],[1,0],[1,1]]],[[[5,5],[6,5],[6,6]]]]`)},
		{Name: "c", Geometry: poly(`[[[2,2],[3,2],[3,3]]]`)},
		{Name: "unknown", Geometry: poly(`[[[2,2],[3,2],[3,3]]]`)},
		{Geometry: poly(`[[[2,2],[3,2],[3,3]]]`)},
	}}
	order := labels.LabelOrder{"a", "b", "c"}

	out, st, err := Assemble(doc, order, Options{})
	require.NoError(t, err)
	require.Len(t, out.Annotations, 2, "empty label b must be dropped")

	assert.Equal(t, "a", out.Annotations[0].Name)
	assert.Equal(t, 1, out.Annotations[0].Id)
	assert.Equal(t, "c", out.Annotations[1].Name)
	assert.Equal(t, 2, out.Annotations[1].Id)

	var ids []int
	for _, a := range out.Annotations {
		for _, r := range a.Regions.Region {
			assert.Equal(t, r.Id, r.DisplayId)
			ids = append(ids, r.Id)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
	assert.Equal(t, 2, st.UnknownLabel)
	assert.Equal(t, 4, st.Regions)
	assert.Equal(t, 16, st.Vertices)
}

func TestAssembleColorFirstOccurrenceWins(t *testing.T) {
	doc := &geojson.Document{Features: []geojson.Feature{
		{Name: "Tumor", Color: rgb(10, 20, 30), Geometry: poly(`[[[0,0],[1,0],[1,1]]]`)},
		{Name: "Tumor", Color: rgb(255, 255, 255), Geometry: poly(`[[[0,0],[1,0],[1,1]]]`)},
		{Name: "Tumor", Geometry: poly(`[[[0,0],[1,0],[1,1]]]`)},
	}}
	out, _, err := Assemble(doc, labels.LabelOrder{"Tumor"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, PackColor(geojson.Color{R: 10, G: 20, B: 30}), out.Annotations[0].LineColor)
	assert.Len(t, out.Annotations[0].Regions.Region, 3)
}

func TestAssembleShapePolicy(t *testing.T) {
	doc := &geojson.Document{Source: "s.geojson", Features: []geojson.Feature{
		{Name: "Tumor", Color: rgb(1, 2, 3), Geometry: &geojson.Geometry{Type: "Point", Coordinates: []byte(`[1,1]`)}},
		{Name: "Tumor", Color: rgb(9, 9, 9), Geometry: poly(`[[[0,0],[1,0],[1,1]]]`)},
		{Name: "Stroma", Geometry: &geojson.Geometry{Type: "LineString", Coordinates: []byte(`[[1,1],[2,2]]`)}},
	}}
	order := labels.LabelOrder{"Stroma", "Tumor"}

	out, st, err := Assemble(doc, order, Options{ShapePolicy: ShapeSkip})
	require.NoError(t, err)
	require.Len(t, out.Annotations, 1)
	assert.Equal(t, "Tumor", out.Annotations[0].Name)
	// the skipped Point still fixed the label colour
	assert.Equal(t, PackColor(geojson.Color{R: 1, G: 2, B: 3}), out.Annotations[0].LineColor)
	assert.Equal(t, 2, st.UnknownShape)

	_, _, err = Assemble(doc, order, Options{ShapePolicy: ShapeFail})
	require.Error(t, err)
	assert.True(t, errors.Is(err, geojson.ErrShape))
	assert.Contains(t, err.Error(), "s.geojson")
}

func TestAssembleParseErrorIsFatal(t *testing.T) {
	doc := &geojson.Document{Source: "p.geojson", Features: []geojson.Feature{
		{Name: "Tumor", Geometry: poly(`[[[0,0],[1,0],[1,1]]]`)},
		{Name: "Tumor", Geometry: &geojson.Geometry{Type: "Polygon"}},
	}}
	out, _, err := Assemble(doc, labels.LabelOrder{"Tumor"}, Options{})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, geojson.ErrParse))
	assert.Contains(t, err.Error(), "p.geojson")
	assert.Contains(t, err.Error(), "feature 1")
}

func TestAssembleSharedGeometryClosedOnce(t *testing.T) {
	shared := poly(`[[[0,0],[1,0],[1,1]]]`)
	doc := &geojson.Document{Features: []geojson.Feature{
		{Name: "a", Geometry: shared},
		{Name: "a", Geometry: shared},
	}}
	out, _, err := Assemble(doc, labels.LabelOrder{"a"}, Options{})
	require.NoError(t, err)
	for _, r := range out.Annotations[0].Regions.Region {
		assert.Len(t, r.Vertices.Vertex, 4)
	}
}

func TestAssembleNoSurvivors(t *testing.T) {
	out, st, err := Assemble(&geojson.Document{}, labels.LabelOrder{"a", "b"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, out.Annotations)
	assert.Equal(t, MicronsPerPixel, out.MicronsPerPixel)
	assert.Zero(t, st.Regions)
}

func TestVertexFormatting(t *testing.T) {
	doc := &geojson.Document{Features: []geojson.Feature{
		{Name: "a", Geometry: poly(`[[[1024.5,77.25],[2048,77.25],[2048.0,-3.125],[1e-5,-0],[1E3,1e16],[0.0001,120000000000000000000]]]`)},
	}}
	out, _, err := Assemble(doc, labels.LabelOrder{"a"}, Options{})
	require.NoError(t, err)
	vs := out.Annotations[0].Regions.Region[0].Vertices.Vertex
	require.Len(t, vs, 7)
	assert.Equal(t, Vertex{X: "1024.5", Y: "77.25", Z: "0"}, vs[0])
	assert.Equal(t, Vertex{X: "2048", Y: "77.25", Z: "0"}, vs[1])
	assert.Equal(t, Vertex{X: "2048.0", Y: "-3.125", Z: "0"}, vs[2])
	assert.Equal(t, Vertex{X: "1e-05", Y: "0", Z: "0"}, vs[3])
	assert.Equal(t, Vertex{X: "1000.0", Y: "1e+16", Z: "0"}, vs[4])
	assert.Equal(t, Vertex{X: "0.0001", Y: "120000000000000000000", Z: "0"}, vs[5])
	assert.Equal(t, vs[0], vs[6])
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		0:                  "0.0",
		1:                  "1.0",
		-2.5:               "-2.5",
		0.1:                "0.1",
		123456789012345.0:  "123456789012345.0",
		1234567890123456.0: "1234567890123456.0",
		1e16:               "1e+16",
		1.5e-5:             "1.5e-05",
		0.0001:             "0.0001",
	}
	for v, want := range cases {
		assert.Equal(t, want, formatFloat(v), "%v", v)
	}
}

const goldenTumor = `<?xml version="1.0" ?>
<Annotations MicronsPerPixel="0.460100">
  <Annotation ReadOnly="0" NameReadOnly="0" LineColorReadOnly="0" Incremental="0" Type="4" LineColor="255" Visible="1" Selected="1" MarkupImagePath="" MacroName="" Id="1" Name="Tumor">
    <Attributes>
      <Attribute Name="Description" Id="0" Value=""/>
    </Attributes>
    <Regions>
      <RegionAttributeHeaders>
        <AttributeHeader Id="9999" Name="Region" ColumnWidth="-1"/>
        <AttributeHeader Id="9997" Name="Length" ColumnWidth="-1"/>
        <AttributeHeader Id="9996" Name="Area" ColumnWidth="-1"/>
        <AttributeHeader Id="9998" Name="Text" ColumnWidth="-1"/>
        <AttributeHeader Id="1" Name="Description" ColumnWidth="-1"/>
      </RegionAttributeHeaders>
      <Region Type="0" Zoom="1.0" Selected="0" ImageLocation="" ImageFocus="-1" Length="0.0" Area="0.0" LengthMicrons="0.0" AreaMicrons="0.0" Text="" NegativeROA="0" InputRegionId="0" Analyze="1" Id="1" DisplayId="1">
        <Attributes/>
        <Vertices>
          <Vertex X="0" Y="0" Z="0"/>
          <Vertex X="0" Y="1" Z="0"/>
          <Vertex X="1.5" Y="1" Z="0"/>
          <Vertex X="0" Y="0" Z="0"/>
        </Vertices>
      </Region>
    </Regions>
    <Plots/>
  </Annotation>
</Annotations>
`

func TestMarshalLayout(t *testing.T) {
	doc := &geojson.Document{Features: []geojson.Feature{
		{Name: "Tumor", Color: rgb(255, 0, 0), Geometry: poly(`[[[0,0],[0,1],[1.5,1]]]`)},
	}}
	out, _, err := Assemble(doc, labels.LabelOrder{"Tumor"}, Options{})
	require.NoError(t, err)

	b, err := Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, goldenTumor, string(b))

	var buf strings.Builder
	require.NoError(t, Encode(&buf, out))
	assert.Equal(t, goldenTumor, buf.String())

	var back Annotations
	require.NoError(t, xml.Unmarshal(b[len(header):], &back))
	assert.Equal(t, "Tumor", back.Annotations[0].Name)
	assert.Len(t, back.Annotations[0].Regions.Headers.AttributeHeader, 5)
	assert.Len(t, back.Annotations[0].Regions.Region[0].Vertices.Vertex, 4)
}

func TestMarshalEmptyDocument(t *testing.T) {
	out, _, err := Assemble(&geojson.Document{}, labels.LabelOrder{"a"}, Options{})
	require.NoError(t, err)
	b, err := Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" ?>`+"\n"+`<Annotations MicronsPerPixel="0.460100"/>`+"\n", string(b))
}

func TestMarshalEscapesAttributes(t *testing.T) {
	doc := &geojson.Document{Features: []geojson.Feature{
		{Name: `A&B "x" <y> it's`, Geometry: poly(`[[[0,0],[0,1],[1,1]]]`)},
	}}
	out, _, err := Assemble(doc, labels.LabelOrder{`A&B "x" <y> it's`}, Options{})
	require.NoError(t, err)
	b, err := Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `Name="A&amp;B &quot;x&quot; &lt;y&gt; it's"`)

	var back Annotations
	require.NoError(t, xml.Unmarshal(b[len(header):], &back))
	assert.Equal(t, `A&B "x" <y> it's`, back.Annotations[0].Name)
}

func TestMarshalNil(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)
}
