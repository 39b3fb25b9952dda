// Package modelxml renders annotation models as the <dataset>/<point>
// XML document spec.md §6 describes for consumption by an external
// serialiser. encoding/xml is the correct tool here: no pack example
// reaches for a third-party XML library for simple element emission,
// so there is no ecosystem convention to defer to instead.
package modelxml

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/event"
)

type datasetXML struct {
	XMLName    xml.Name   `xml:"dataset"`
	ID         uint64     `xml:"id,attr"`
	SampleRate int        `xml:"sampleRate,attr"`
	RDFType    string     `xml:"rdfType,attr,omitempty"`
	Points     []pointXML `xml:"point"`
}

type pointXML struct {
	Frame    int64  `xml:"frame,attr"`
	Duration int64  `xml:"duration,attr,omitempty"`
	Value    string `xml:"value,attr,omitempty"`
	Level    string `xml:"level,attr,omitempty"`
	Label    string `xml:"label,attr,omitempty"`
}

func pointFrom(e event.Event) pointXML {
	p := pointXML{Frame: int64(e.Frame), Label: e.Label}
	if e.HasDuration {
		p.Duration = int64(e.Duration)
	}
	if e.HasValue {
		p.Value = strconv.FormatFloat(e.Value, 'g', -1, 64)
	}
	if e.HasLevel {
		p.Level = strconv.FormatFloat(e.Level, 'g', -1, 64)
	}
	return p
}

func dataset(b *annotation.Base, points []pointXML) datasetXML {
	return datasetXML{
		ID:         uint64(b.ID()),
		SampleRate: b.SampleRate(),
		RDFType:    b.RDFType(),
		Points:     points,
	}
}

func write(w io.Writer, ds datasetXML) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(ds)
}

// WriteSparseOneDimensional writes m as a <dataset> of plain instants.
func WriteSparseOneDimensional(w io.Writer, m *annotation.SparseOneDimensional) error {
	events := m.Series().All()
	points := make([]pointXML, len(events))
	for i, e := range events {
		points[i] = pointFrom(e)
	}
	return write(w, dataset(m.Base, points))
}

// WriteSparseTimeValue writes m as a <dataset> of (frame, value) points.
func WriteSparseTimeValue(w io.Writer, m *annotation.SparseTimeValue) error {
	events := m.Series().All()
	points := make([]pointXML, len(events))
	for i, e := range events {
		points[i] = pointFrom(e)
	}
	return write(w, dataset(m.Base, points))
}

// WriteNote writes m as a <dataset> of durationful pitch/velocity points.
func WriteNote(w io.Writer, m *annotation.Note) error {
	rows := m.TabularRows()
	points := make([]pointXML, len(rows))
	for i, n := range rows {
		points[i] = pointXML{
			Frame: int64(n.Frame), Duration: int64(n.Duration),
			Value: strconv.FormatFloat(n.Pitch, 'g', -1, 64),
			Level: strconv.Itoa(n.Velocity),
			Label: n.Label,
		}
	}
	return write(w, dataset(m.Base, points))
}

// WriteRegion writes m as a <dataset> of durationful valued intervals.
func WriteRegion(w io.Writer, m *annotation.Region) error {
	events := m.Series().All()
	points := make([]pointXML, len(events))
	for i, e := range events {
		points[i] = pointFrom(e)
	}
	return write(w, dataset(m.Base, points))
}

// WritePath writes m as a <dataset> of (srcFrame, dstFrame) points,
// with dstFrame stored in the value attribute.
func WritePath(w io.Writer, m *annotation.Path) error {
	pts := m.Points()
	points := make([]pointXML, len(pts))
	for i, p := range pts {
		points[i] = pointXML{
			Frame: int64(p.SrcFrame),
			Value: strconv.FormatInt(int64(p.DstFrame), 10),
		}
	}
	return write(w, dataset(m.Base, points))
}

// WriteDense3D writes m as a <dataset> of one point per written column,
// whose value is the column's bin vector rendered as a comma-separated
// list in the label attribute (there is no per-bin XML attribute —
// Dense3D columns are multi-valued, unlike every other variant).
func WriteDense3D(w io.Writer, m *annotation.EditableDenseThreeDimensional) error {
	minCol, maxCol, ok := m.ColumnRange()
	if !ok {
		return write(w, dataset(m.Base, nil))
	}

	var points []pointXML
	for col := minCol; col <= maxCol; col++ {
		values, ok := m.Column(col)
		if !ok {
			continue
		}
		points = append(points, pointXML{
			Frame: int64(event.Frame(col) * m.Resolution()),
			Label: formatValues(values),
		})
	}
	return write(w, dataset(m.Base, points))
}

func formatValues(values []float64) string {
	var out []byte
	for i, v := range values {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendFloat(out, v, 'g', -1, 64)
	}
	return string(out)
}
