package modelxml

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicvg/svcore/internal/annotation"
)

func TestWriteSparseTimeValueProducesOnePointPerEvent(t *testing.T) {
	m := annotation.NewSparseTimeValue(48000)
	require.NoError(t, m.Point(0, 1.5, "a"))
	require.NoError(t, m.Point(100, -2.0, "b"))

	var buf bytes.Buffer
	require.NoError(t, WriteSparseTimeValue(&buf, m))

	var ds struct {
		XMLName xml.Name `xml:"dataset"`
		Points  []struct {
			Frame int64  `xml:"frame,attr"`
			Value string `xml:"value,attr"`
			Label string `xml:"label,attr"`
		} `xml:"point"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &ds))
	require.Len(t, ds.Points, 2)
	assert.Equal(t, int64(0), ds.Points[0].Frame)
	assert.Equal(t, "1.5", ds.Points[0].Value)
	assert.Equal(t, "a", ds.Points[0].Label)
	assert.Equal(t, int64(100), ds.Points[1].Frame)
	assert.Equal(t, "-2", ds.Points[1].Value)
}

func TestWriteNoteRendersVelocityIntoLevel(t *testing.T) {
	m := annotation.NewNote(48000, false)
	require.NoError(t, m.Add(annotation.NoteEvent{
		Frame: 10, Duration: 20, Pitch: 440.0, Label: "note",
		HasVelocity: true, Velocity: 100,
	}))

	var buf bytes.Buffer
	require.NoError(t, WriteNote(&buf, m))

	var ds struct {
		Points []struct {
			Frame    int64  `xml:"frame,attr"`
			Duration int64  `xml:"duration,attr"`
			Value    string `xml:"value,attr"`
			Level    string `xml:"level,attr"`
		} `xml:"point"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &ds))
	require.Len(t, ds.Points, 1)
	assert.Equal(t, int64(10), ds.Points[0].Frame)
	assert.Equal(t, int64(20), ds.Points[0].Duration)
	assert.Equal(t, "440", ds.Points[0].Value)
	assert.Equal(t, "100", ds.Points[0].Level)
}

func TestWritePathStoresDstFrameInValue(t *testing.T) {
	m := annotation.NewPath(48000)
	m.Add(annotation.PathPoint{SrcFrame: 0, DstFrame: 0})
	m.Add(annotation.PathPoint{SrcFrame: 1000, DstFrame: 2000})

	var buf bytes.Buffer
	require.NoError(t, WritePath(&buf, m))

	var ds struct {
		Points []struct {
			Frame int64  `xml:"frame,attr"`
			Value string `xml:"value,attr"`
		} `xml:"point"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &ds))
	require.Len(t, ds.Points, 2)
	assert.Equal(t, int64(1000), ds.Points[1].Frame)
	assert.Equal(t, "2000", ds.Points[1].Value)
}

func TestWriteDense3DEncodesColumnAsCommaSeparatedLabel(t *testing.T) {
	m := annotation.NewEditableDenseThreeDimensional(48000, 100, 3)
	require.NoError(t, m.SetColumn(0, []float64{1, 2, 3}))
	require.NoError(t, m.SetColumn(1, []float64{4, 5, 6}))

	var buf bytes.Buffer
	require.NoError(t, WriteDense3D(&buf, m))

	var ds struct {
		Points []struct {
			Frame int64  `xml:"frame,attr"`
			Label string `xml:"label,attr"`
		} `xml:"point"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &ds))
	require.Len(t, ds.Points, 2)
	assert.Equal(t, "1,2,3", ds.Points[0].Label)
	assert.Equal(t, int64(100), ds.Points[1].Frame)
	assert.Equal(t, "4,5,6", ds.Points[1].Label)
}

func TestWriteRegionProducesOnePointPerEvent(t *testing.T) {
	m := annotation.NewRegion(48000)
	require.NoError(t, m.Add(annotation.RegionEvent{Frame: 5, Duration: 50, Value: 3.0, Label: "r"}))

	var buf bytes.Buffer
	require.NoError(t, WriteRegion(&buf, m))

	var ds struct {
		Points []struct {
			Frame    int64  `xml:"frame,attr"`
			Duration int64  `xml:"duration,attr"`
			Value    string `xml:"value,attr"`
			Label    string `xml:"label,attr"`
		} `xml:"point"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &ds))
	require.Len(t, ds.Points, 1)
	assert.Equal(t, int64(5), ds.Points[0].Frame)
	assert.Equal(t, int64(50), ds.Points[0].Duration)
	assert.Equal(t, "3", ds.Points[0].Value)
	assert.Equal(t, "r", ds.Points[0].Label)
}

func TestWriteDense3DWithNoColumnsWritesEmptyDataset(t *testing.T) {
	m := annotation.NewEditableDenseThreeDimensional(48000, 100, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteDense3D(&buf, m))

	var ds struct {
		Points []struct{} `xml:"point"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &ds))
	assert.Empty(t, ds.Points)
}
