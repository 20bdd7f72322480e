package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MarshalShape(t *testing.T) {
	year := 2014
	lat, lon := 18.5534056, 73.9510639
	r := Record{
		Source:     "/in/Photos from 2014/a&b.jpg",
		FolderYear: &year,
		JSON: SidecarSignals{
			DateTime: NewTimestamp(time.Date(2019, 3, 13, 11, 39, 6, 0, time.UTC)),
			Geo:      &Geo{Latitude: &lat, Longitude: &lon},
		},
		File:        FileSignals{ModTime: NewTimestamp(time.Date(1972, 1, 1, 0, 0, 0, 0, time.UTC)), Size: 4},
		PreferredTS: Timestamp{time.Date(2019, 3, 13, 11, 39, 6, 0, time.UTC)},
		Destination: "out/2019/2019_03/2019-03-13_113906_a&b.jpg",
	}

	b, err := r.Marshal()
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	for _, k := range []string{"source", "folder_year", "exif", "file", "filename_time", "hash", "json", "preferred_ts", "destination"} {
		assert.Contains(t, generic, k)
	}
	assert.Nil(t, generic["hash"])
	assert.Equal(t, "2019-03-13 11:39:06", generic["preferred_ts"])
	assert.Contains(t, string(b), `a&b.jpg`)
	assert.NotContains(t, string(b), "\n")
}

func TestRecord_RoundTripIsStable(t *testing.T) {
	hash := "p:00ff"
	model := "Canon EOS-1D X Mark II"
	lat := -1.0
	r := Record{
		Source:      "/in/x.jpg",
		Exif:        ExifSignals{DateTime: NewTimestamp(time.Date(2023, 12, 1, 14, 1, 23, 0, time.UTC)), Geo: &Geo{Latitude: &lat}, Model: &model},
		Hash:        &hash,
		PreferredTS: Timestamp{time.Date(2023, 12, 1, 14, 1, 23, 0, time.UTC)},
		Destination: "out/2023/2023_12/2023-12-01_140123_x.jpg",
	}
	first, err := r.Marshal()
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(first, &back))
	second, err := back.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, "p:00ff", back.Fingerprint())
}

func TestTimestamp_UnmarshalRejectsGarbage(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`"2020-01-02T03:04:05Z"`), &ts))
	assert.Equal(t, "2020-01-02 03:04:05", ts.String())
}

func TestGeo_Empty(t *testing.T) {
	var g *Geo
	assert.True(t, g.Empty())
	assert.True(t, (&Geo{}).Empty())
	v := 1.0
	assert.False(t, (&Geo{Longitude: &v}).Empty())
}
