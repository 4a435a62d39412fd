package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type frameColumnJSON struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

type frameJSON struct {
	Timestamps []int64           `json:"timestamps"`
	Columns    []frameColumnJSON `json:"columns"`
}

// MarshalJSON encodes the frame with Unix-second timestamps and null for
// NaN cells, so cached datasets survive a JSON round trip.
func (f *Frame) MarshalJSON() ([]byte, error) {
	doc := frameJSON{
		Timestamps: make([]int64, f.Len()),
		Columns:    make([]frameColumnJSON, 0, len(f.order)),
	}
	for i, ts := range f.timestamps {
		doc.Timestamps[i] = ts.Unix()
	}
	for _, name := range f.order {
		src := f.columns[name]
		col := frameColumnJSON{Name: name, Values: make([]*float64, len(src))}
		for i, v := range src {
			if !math.IsNaN(v) {
				value := v
				col.Values[i] = &value
			}
		}
		doc.Columns = append(doc.Columns, col)
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores a frame encoded by MarshalJSON.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var doc frameJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	timestamps := make([]time.Time, len(doc.Timestamps))
	for i, sec := range doc.Timestamps {
		timestamps[i] = time.Unix(sec, 0).UTC()
	}
	restored := NewFrame(timestamps)
	for _, col := range doc.Columns {
		if len(col.Values) != len(timestamps) {
			return fmt.Errorf("column %s has %d values, frame has %d rows", col.Name, len(col.Values), len(timestamps))
		}
		values := make([]float64, len(col.Values))
		for i, v := range col.Values {
			if v == nil {
				values[i] = math.NaN()
			} else {
				values[i] = *v
			}
		}
		if err := restored.AddColumn(col.Name, values); err != nil {
			return err
		}
	}
	*f = *restored
	return nil
}
