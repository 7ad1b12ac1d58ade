package protocol

import (
	"encoding/json"
	"math"
	"strconv"
)

// fieldReader pulls individual fields out of a data object. A field that is
// absent or has the wrong shape yields its zero value and is recorded in
// missing, so one bad field never discards the rest of the message.
type fieldReader struct {
	fields  map[string]json.RawMessage
	missing []string
}

func newFieldReader(data json.RawMessage) (*fieldReader, error) {
	if len(data) == 0 {
		return nil, ErrMissingData
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, ErrMissingData
	}
	return &fieldReader{fields: fields}, nil
}

func (r *fieldReader) miss(key string) {
	r.missing = append(r.missing, key)
}

func (r *fieldReader) str(key string) string {
	raw, ok := r.fields[key]
	if !ok {
		r.miss(key)
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Some servers send numeric ids.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	r.miss(key)
	return ""
}

func (r *fieldReader) num(key string) float64 {
	raw, ok := r.fields[key]
	if !ok {
		r.miss(key)
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		r.miss(key)
		return 0
	}
	return f
}

func (r *fieldReader) integer(key string) int {
	f := r.num(key)
	if f > math.MaxInt32 || f < math.MinInt32 {
		r.miss(key)
		return 0
	}
	return int(f)
}

func (r *fieldReader) boolean(key string) bool {
	raw, ok := r.fields[key]
	if !ok {
		r.miss(key)
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed
		}
	}
	r.miss(key)
	return false
}

func (r *fieldReader) numbers(key string, want int) ([]float64, bool) {
	raw, ok := r.fields[key]
	if !ok {
		return nil, false
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil || len(values) < want {
		return nil, false
	}
	return values, true
}

// vec3 reads a fixed-order [a,b,c] array.
func (r *fieldReader) vec3(key string) [3]float64 {
	values, ok := r.numbers(key, 3)
	if !ok {
		r.miss(key)
		return [3]float64{}
	}
	return [3]float64{values[0], values[1], values[2]}
}

// hint reads an [x,y] array; nil means the hint was not usable.
func (r *fieldReader) hint(key string) *[2]float64 {
	values, ok := r.numbers(key, 2)
	if !ok {
		r.miss(key)
		return nil
	}
	return &[2]float64{values[0], values[1]}
}
