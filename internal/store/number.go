package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Number is a float64 whose JSON form can carry NaN and infinities, encoded
// as the strings "NaN", "+Inf" and "-Inf". Diverged trials produce such
// losses and encoding/json rejects them.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Numbers is a []float64 encoded element-wise as Number.
type Numbers []float64

func (ns Numbers) MarshalJSON() ([]byte, error) {
	if ns == nil {
		return []byte("null"), nil
	}
	out := make([]Number, len(ns))
	for i, f := range ns {
		out[i] = Number(f)
	}
	return json.Marshal(out)
}

func (ns *Numbers) UnmarshalJSON(data []byte) error {
	var raw []Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*ns = nil
		return nil
	}
	out := make(Numbers, len(raw))
	for i, n := range raw {
		out[i] = float64(n)
	}
	*ns = out
	return nil
}
