package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Place is a raw record returned by the places search API.
type Place struct {
	Display    string     `json:"display"`
	Lat        Coordinate `json:"lat"`
	Long       Coordinate `json:"long"`
	ResultType string     `json:"result_type"`
	State      string     `json:"state"`
	Country    string     `json:"country"`
}

// Coordinate is a nullable degree value. The places API sends coordinates
// either as numbers or as numeric strings. NaN and infinities are treated as
// missing.
type Coordinate struct {
	Value float64
	Valid bool
}

func NewCoordinate(v float64) Coordinate {
	return Coordinate{Value: v, Valid: true}
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Coordinate{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*c = Coordinate{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*c = finiteCoordinate(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = finiteCoordinate(v)
	return nil
}

func finiteCoordinate(v float64) Coordinate {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Coordinate{}
	}
	return NewCoordinate(v)
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}
