package services

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// JSONB round-trip helpers. Decode failures return empty values: a corrupt
// column should degrade a score, not break a request.

func marshalJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func decodeStringSlice(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func decodeFloatSlice(raw datatypes.JSON) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func decodeWeightMap(raw datatypes.JSON) map[string]float64 {
	if len(raw) == 0 {
		return map[string]float64{}
	}
	out := map[string]float64{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]float64{}
	}
	return out
}
