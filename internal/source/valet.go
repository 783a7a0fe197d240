package source

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Valet series ids.
const (
	SeriesOvernightRate = "V80691311"
	SeriesMortgage5Year = "V80691336"
	valetStartDate      = "2024-01-01"
	increasingThreshold = 4.5
)

// valetResponse is an observations response. Each observation holds the
// date under "d" and one object per series keyed by the series id:
//
//	{"d":"2024-06-05","V80691311":{"v":"4.75"}}
type valetResponse struct {
	Observations []map[string]json.RawMessage `json:"observations"`
}

type valetPoint struct {
	V string `json:"v"`
}

func decodeValet(body []byte) (valetResponse, error) {
	var v valetResponse
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("decode valet observations: %w", err)
	}
	return v, nil
}

// latest returns the value and date of the last observation of series.
// The value is nil when the observation is missing or not numeric.
func (v valetResponse) latest(series string) (*float64, string) {
	if len(v.Observations) == 0 {
		return nil, ""
	}
	obs := v.Observations[len(v.Observations)-1]

	var date string
	if raw, ok := obs["d"]; ok {
		json.Unmarshal(raw, &date)
	}

	raw, ok := obs[series]
	if !ok {
		return nil, date
	}
	var p valetPoint
	if err := json.Unmarshal(raw, &p); err != nil || p.V == "" {
		return nil, date
	}
	f, err := strconv.ParseFloat(p.V, 64)
	if err != nil {
		return nil, date
	}
	return &f, date
}

func rateTrend(overnight *float64) string {
	if overnight != nil && *overnight > increasingThreshold {
		return "increasing"
	}
	return "stable"
}
