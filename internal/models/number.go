package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// number decodes any JSON number, a numeric string or null. Anything else decodes to zero.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

func (n number) int() int { return int(math.Round(float64(n))) }

// UnmarshalJSON rounds fractional metrics instead of rejecting them.
func (d *SonicDNA) UnmarshalJSON(data []byte) error {
	var raw struct {
		Energy   number `json:"energy"`
		Pace     number `json:"pace"`
		Clarity  number `json:"clarity"`
		Duration number `json:"duration"`
		RMS      number `json:"rms"`
		RawPace  number `json:"raw_pace"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = SonicDNA{}
		return nil
	}
	*d = SonicDNA{
		Energy:   raw.Energy.int(),
		Pace:     raw.Pace.int(),
		Clarity:  raw.Clarity.int(),
		Duration: raw.Duration.int(),
		RMS:      raw.RMS.int(),
		RawPace:  raw.RawPace.int(),
	}
	return nil
}

// UnmarshalJSON accepts fractional counts.
func (r *UploadResult) UnmarshalJSON(data []byte) error {
	type plain UploadResult
	aux := struct {
		*plain
		WordCount   number `json:"word_count"`
		NumSpeakers number `json:"num_speakers"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.WordCount = aux.WordCount.int()
	r.NumSpeakers = aux.NumSpeakers.int()
	return nil
}

// UnmarshalJSON accepts fractional counts and IDs. A non-numeric ID is still an error.
func (h *HistoryItem) UnmarshalJSON(data []byte) error {
	type plain HistoryItem
	aux := struct {
		*plain
		ID        float64 `json:"id"`
		WordCount number  `json:"word_count"`
	}{plain: (*plain)(h)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	h.ID = int64(math.Round(aux.ID))
	h.WordCount = aux.WordCount.int()
	return nil
}
