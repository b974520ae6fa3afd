package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DumpKey is the key under which producers nest the dump array.
const DumpKey = "debug_scoring_dump"

var ErrNoDump = errors.New("dump: no scoring dump array found")

// rawEntry accepts both the flat entry layout and the {input, result} pair
// some producers emit.
type rawEntry struct {
	Entry
	Input  *Entry `json:"input"`
	Result *struct {
		Overall            *float64 `json:"overall"`
		ActivityOverall    *float64 `json:"activity_overall"`
		Confidence         *float64 `json:"confidence"`
		ActivityConfidence *float64 `json:"activity_confidence"`
	} `json:"result"`
}

func (r rawEntry) normalize() Entry {
	e := r.Entry
	if in := r.Input; in != nil {
		if in.Time != "" {
			e.Time = in.Time
		}
		if in.Weather != (Weather{}) {
			e.Weather = in.Weather
		}
		if in.Derived != (Derived{}) {
			e.Derived = in.Derived
		}
		if in.WaterTempForScoring != nil {
			e.WaterTempForScoring = in.WaterTempForScoring
		}
	}
	if res := r.Result; res != nil {
		e.Overall = firstNonNil(res.Overall, res.ActivityOverall, e.Overall)
		e.Confidence = firstNonNil(res.Confidence, res.ActivityConfidence, e.Confidence)
	}
	return e
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

// Load reads dump entries from r. The document may be the bare array, an
// object holding it under DumpKey (optionally nested under "data"), or an
// object whose first array of time-stamped objects is the dump.
func Load(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dump: read: %w", err)
	}

	arr, err := locateArray(data)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(arr))
	for i, raw := range arr {
		var re rawEntry
		if err := json.Unmarshal(raw, &re); err != nil {
			return nil, fmt.Errorf("dump: entry %d: %w", i, err)
		}
		entries = append(entries, re.normalize())
	}
	return entries, nil
}

func locateArray(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoDump
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("dump: decode array: %w", err)
		}
		return arr, nil
	}

	keys, obj, err := orderedObject(trimmed)
	if err != nil {
		return nil, err
	}

	if raw, ok := obj[DumpKey]; ok {
		return decodeArray(raw)
	}
	if raw, ok := obj["data"]; ok {
		var inner map[string]json.RawMessage
		if json.Unmarshal(raw, &inner) == nil {
			if nested, ok := inner[DumpKey]; ok {
				return decodeArray(nested)
			}
		}
	}

	for _, k := range keys {
		var arr []json.RawMessage
		if json.Unmarshal(obj[k], &arr) != nil || len(arr) == 0 {
			continue
		}
		var first map[string]json.RawMessage
		if json.Unmarshal(arr[0], &first) != nil {
			continue
		}
		if _, ok := first["time"]; ok {
			return arr, nil
		}
	}
	return nil, ErrNoDump
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("dump: decode %s: %w", DumpKey, err)
	}
	return arr, nil
}

// orderedObject decodes a JSON object keeping its key order.
func orderedObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("dump: decode: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, ErrNoDump
	}

	var keys []string
	obj := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("dump: decode: %w", err)
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("dump: decode %q: %w", key, err)
		}
		if _, seen := obj[key]; !seen {
			keys = append(keys, key)
		}
		obj[key] = v
	}
	return keys, obj, nil
}
