package deepzoom

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Preset is a named travel target. Params only apply to Parametric views.
type Preset struct {
	Name      string             `json:"name"`
	Mode      Mode               `json:"mode,omitempty"`
	Pan       Point              `json:"pan"`
	Zoom      float64            `json:"zoom"`
	Rotation  float64            `json:"rotation"`
	PaletteID string             `json:"paletteId,omitempty"`
	Params    map[string]float64 `json:"params,omitempty"`
}

// FindPreset returns the preset called name.
func FindPreset(presets []Preset, name string) (Preset, error) {
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// LoadPresets reads a JSON array of preset records.
//
// Records are parsed field by field: a missing or unparseable pan, zoom or
// rotation falls back to d, numbers given as strings are accepted, and
// records that are not objects are skipped. Only a document that is not a
// JSON array at all is an error.
//
// Accepted pan forms are [x, y] and {"x": x, "y": y}.
func LoadPresets(r io.Reader, d ViewDefaults) ([]Preset, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("deepzoom: decode presets: %w", err)
	}

	out := make([]Preset, 0, len(raw))
	for i, msg := range raw {
		var rec map[string]any
		if err := json.Unmarshal(msg, &rec); err != nil || rec == nil {
			Logger().Warn("skipping malformed preset", "index", i, "err", err)
			continue
		}
		out = append(out, presetFromRecord(rec, i, d))
	}
	return out, nil
}

func presetFromRecord(rec map[string]any, index int, d ViewDefaults) Preset {
	p := Preset{
		Name:     stringField(rec, "name", fmt.Sprintf("preset-%d", index+1)),
		Mode:     Mode(stringField(rec, "mode", "")),
		Pan:      pointField(rec, "pan", d.Pan),
		Zoom:     numberField(rec, "zoom", d.Zoom),
		Rotation: NormalizeAngle(numberField(rec, "rotation", d.Rotation)),
	}
	if p.Zoom <= 0 {
		p.Zoom = d.Zoom
	}
	p.PaletteID = stringField(rec, "paletteId", stringField(rec, "palette", ""))

	if params, ok := rec["params"].(map[string]any); ok {
		p.Params = make(map[string]float64, len(params))
		for k := range params {
			if v, ok := toFloat(params[k]); ok {
				p.Params[k] = v
			}
		}
	}
	return p
}

func stringField(rec map[string]any, key, def string) string {
	if s, ok := rec[key].(string); ok && s != "" {
		return s
	}
	return def
}

func numberField(rec map[string]any, key string, def float64) float64 {
	if v, ok := toFloat(rec[key]); ok {
		return v
	}
	return def
}

func pointField(rec map[string]any, key string, def Point) Point {
	switch v := rec[key].(type) {
	case []any:
		if len(v) != 2 {
			return def
		}
		x, okx := toFloat(v[0])
		y, oky := toFloat(v[1])
		if okx && oky {
			return Pt(x, y)
		}
	case map[string]any:
		x, okx := toFloat(v["x"])
		y, oky := toFloat(v["y"])
		if okx && oky {
			return Pt(x, y)
		}
	}
	return def
}

// toFloat accepts JSON numbers and numeric strings, rejecting non-finite
// values.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
