package deepzoom

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ViewState is the shareable part of a session: what a link restores.
type ViewState struct {
	Mode     Mode
	Pan      Point
	Zoom     float64
	Rotation float64

	// JuliaC is only encoded for ModeJulia.
	JuliaC Point
}

// viewStateDecimals is the fixed number of decimal places of every encoded
// value. Zoom is written in exponent form with the same number of places
// so deep views survive the round trip.
const viewStateDecimals = 6

// EncodeViewState renders s as a URL fragment: "#" for Mandelbrot,
// "#julia" for Julia (other modes use their name), followed by a single
// view query parameter holding base64 JSON with string-typed values.
//
//	#julia?view=eyJjeCI6Ii0wLjgwMDAwMCIsLi4ufQ==
func EncodeViewState(s ViewState) string {
	fields := map[string]string{
		"mode":     string(s.Mode),
		"x":        strconv.FormatFloat(s.Pan.X, 'f', viewStateDecimals, 64),
		"y":        strconv.FormatFloat(s.Pan.Y, 'f', viewStateDecimals, 64),
		"zoom":     strconv.FormatFloat(s.Zoom, 'e', viewStateDecimals, 64),
		"rotation": strconv.FormatFloat(NormalizeAngle(s.Rotation), 'f', viewStateDecimals, 64),
	}
	if s.Mode == ModeJulia {
		fields["cx"] = strconv.FormatFloat(s.JuliaC.X, 'f', viewStateDecimals, 64)
		fields["cy"] = strconv.FormatFloat(s.JuliaC.Y, 'f', viewStateDecimals, 64)
	}
	// Map keys marshal sorted, so equal states encode identically.
	raw, _ := json.Marshal(fields)
	q := url.Values{"view": {base64.StdEncoding.EncodeToString(raw)}}
	return viewFragment(s.Mode) + "?" + q.Encode()
}

func viewFragment(m Mode) string {
	if m == ModeMandelbrot || m == "" {
		return "#"
	}
	return "#" + string(m)
}

// DecodeViewState parses a fragment produced by EncodeViewState. It
// accepts a bare fragment or a full URL.
//
// Decoding never fails hard: the returned state is always usable. Missing
// or unparseable fields take the mode's defaults, and the error, wrapping
// ErrInvalidViewState, lists what was replaced.
func DecodeViewState(s string) (ViewState, error) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[i+1:]
	}
	frag, query, _ := strings.Cut(s, "?")

	mode := ModeMandelbrot
	if frag != "" {
		mode = Mode(frag)
	}
	var problems []string
	if _, err := NewFractal(mode); err != nil {
		problems = append(problems, fmt.Sprintf("mode %q", frag))
		mode = ModeMandelbrot
	}

	rec := map[string]any{}
	values, err := url.ParseQuery(query)
	token := values.Get("view")
	switch {
	case err != nil || token == "":
		problems = append(problems, "view parameter")
	default:
		raw, err := decodeBase64(token)
		if err == nil {
			err = json.Unmarshal(raw, &rec)
		}
		if err != nil || rec == nil {
			problems = append(problems, "view payload")
			rec = map[string]any{}
		}
	}
	if m, ok := rec["mode"].(string); ok && m != "" && Mode(m) != mode {
		if _, err := NewFractal(Mode(m)); err == nil && frag == "" {
			mode = Mode(m)
		}
	}

	f, _ := NewFractal(mode)
	d := f.Defaults()
	st := ViewState{Mode: mode, JuliaC: DefaultJuliaC}
	num := func(key string, def float64) float64 {
		if len(rec) == 0 {
			return def
		}
		if v, ok := toFloat(rec[key]); ok {
			return v
		}
		problems = append(problems, key)
		return def
	}
	st.Pan = Pt(num("x", d.Pan.X), num("y", d.Pan.Y))
	st.Zoom = num("zoom", d.Zoom)
	if st.Zoom <= 0 {
		problems = append(problems, "zoom")
		st.Zoom = d.Zoom
	}
	st.Zoom = ClampZoom(f, st.Zoom)
	st.Rotation = NormalizeAngle(num("rotation", d.Rotation))
	if mode == ModeJulia {
		st.JuliaC = Pt(num("cx", DefaultJuliaC.X), num("cy", DefaultJuliaC.Y))
	}

	if len(problems) > 0 {
		Logger().Warn("deepzoom: view state fell back to defaults", "fields", problems)
		return st, fmt.Errorf("%w: %s", ErrInvalidViewState, strings.Join(problems, ", "))
	}
	return st, nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not. An
// unescaped '+' arrives from query parsing as a space.
func decodeBase64(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimRight(s, "="), " ", "+")
	if strings.ContainsAny(s, "-_") {
		return base64.RawURLEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
