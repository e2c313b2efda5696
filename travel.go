package deepzoom

import (
	"math"
	"time"
)

// TravelStaging is the choreography TravelTo picks for a preset.
type TravelStaging int

const (
	// TravelDirect runs pan, zoom, rotation and palette together. Used
	// when the target is already close in position and scale.
	TravelDirect TravelStaging = iota
	// TravelPanThenZoom pans first, then zooms. Used when the target lies
	// inside the current view.
	TravelPanThenZoom
	// TravelZoomOutPanIn zooms out until both views fit, pans, then zooms
	// into the target.
	TravelZoomOutPanIn
)

func (s TravelStaging) String() string {
	switch s {
	case TravelDirect:
		return "direct"
	case TravelPanThenZoom:
		return "pan-then-zoom"
	case TravelZoomOutPanIn:
		return "zoom-out-pan-in"
	}
	return "unknown"
}

const (
	travelNearViews  = 1.5 // pan distance, in view heights, that counts as near
	travelOutMargin  = 1.2 // zoom-out overshoot over the pan distance
	travelBaseTime   = 1500 * time.Millisecond
	travelPerDecade  = 450 * time.Millisecond
	travelMaxTime    = 12 * time.Second
	travelDirectSpan = 3 // log2 of the largest zoom ratio travelled directly
)

// TravelPlan is the staging TravelTo uses for a target.
type TravelPlan struct {
	Staging TravelStaging

	// Distance is the pan distance in fractal units; LogRatio is
	// |ln(targetZoom/currentZoom)|.
	Distance float64
	LogRatio float64

	// OutZoom is the widest zoom of a zoom-out-pan-in travel.
	OutZoom float64

	// Duration is the suggested total duration.
	Duration time.Duration
}

// PlanTravel picks the staging for going from v to p. Distance is measured
// in view heights of the target and of the current view, and scale in the
// log of the zoom ratio, so travel between neighbouring views skips the
// zoom-out detour.
func PlanTravel(v *View, p Preset) TravelPlan {
	cur := v.Zoom()
	target := p.Zoom
	if target <= 0 {
		target = cur
	}
	plan := TravelPlan{
		Distance: v.Pan().Distance(p.Pan),
		LogRatio: math.Abs(math.Log(target / cur)),
	}

	switch {
	case plan.Distance <= travelNearViews*target && plan.LogRatio <= travelDirectSpan*math.Ln2:
		plan.Staging = TravelDirect
	case plan.Distance <= travelNearViews*cur:
		plan.Staging = TravelPanThenZoom
	default:
		plan.Staging = TravelZoomOutPanIn
		plan.OutZoom = max(cur, target, plan.Distance*travelOutMargin)
	}

	decades := plan.LogRatio / math.Ln10
	if plan.Staging == TravelZoomOutPanIn {
		decades = (math.Log(plan.OutZoom/cur) + math.Log(plan.OutZoom/target)) / math.Ln10
	}
	plan.Duration = min(travelBaseTime+time.Duration(decades*float64(travelPerDecade)), travelMaxTime)
	return plan
}

// TravelTo animates to preset p with the staging PlanTravel chooses. A
// non-positive d uses the plan's suggested duration. Every other running
// transition is cancelled first; cancelling any stage transition, or the
// returned token, stops the whole travel.
//
// The preset's mode is not switched here; Session.TravelToPreset does that.
func (a *Animator) TravelTo(p Preset, d time.Duration) *Token {
	v := a.target.View()
	if p.Zoom <= 0 {
		p.Zoom = v.Zoom()
	}
	plan := PlanTravel(v, p)
	if d <= 0 {
		d = plan.Duration
	}
	Logger().Debug("deepzoom: travel",
		"preset", p.Name, "staging", plan.Staging, "distance", plan.Distance, "duration", d)

	a.CancelAll()

	frac := func(f float64) time.Duration { return time.Duration(float64(d) * f) }
	look := func(dur time.Duration) []*Token {
		toks := []*Token{a.RotateTo(p.Rotation, dur)}
		if pal, ok := PaletteByID(p.PaletteID); ok {
			toks = append(toks, a.PaletteTo(pal, dur))
		}
		if len(p.Params) > 0 {
			toks = append(toks, a.ParamsTo(p.Params, dur))
		}
		return toks
	}

	var stages []func() []*Token
	switch plan.Staging {
	case TravelDirect:
		stages = append(stages, func() []*Token {
			return append(look(d), a.PanTo(p.Pan, d), a.ZoomTo(p.Zoom, d))
		})
	case TravelPanThenZoom:
		stages = append(stages,
			func() []*Token { return append(look(frac(0.35)), a.PanTo(p.Pan, frac(0.35))) },
			func() []*Token { return []*Token{a.ZoomTo(p.Zoom, frac(0.65))} },
		)
	case TravelZoomOutPanIn:
		stages = append(stages,
			func() []*Token { return []*Token{a.ZoomTo(plan.OutZoom, frac(0.3))} },
			func() []*Token { return append(look(frac(0.25)), a.PanTo(p.Pan, frac(0.25))) },
			func() []*Token { return []*Token{a.ZoomTo(p.Zoom, frac(0.45))} },
		)
	}
	return a.sequence(KindTravel, stages)
}

// sequence runs stages one after another as a transition of kind k. A stage
// starts once every token of the previous stage is done.
func (a *Animator) sequence(k Kind, stages []func() []*Token) *Token {
	var current []*Token
	next := 0
	var tok *Token
	step := func(time.Duration) bool {
		running := false
		for _, t := range current {
			if t.Cancelled() {
				tok.Cancel()
				return false
			}
			running = running || t.Running()
		}
		if running {
			return false
		}
		if next == len(stages) {
			return true
		}
		current = stages[next]()
		next++
		return false
	}
	tok = a.start(k, nil, step)
	tok.onCancel = append(tok.onCancel, func() {
		for _, t := range current {
			t.Cancel()
		}
	})
	return tok
}
