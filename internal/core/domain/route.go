package domain

// Waypoint is a location a route must pass through, in caller order.
// Options is opaque to the routing pipeline and carried through untouched.
type Waypoint struct {
	Location GeoPoint       `json:"location"`
	Name     string         `json:"name,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Instruction is one normalized turn-by-turn step. Distance is in meters,
// Time in seconds, both for this step alone.
type Instruction struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Action   string  `json:"action,omitempty"`
	RoadName string  `json:"road_name,omitempty"`
}

// Summary holds the totals accumulated over every instruction of a route.
type Summary struct {
	TotalDistance float64 `json:"total_distance"`
	TotalTime     float64 `json:"total_time"`
}

// RouteAlternative is one candidate route returned for a waypoint set.
type RouteAlternative struct {
	Name            string        `json:"name"`
	Coordinates     []GeoPoint    `json:"coordinates"`
	Instructions    []Instruction `json:"instructions"`
	Summary         Summary       `json:"summary"`
	InputWaypoints  []Waypoint    `json:"input_waypoints"`
	ActualWaypoints []GeoPoint    `json:"actual_waypoints,omitempty"`
}

// Outcome is the single result of a routing request: either a list of
// alternatives (possibly empty) or an error.
type Outcome struct {
	Alternatives []RouteAlternative
	Err          error
}

// Success wraps alternatives into an Outcome.
func Success(alts []RouteAlternative) Outcome {
	return Outcome{Alternatives: alts}
}

// Failure wraps an error into an Outcome.
func Failure(err error) Outcome {
	return Outcome{Err: err}
}

// OK reports whether the outcome carries alternatives rather than an error.
func (o Outcome) OK() bool { return o.Err == nil }
