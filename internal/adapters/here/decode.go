package here

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/hereroute/internal/core/domain"
)

// calculateRouteResponse covers both the success and the error shape of a
// calculateroute.json reply.
type calculateRouteResponse struct {
	Response *struct {
		Route []route `json:"route"`
	} `json:"response"`

	Type           string          `json:"type"`
	Subtype        string          `json:"subtype"`
	Details        string          `json:"details"`
	AdditionalData json.RawMessage `json:"additionalData"`
}

type route struct {
	Shape    []string   `json:"shape"`
	Leg      []leg      `json:"leg"`
	Waypoint []waypoint `json:"waypoint"`
}

type leg struct {
	Maneuver []maneuver `json:"maneuver"`
}

type maneuver struct {
	Length      *float64 `json:"length"`
	TravelTime  *float64 `json:"travelTime"`
	Instruction *string  `json:"instruction"`
	Action      string   `json:"action"`
	RoadName    string   `json:"roadName"`
}

type waypoint struct {
	MappedPosition *position `json:"mappedPosition"`
}

type position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type keyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Decode turns a calculateroute.json body into an Outcome. Every
// alternative shares snapshot as its InputWaypoints.
//
// A body without a route list is a service error and yields a
// *domain.RoutingError carrying the service's type and details. A body
// that does not match the response schema yields a *domain.DecodeError.
func Decode(body []byte, snapshot []domain.Waypoint) domain.Outcome {
	var resp calculateRouteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.Failure(&domain.DecodeError{Path: typeErr.Field, Err: err})
		}
		return domain.Failure(&domain.DecodeError{Err: err})
	}

	if resp.Response == nil || resp.Response.Route == nil {
		return domain.Failure(&domain.RoutingError{
			Status:         resp.Type,
			Message:        resp.Details,
			Subtype:        resp.Subtype,
			AdditionalData: additionalData(resp.AdditionalData),
		})
	}

	alts := make([]domain.RouteAlternative, 0, len(resp.Response.Route))
	for i, r := range resp.Response.Route {
		alt, err := decodeRoute(r, fmt.Sprintf("response.route[%d]", i))
		if err != nil {
			return domain.Failure(err)
		}
		alt.InputWaypoints = snapshot
		alts = append(alts, alt)
	}
	return domain.Success(alts)
}

func decodeRoute(r route, path string) (domain.RouteAlternative, error) {
	coords, err := decodeShape(r.Shape, path+".shape")
	if err != nil {
		return domain.RouteAlternative{}, err
	}
	if r.Leg == nil {
		return domain.RouteAlternative{}, &domain.DecodeError{Path: path + ".leg", Err: errors.New("missing")}
	}

	instructions := make([]domain.Instruction, 0)
	var summary domain.Summary
	for j, l := range r.Leg {
		if l.Maneuver == nil {
			return domain.RouteAlternative{}, &domain.DecodeError{Path: fmt.Sprintf("%s.leg[%d].maneuver", path, j), Err: errors.New("missing")}
		}
		for k, m := range l.Maneuver {
			in, err := convertManeuver(m, fmt.Sprintf("%s.leg[%d].maneuver[%d]", path, j, k))
			if err != nil {
				return domain.RouteAlternative{}, err
			}
			summary.TotalDistance += in.Distance
			summary.TotalTime += in.Time
			instructions = append(instructions, in)
		}
	}

	return domain.RouteAlternative{
		Coordinates:     coords,
		Instructions:    instructions,
		Summary:         summary,
		ActualWaypoints: mappedWaypoints(r.Waypoint),
	}, nil
}

// decodeShape parses "lat,lng" points one to one. A trailing elevation
// component is tolerated and dropped.
func decodeShape(shape []string, path string) ([]domain.GeoPoint, error) {
	if shape == nil {
		return nil, &domain.DecodeError{Path: path, Err: errors.New("missing")}
	}
	coords := make([]domain.GeoPoint, len(shape))
	for i, s := range shape {
		parts := strings.Split(s, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, &domain.DecodeError{Path: fmt.Sprintf("%s[%d]", path, i), Err: fmt.Errorf("want \"lat,lng\", got %q", s)}
		}
		lat, err := parseComponent(parts[0])
		if err != nil {
			return nil, &domain.DecodeError{Path: fmt.Sprintf("%s[%d]", path, i), Err: err}
		}
		lon, err := parseComponent(parts[1])
		if err != nil {
			return nil, &domain.DecodeError{Path: fmt.Sprintf("%s[%d]", path, i), Err: err}
		}
		coords[i] = domain.GeoPoint{Lat: lat, Lon: lon}
	}
	return coords, nil
}

func parseComponent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite coordinate %q", s)
	}
	return v, nil
}

func convertManeuver(m maneuver, path string) (domain.Instruction, error) {
	switch {
	case m.Length == nil:
		return domain.Instruction{}, &domain.DecodeError{Path: path + ".length", Err: errors.New("missing")}
	case m.TravelTime == nil:
		return domain.Instruction{}, &domain.DecodeError{Path: path + ".travelTime", Err: errors.New("missing")}
	case m.Instruction == nil:
		return domain.Instruction{}, &domain.DecodeError{Path: path + ".instruction", Err: errors.New("missing")}
	case *m.Length < 0:
		return domain.Instruction{}, &domain.DecodeError{Path: path + ".length", Err: fmt.Errorf("negative value %v", *m.Length)}
	case *m.TravelTime < 0:
		return domain.Instruction{}, &domain.DecodeError{Path: path + ".travelTime", Err: fmt.Errorf("negative value %v", *m.TravelTime)}
	}
	return domain.Instruction{
		Text:     *m.Instruction,
		Distance: *m.Length,
		Time:     *m.TravelTime,
		Action:   m.Action,
		RoadName: m.RoadName,
	}, nil
}

func mappedWaypoints(wps []waypoint) []domain.GeoPoint {
	var out []domain.GeoPoint
	for _, wp := range wps {
		if wp.MappedPosition == nil {
			continue
		}
		out = append(out, domain.GeoPoint{Lat: wp.MappedPosition.Latitude, Lon: wp.MappedPosition.Longitude})
	}
	return out
}

// additionalData flattens HERE's [{"key":..,"value":..}] list. Anything
// else is dropped.
func additionalData(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var kvs []keyValue
	if err := json.Unmarshal(raw, &kvs); err != nil || len(kvs) == 0 {
		return nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}
