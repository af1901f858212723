package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mmcloughlin/geohash"

	"github.com/samirrijal/hereroute/internal/core/domain"
)

const maxWaypoints = 50

var validate = validator.New(validator.WithRequiredStructEnabled())

// waypointInput is a waypoint as accepted over HTTP and GraphQL: either a
// lat/lon pair or a geohash.
type waypointInput struct {
	Lat     *float64       `json:"lat" validate:"omitempty,latitude"`
	Lon     *float64       `json:"lon" validate:"omitempty,longitude"`
	Geohash string         `json:"geohash" validate:"omitempty,max=12"`
	Name    string         `json:"name" validate:"max=200"`
	Options map[string]any `json:"options"`
}

// routeRequest is the POST /v1/route body.
type routeRequest struct {
	Waypoints []waypointInput   `json:"waypoints" validate:"required,min=1,max=50,dive"`
	Params    map[string]string `json:"params" validate:"omitempty,max=20,dive,keys,required,max=64,endkeys,max=256"`
}

func (w waypointInput) toDomain() (domain.Waypoint, error) {
	loc := domain.GeoPoint{}
	switch {
	case w.Geohash != "" && (w.Lat != nil || w.Lon != nil):
		return domain.Waypoint{}, errors.New("lat/lon cannot be combined with geohash")
	case w.Geohash == "" && (w.Lat == nil || w.Lon == nil):
		return domain.Waypoint{}, errors.New("lat and lon are required unless geohash is set")
	case w.Geohash != "":
		if err := geohash.Validate(w.Geohash); err != nil {
			return domain.Waypoint{}, fmt.Errorf("geohash %q: %w", w.Geohash, err)
		}
		loc.Lat, loc.Lon = geohash.DecodeCenter(w.Geohash)
	default:
		loc.Lat, loc.Lon = *w.Lat, *w.Lon
	}
	return domain.Waypoint{Location: loc, Name: w.Name, Options: w.Options}, nil
}

// validateRequest checks req and converts its waypoints.
func validateRequest(req routeRequest) ([]domain.Waypoint, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = formatValidationError(fe)
			}
			return nil, errors.New(strings.Join(msgs, "; "))
		}
		return nil, err
	}
	if err := checkParams(req.Params); err != nil {
		return nil, err
	}

	wps := make([]domain.Waypoint, len(req.Waypoints))
	for i, in := range req.Waypoints {
		wp, err := in.toDomain()
		if err != nil {
			return nil, fmt.Errorf("waypoints[%d]: %w", i, err)
		}
		wps[i] = wp
	}
	return wps, nil
}

func checkParams(params map[string]string) error {
	for k := range params {
		if k == "app_id" || k == "app_code" {
			return fmt.Errorf("parameter %s cannot be set by clients", k)
		}
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must have at least " + fe.Param() + " entries"
	case "max":
		return field + " exceeds the maximum of " + fe.Param()
	case "latitude", "longitude":
		return field + " must be a valid " + fe.Tag()
	default:
		return field + " failed " + fe.Tag() + " validation"
	}
}

// parseWaypointList parses the GET form: waypoints separated by ";" or "|",
// each either "lat,lng" or "gh:<geohash>".
func parseWaypointList(s string) ([]waypointInput, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("waypoints is required")
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	if len(tokens) == 0 {
		return nil, errors.New("waypoints is required")
	}
	if len(tokens) > maxWaypoints {
		return nil, fmt.Errorf("at most %d waypoints are allowed", maxWaypoints)
	}

	out := make([]waypointInput, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if hash, ok := strings.CutPrefix(tok, "gh:"); ok {
			out = append(out, waypointInput{Geohash: hash})
			continue
		}
		latStr, lonStr, ok := strings.Cut(tok, ",")
		if !ok {
			return nil, fmt.Errorf("waypoint %d: want \"lat,lng\" or \"gh:<geohash>\", got %q", i, tok)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: invalid latitude %q", i, latStr)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: invalid longitude %q", i, lonStr)
		}
		out = append(out, waypointInput{Lat: &lat, Lon: &lon})
	}
	return out, nil
}
