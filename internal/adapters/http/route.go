package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/hereroute/internal/core/domain"
	"github.com/samirrijal/hereroute/internal/core/usecases"
	"github.com/samirrijal/hereroute/internal/pkg/geospatial"
)

// RouteView is one alternative as rendered over HTTP and GraphQL.
type RouteView struct {
	Name            string               `json:"name"`
	Summary         domain.Summary       `json:"summary"`
	Bounds          *domain.Bounds       `json:"bounds,omitempty"`
	Polyline        string               `json:"polyline"`
	Coordinates     []domain.GeoPoint    `json:"coordinates"`
	Instructions    []domain.Instruction `json:"instructions"`
	InputWaypoints  []domain.Waypoint    `json:"input_waypoints"`
	ActualWaypoints []domain.GeoPoint    `json:"actual_waypoints,omitempty"`
}

// RouteResponse is the body of a successful /v1/route call.
type RouteResponse struct {
	RequestID string      `json:"request_id"`
	Routes    []RouteView `json:"routes"`
}

func newRouteResponse(res *usecases.RouteResult) RouteResponse {
	views := make([]RouteView, len(res.Alternatives))
	for i, alt := range res.Alternatives {
		views[i] = newRouteView(alt)
	}
	return RouteResponse{RequestID: res.RequestID, Routes: views}
}

func newRouteView(alt domain.RouteAlternative) RouteView {
	v := RouteView{
		Name:            alt.Name,
		Summary:         alt.Summary,
		Polyline:        encodePolyline(alt.Coordinates),
		Coordinates:     alt.Coordinates,
		Instructions:    alt.Instructions,
		InputWaypoints:  alt.InputWaypoints,
		ActualWaypoints: alt.ActualWaypoints,
	}
	if b, ok := geospatial.BoundsOf(alt.Coordinates); ok {
		v.Bounds = &b
	}
	return v
}

// encodePolyline renders coordinates in Google's encoded polyline format
// with 1e5 precision.
func encodePolyline(points []domain.GeoPoint) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// RouteQueryHandler serves GET /v1/route?waypoints=lat,lng;lat,lng.
// Every other query parameter is forwarded to the routing service.
func RouteQueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		inputs, err := parseWaypointList(c.Query("waypoints"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		params := make(map[string]string)
		c.Context().QueryArgs().VisitAll(func(k, v []byte) {
			if key := string(k); key != "waypoints" {
				params[key] = string(v)
			}
		})

		return handleRoute(c, deps, routeRequest{Waypoints: inputs, Params: params})
	}
}

// RouteBodyHandler serves POST /v1/route with a JSON routeRequest body.
func RouteBodyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return handleRoute(c, deps, req)
	}
}

func handleRoute(c *fiber.Ctx, deps *Dependencies, req routeRequest) error {
	wps, err := validateRequest(req)
	if err != nil {
		return errBadRequest(c, err.Error())
	}

	res, err := deps.Routing.Route(c.UserContext(), wps, req.Params)
	if err != nil {
		return errRouting(c, err)
	}

	c.Set("X-Routing-Request-ID", res.RequestID)
	return c.JSON(newRouteResponse(res))
}
