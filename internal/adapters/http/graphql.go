package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to the routing service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	instructionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Instruction",
		Fields: graphql.Fields{
			"text":      &graphql.Field{Type: graphql.String},
			"distance":  &graphql.Field{Type: graphql.Float},
			"time":      &graphql.Field{Type: graphql.Float},
			"action":    &graphql.Field{Type: graphql.String},
			"road_name": &graphql.Field{Type: graphql.String},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"total_distance": &graphql.Field{Type: graphql.Float},
			"total_time":     &graphql.Field{Type: graphql.Float},
		},
	})

	waypointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Waypoint",
		Fields: graphql.Fields{
			"location": &graphql.Field{Type: geoPointType},
			"name":     &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"name":             &graphql.Field{Type: graphql.String},
			"summary":          &graphql.Field{Type: summaryType},
			"bounds":           &graphql.Field{Type: boundsType},
			"polyline":         &graphql.Field{Type: graphql.String},
			"coordinates":      &graphql.Field{Type: graphql.NewList(geoPointType)},
			"instructions":     &graphql.Field{Type: graphql.NewList(instructionType)},
			"input_waypoints":  &graphql.Field{Type: graphql.NewList(waypointType)},
			"actual_waypoints": &graphql.Field{Type: graphql.NewList(geoPointType)},
		},
	})

	routeResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteResult",
		Fields: graphql.Fields{
			"request_id": &graphql.Field{Type: graphql.String},
			"routes":     &graphql.Field{Type: graphql.NewList(routeType)},
		},
	})

	waypointInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "WaypointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat":     &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"lon":     &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"geohash": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"name":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	paramInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ParamInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"key":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"value": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"route": &graphql.Field{
				Type:        routeResultType,
				Description: "Route through the given waypoints, in order",
				Args: graphql.FieldConfigArgument{
					"waypoints": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(waypointInputType)))},
					"params":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(paramInputType))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req := routeRequest{Params: map[string]string{}}
					for _, raw := range p.Args["waypoints"].([]interface{}) {
						req.Waypoints = append(req.Waypoints, waypointFromArgs(raw.(map[string]interface{})))
					}
					if params, ok := p.Args["params"].([]interface{}); ok {
						for _, raw := range params {
							kv := raw.(map[string]interface{})
							req.Params[kv["key"].(string)] = kv["value"].(string)
						}
					}

					wps, err := validateRequest(req)
					if err != nil {
						return nil, err
					}
					res, err := deps.Routing.Route(p.Context, wps, req.Params)
					if err != nil {
						return nil, err
					}
					return newRouteResponse(res), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func waypointFromArgs(m map[string]interface{}) waypointInput {
	var in waypointInput
	if v, ok := m["lat"].(float64); ok {
		in.Lat = &v
	}
	if v, ok := m["lon"].(float64); ok {
		in.Lon = &v
	}
	in.Geohash, _ = m["geohash"].(string)
	in.Name, _ = m["name"].(string)
	return in
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
