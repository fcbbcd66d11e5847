package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

// ringArg converts a [GeoPointInput] argument into a validated ring. Invalid
// entries are dropped.
func ringArg(p graphql.ResolveParams, name string) domain.BoundaryRing {
	raw, _ := p.Args[name].([]interface{})
	return geospatial.ValidateArray(raw)
}

// containmentRing converts a [GeoPointInput] argument into a ring that can be
// tested for containment: every vertex valid and at least 3 of them.
func containmentRing(p graphql.ResolveParams, name string) (domain.BoundaryRing, error) {
	raw, _ := p.Args[name].([]interface{})
	ring, err := strictRing(raw)
	if err != nil {
		return nil, err
	}
	if !ring.Complete() {
		return nil, domain.ErrIncompleteRing
	}
	return ring, nil
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lng": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RingSummary",
		Fields: graphql.Fields{
			"points":           &graphql.Field{Type: graphql.Int},
			"complete":         &graphql.Field{Type: graphql.Boolean},
			"area_hectares":    &graphql.Field{Type: graphql.Float},
			"perimeter_meters": &graphql.Field{Type: graphql.Float},
			"centroid":         &graphql.Field{Type: geoPointType},
			"bounds":           &graphql.Field{Type: boundsType},
		},
	})

	plotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Plot",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"farm_id":       &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"crop_type":     &graphql.Field{Type: graphql.String},
			"boundary":      &graphql.Field{Type: graphql.NewList(geoPointType)},
			"area_hectares": &graphql.Field{Type: graphql.Float},
			"centroid":      &graphql.Field{Type: geoPointType},
			"updated_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	farmType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Farm",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"boundary":      &graphql.Field{Type: graphql.NewList(geoPointType)},
			"area_hectares": &graphql.Field{Type: graphql.Float},
			"centroid":      &graphql.Field{Type: geoPointType},
			"updated_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	ringArgs := graphql.FieldConfigArgument{
		"ring": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(geoPointInput))},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"farms": &graphql.Field{
				Type:        graphql.NewList(farmType),
				Description: "List the farms of a tenant",
				Args: graphql.FieldConfigArgument{
					"tenant": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Farms.List(p.Context, p.Args["tenant"].(string))
				},
			},
			"farm": &graphql.Field{
				Type:        farmType,
				Description: "Get a farm by ID",
				Args: graphql.FieldConfigArgument{
					"tenant": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Farms.Get(p.Context, p.Args["tenant"].(string), p.Args["id"].(string))
				},
			},
			"plots": &graphql.Field{
				Type:        graphql.NewList(plotType),
				Description: "List the plots of a farm",
				Args: graphql.FieldConfigArgument{
					"tenant":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"farm_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Plots.ListByFarm(p.Context, p.Args["tenant"].(string), p.Args["farm_id"].(string))
				},
			},
			"area": &graphql.Field{
				Type:        graphql.Float,
				Description: "Area of a ring in hectares",
				Args:        ringArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					metrics.AreaComputations.WithLabelValues("graphql").Inc()
					return geospatial.Area(ringArg(p, "ring")), nil
				},
			},
			"centroid": &graphql.Field{
				Type:        geoPointType,
				Description: "Vertex mean of a ring",
				Args:        ringArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ring := ringArg(p, "ring")
					if len(ring) == 0 {
						return nil, nil
					}
					return geospatial.Centroid(ring), nil
				},
			},
			"contains": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Whether a point lies inside a ring",
				Args: graphql.FieldConfigArgument{
					"point": &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"ring":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(geoPointInput))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, ok := geospatial.Validate(p.Args["point"])
					if !ok {
						return nil, domain.ErrInvalidCoordinate
					}
					ring, err := containmentRing(p, "ring")
					if err != nil {
						return nil, err
					}
					return geospatial.Contains(pt, ring), nil
				},
			},
			"summary": &graphql.Field{
				Type:        summaryType,
				Description: "Area, perimeter, centroid and bounds of a ring",
				Args:        ringArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					metrics.AreaComputations.WithLabelValues("graphql").Inc()
					return geospatial.Summarize(ringArg(p, "ring")), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
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
