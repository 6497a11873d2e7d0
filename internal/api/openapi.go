package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/services"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

const bearerAuth = "bearerAuth"

// BuildOpenAPI describes the /api routes. The document is validated before it
// is returned.
func BuildOpenAPI(ctx context.Context) (*openapi3.T, error) {
	errorResp := jsonResponse("Error", openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema()))
	eventsResp := jsonResponse("Events", openapi3.NewObjectSchema().
		WithProperty("events", openapi3.NewArraySchema().WithItems(eventSchema())).
		WithProperty("count", openapi3.NewIntegerSchema()))

	limit := openapi3.NewQueryParameter("limit").WithSchema(
		openapi3.NewIntegerSchema().
			WithMin(1).
			WithMax(services.MaxEventLimit).
			WithDefault(float64(services.DefaultEventLimit)))
	category := openapi3.NewQueryParameter("category").WithSchema(openapi3.NewStringSchema())

	paths := openapi3.NewPaths(
		openapi3.WithPath(BasePath+"/categories", &openapi3.PathItem{
			Get: operation("getCategories", "List challenge categories", nil,
				jsonResponse("Categories", openapi3.NewObjectSchema().
					WithProperty("categories", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
						WithProperty("name", openapi3.NewStringSchema()).
						WithProperty("challenge_count", openapi3.NewIntegerSchema())))),
				errorResp),
		}),
		openapi3.WithPath(BasePath+"/events", &openapi3.PathItem{
			Get: operation("getCombinedEvents", "List community and discovered events by start time",
				[]*openapi3.Parameter{
					limit,
					category,
					openapi3.NewQueryParameter("upcoming").WithSchema(openapi3.NewBoolSchema()),
				},
				eventsResp, errorResp),
		}),
		openapi3.WithPath(BasePath+"/events/discovered", &openapi3.PathItem{
			Get: operation("getDiscoveredEvents", "List discovered events",
				[]*openapi3.Parameter{
					limit,
					category,
					openapi3.NewQueryParameter("since").WithSchema(openapi3.NewDateTimeSchema()),
				},
				eventsResp, errorResp),
		}),
		openapi3.WithPath(BasePath+"/events/map", &openapi3.PathItem{
			Get: operation("getEventsInBounds", "List events inside a map viewport; west > east crosses the antimeridian",
				[]*openapi3.Parameter{
					coordinate("north", 90),
					coordinate("south", 90),
					coordinate("east", 180),
					coordinate("west", 180),
				},
				eventsResp, errorResp),
		}),
		openapi3.WithPath(BasePath+"/events/{id}", &openapi3.PathItem{
			Get: operation("getEventByID", "Get one event",
				[]*openapi3.Parameter{openapi3.NewPathParameter("id").WithSchema(openapi3.NewUUIDSchema())},
				jsonResponse("Event", openapi3.NewObjectSchema().WithProperty("event", eventSchema())),
				errorResp),
		}),
		openapi3.WithPath(BasePath+"/stats", &openapi3.PathItem{
			Get: operation("getStats", "Community statistics", nil,
				jsonResponse("Stats", openapi3.NewObjectSchema().WithProperty("stats", openapi3.NewObjectSchema().
					WithProperty("founders", openapi3.NewIntegerSchema()).
					WithProperty("challenges", openapi3.NewIntegerSchema()).
					WithProperty("events", openapi3.NewIntegerSchema()).
					WithProperty("upcoming_events", openapi3.NewIntegerSchema()))),
				errorResp),
		}),
		openapi3.WithPath(BasePath+"/logo", &openapi3.PathItem{
			Get: operation("getLogo", "The logo as SVG",
				[]*openapi3.Parameter{
					openapi3.NewQueryParameter("variant").WithSchema(openapi3.NewStringSchema().WithEnum("light", "dark")),
					openapi3.NewQueryParameter("size").WithSchema(openapi3.NewIntegerSchema().
						WithMin(minLogoSize).
						WithMax(maxLogoSize).
						WithDefault(float64(defaultLogoSize))),
				},
				&openapi3.Response{
					Description: ptr("Logo"),
					Content:     openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"image/svg+xml"}),
				},
				errorResp),
		}),
	)

	deleteAccount := operation("deleteAccount", "Delete the signed-in user's account and owned data", nil,
		jsonResponse("Deleted", openapi3.NewObjectSchema().WithProperty("message", openapi3.NewStringSchema())),
		errorResp)
	deleteAccount.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(bearerAuth))
	paths.Set(BasePath+"/account", &openapi3.PathItem{Delete: deleteAccount})

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Civic Match API",
			Version: config.Version(),
		},
		Paths: paths,
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerAuth: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

func operation(id, summary string, params []*openapi3.Parameter, ok, failure *openapi3.Response) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	for _, p := range params {
		op.AddParameter(p)
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: ok}),
		openapi3.WithName("default", failure),
	)
	return op
}

func jsonResponse(description string, schema *openapi3.Schema) *openapi3.Response {
	return openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)
}

func coordinate(name string, limit float64) *openapi3.Parameter {
	return openapi3.NewQueryParameter(name).
		WithRequired(true).
		WithSchema(openapi3.NewFloat64Schema().WithMin(-limit).WithMax(limit))
}

func eventSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewUUIDSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("starts_at", openapi3.NewDateTimeSchema()).
		WithProperty("ends_at", openapi3.NewDateTimeSchema()).
		WithProperty("location", openapi3.NewStringSchema()).
		WithProperty("latitude", openapi3.NewFloat64Schema()).
		WithProperty("longitude", openapi3.NewFloat64Schema()).
		WithProperty("url", openapi3.NewStringSchema()).
		WithProperty("category", openapi3.NewStringSchema()).
		WithProperty("source", openapi3.NewStringSchema().WithEnum("community", "discovered")).
		WithProperty("organizer", openapi3.NewStringSchema()).
		WithProperty("meeting", openapi3.NewObjectSchema().
			WithProperty("platform", openapi3.NewStringSchema()).
			WithProperty("join_url", openapi3.NewStringSchema())).
		WithProperty("created_at", openapi3.NewDateTimeSchema())
}

func ptr[T any](v T) *T { return &v }

var openAPIDocument = sync.OnceValues(func() ([]byte, error) {
	doc, err := BuildOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
})

// GetOpenAPI handles GET /api/openapi.json
func (h *Handler) GetOpenAPI(c *gin.Context) {
	body, err := openAPIDocument()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
