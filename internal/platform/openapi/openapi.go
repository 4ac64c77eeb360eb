// Package openapi describes the record store HTTP API as an OpenAPI 3.0
// document derived from the patient field descriptors.
package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diagreg/diagreg/internal/domain/patient"
)

const recordsTag = "patient-records"

// Generator builds the OpenAPI document.
type Generator struct {
	version string
	baseURL string
}

// NewGenerator creates a new OpenAPI spec generator. baseURL is the API root,
// e.g. http://localhost:8000/api/v1.
func NewGenerator(version, baseURL string) *Generator {
	return &Generator{version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	idParam := []map[string]interface{}{
		{"name": "id", "in": "path", "required": true, "schema": map[string]string{"type": "string", "format": "uuid"}},
	}

	paths := map[string]interface{}{
		"/patient-records": map[string]interface{}{
			"get": operation("listRecords", "List every record",
				nil, nil, map[string]interface{}{
					"200": jsonResponse("All records", arrayOf("#/components/schemas/Record")),
				}),
			"post": operation("createRecord", "Create a record",
				nil, requestBody("#/components/schemas/NewRecord"), map[string]interface{}{
					"201": jsonResponse("Created", ref("#/components/schemas/Record")),
					"400": jsonResponse("Validation failed", ref("#/components/schemas/ValidationError")),
				}),
		},
		"/patient-records/{id}": map[string]interface{}{
			"get": operation("getRecord", "Read a record",
				idParam, nil, map[string]interface{}{
					"200": jsonResponse("Success", ref("#/components/schemas/Record")),
					"404": jsonResponse("Not Found", ref("#/components/schemas/Error")),
				}),
			"put": operation("updateRecord", "Replace every field of a record",
				idParam, requestBody("#/components/schemas/Record"), map[string]interface{}{
					"200": jsonResponse("Updated", ref("#/components/schemas/Record")),
					"400": jsonResponse("Validation failed", ref("#/components/schemas/ValidationError")),
					"404": jsonResponse("Not Found", ref("#/components/schemas/Error")),
				}),
			"delete": operation("deleteRecord", "Delete a record",
				idParam, nil, map[string]interface{}{
					"204": map[string]interface{}{"description": "Deleted"},
					"404": jsonResponse("Not Found", ref("#/components/schemas/Error")),
				}),
		},
		"/patient-records/view": map[string]interface{}{
			"get": operation("viewRecords", "Filtered, searched, sorted and paginated records",
				append(viewParameters(), pageParameters()...), nil, map[string]interface{}{
					"200": jsonResponse("One page of the view", ref("#/components/schemas/Page")),
					"400": jsonResponse("Invalid query", ref("#/components/schemas/Error")),
				}),
		},
		"/patient-records/dashboard": map[string]interface{}{
			"get": operation("dashboard", "Aggregates over a date range",
				viewParameters()[:2], nil, map[string]interface{}{
					"200": jsonResponse("Dashboard statistics", map[string]interface{}{"type": "object"}),
				}),
		},
		"/patient-records/export": map[string]interface{}{
			"get": operation("exportRecords", "CSV export of the view",
				viewParameters(), nil, map[string]interface{}{
					"200": map[string]interface{}{
						"description": "UTF-8 CSV with BOM",
						"content": map[string]interface{}{
							"text/csv": map[string]interface{}{"schema": map[string]string{"type": "string"}},
						},
					},
					"404": jsonResponse("No records to export", ref("#/components/schemas/Error")),
				}),
		},
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Patient Diagnosis Registry API",
			"version":     g.version,
			"description": "Record store and reporting API for patient diagnosis records",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": buildComponentSchemas(),
		},
	}
}

func operation(id, summary string, params []map[string]interface{}, body, responses map[string]interface{}) map[string]interface{} {
	op := map[string]interface{}{
		"summary":     summary,
		"operationId": id,
		"tags":        []string{recordsTag},
		"responses":   responses,
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if body != nil {
		op["requestBody"] = body
	}
	return op
}

func ref(schemaRef string) map[string]interface{} {
	return map[string]interface{}{"$ref": schemaRef}
}

func arrayOf(schemaRef string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": ref(schemaRef)}
}

func requestBody(schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref(schemaRef)},
		},
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"schema":      schema,
	}
}

// viewParameters are the query parameters of the view and export endpoints;
// the first two are the date range.
func viewParameters() []map[string]interface{} {
	keys := make([]string, 0, len(patient.Fields))
	for _, f := range patient.Fields {
		keys = append(keys, f.Key)
	}
	fieldEnum := map[string]interface{}{"type": "string", "enum": keys}
	date := map[string]interface{}{"type": "string", "format": "date"}

	return []map[string]interface{}{
		queryParam("from", "Inclusive start date", date),
		queryParam("to", "Inclusive end date", date),
		queryParam("q", "Case-insensitive search term", map[string]interface{}{"type": "string"}),
		queryParam("field", "Restrict the search to one field", fieldEnum),
		queryParam("sort", "Sort field", fieldEnum),
		queryParam("dir", "Sort direction", map[string]interface{}{"type": "string", "enum": []string{"asc", "desc"}}),
	}
}

func pageParameters() []map[string]interface{} {
	integer := map[string]interface{}{"type": "integer", "minimum": 1}
	return []map[string]interface{}{
		queryParam("page", "1-based page number", integer),
		queryParam("page_size", "Rows per page", integer),
	}
}

// fieldSchema maps a field kind to its JSON schema.
func fieldSchema(f patient.Field) map[string]interface{} {
	s := map[string]interface{}{"description": f.Label}
	switch f.Kind {
	case patient.KindID:
		s["type"], s["format"] = "string", "uuid"
	case patient.KindDate:
		s["type"], s["format"] = "string", "date"
	case patient.KindInt:
		s["type"], s["minimum"] = "integer", 1
	case patient.KindEnum:
		s["type"] = "string"
		switch f.Key {
		case "sex":
			s["enum"] = patient.Sexes
		case "biopsy":
			s["enum"] = []patient.Biopsy{patient.BiopsyYes, patient.BiopsyNo}
		}
	default:
		s["type"] = "string"
	}
	return s
}

// buildComponentSchemas derives NewRecord and Record from patient.Fields so
// the document cannot drift from the model.
func buildComponentSchemas() map[string]interface{} {
	newProps := map[string]interface{}{}
	for _, f := range patient.Fields {
		if f.Editable() {
			newProps[f.Key] = fieldSchema(f)
		}
	}

	recordProps := map[string]interface{}{}
	for k, v := range newProps {
		recordProps[k] = v
	}
	id, _ := patient.FieldByKey("id")
	recordProps["id"] = fieldSchema(id)
	recordProps["created_at"] = map[string]interface{}{"type": "string", "format": "date-time", "readOnly": true}
	recordProps["updated_at"] = map[string]interface{}{"type": "string", "format": "date-time", "readOnly": true}

	required := []string{"event_date", "name", "age", "sex", "biopsy"}

	return map[string]interface{}{
		"NewRecord": map[string]interface{}{
			"type":       "object",
			"required":   required,
			"properties": newProps,
		},
		"Record": map[string]interface{}{
			"type":       "object",
			"required":   append([]string{"id"}, required...),
			"properties": recordProps,
		},
		"ValidationError": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]string{"type": "string"},
				"fields": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": map[string]string{"type": "string"},
				},
			},
		},
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]string{"type": "string"},
			},
		},
		"Page": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"data":        arrayOf("#/components/schemas/Record"),
				"total":       map[string]string{"type": "integer"},
				"page":        map[string]string{"type": "integer"},
				"page_size":   map[string]string{"type": "integer"},
				"total_pages": map[string]string{"type": "integer"},
				"has_more":    map[string]string{"type": "boolean"},
			},
		},
	}
}

// RegisterRoutes registers the OpenAPI endpoint.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
