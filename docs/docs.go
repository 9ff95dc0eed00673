// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Register an operator", "consumes": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Obtain a bearer token", "consumes": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/shade/homing": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Start homing",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/shade/open": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Open the shade",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/shade/close": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Close the shade",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/shade/stop": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Emergency stop",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/shade/position": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Move to a position",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.MoveRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/shade/apply-offset": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Apply the calibration offset",
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/shade/restart": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["system"], "summary": "Restart the controller",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/shade/state": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["shade"], "summary": "Get shade state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ShadeState"}}}}
        },
        "/api/v1/config": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["properties"], "summary": "Get device settings",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/properties": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["properties"], "summary": "List properties",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/properties/{name}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["properties"], "summary": "Set a property",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "name", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PropertyRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["logs"], "summary": "List motion events",
                "parameters": [
                    {"in": "query", "name": "from", "type": "string"},
                    {"in": "query", "name": "to", "type": "string"},
                    {"in": "query", "name": "type", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        }
    },
    "definitions": {
        "handlers.MoveRequest": {
            "type": "object", "required": ["position"],
            "properties": {"position": {"type": "number", "example": 40}}
        },
        "handlers.PropertyRequest": {
            "type": "object", "required": ["value"],
            "properties": {"value": {"type": "string", "example": "650"}}
        },
        "models.ShadeState": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "homed": {"type": "boolean"},
                "moving": {"type": "boolean"},
                "position": {"type": "integer"},
                "position_target": {"type": "number"},
                "offset": {"type": "integer"},
                "endstop_pressed": {"type": "boolean"},
                "night_mode": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Shade controller API",
	Description:      "Motion control for a motorized shade: homing, positioning and night mode.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
