// Package docs holds the OpenAPI definition served by the swagger UI.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "tags": ["pages"],
                "summary": "Redirect to the landing page",
                "responses": {
                    "302": {"description": "Found"}
                }
            }
        },
        "/submit-request": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["text/html"],
                "tags": ["requests"],
                "summary": "Submit a book request",
                "parameters": [
                    {"type": "string", "description": "book title", "name": "bookTitle", "in": "formData", "required": true},
                    {"type": "string", "description": "book author", "name": "author", "in": "formData", "required": true},
                    {"type": "string", "description": "free text comments", "name": "commentField", "in": "formData"},
                    {"type": "string", "description": "first name", "name": "firstname", "in": "formData", "required": true},
                    {"type": "string", "description": "surname", "name": "surname", "in": "formData", "required": true},
                    {"type": "string", "description": "email", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "description": "mobile", "name": "mobile", "in": "formData"},
                    {"type": "string", "description": "newsletter opt-in (on)", "name": "newsletter", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "429": {"description": "Too Many Requests", "schema": {"type": "string"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "string"}}
                }
            }
        },
        "/view-requests": {
            "get": {
                "produces": ["text/html"],
                "tags": ["requests"],
                "summary": "List all book requests",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Internal Server Error", "schema": {"type": "string"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Service liveness",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.APIResponse"}}
                }
            }
        },
        "/ops/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Service statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.APIResponse"}}
                }
            }
        },
        "/ops/configs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "In-use configuration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.APIResponse"}}
                }
            }
        },
        "/ops/maintenance": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Toggle maintenance mode",
                "parameters": [
                    {"type": "string", "description": "enable or disable", "name": "status", "in": "query", "required": true},
                    {"type": "string", "description": "message shown to users", "name": "msg", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/main.APIError"}}
                }
            }
        },
        "/ops/archive": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Archived book requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/main.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/main.APIError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/main.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "main.APIError": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "requestid": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "main.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Classic Reads book requests",
	Description:      "Collects book requests from readers and lists them with their contact details.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
