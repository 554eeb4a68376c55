// Package docs registers the OpenAPI description of the blinks API with swag
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
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health Check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/v1/platforms": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Blinks"],
                "summary": "List Platforms",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}}}
            }
        },
        "/api/v1/wallets/{address}/blinks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Blinks"],
                "summary": "List Wallet Blinks",
                "parameters": [{"type": "string", "description": "Wallet address", "name": "address", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Blinks"],
                "summary": "Generate Blink",
                "parameters": [
                    {"type": "string", "description": "Wallet address", "name": "address", "in": "path", "required": true},
                    {"description": "Platform selection", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.GenerateBlinkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/wallets/{address}/blinks/export": {
            "get": {
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Blinks"],
                "summary": "Export Wallet Blinks",
                "parameters": [{"type": "string", "description": "Wallet address", "name": "address", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "XLSX file", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/wallets/{address}/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Blinks"],
                "summary": "Wallet Blink Summary",
                "parameters": [{"type": "string", "description": "Wallet address", "name": "address", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "dto.GenerateBlinkRequest": {
            "type": "object",
            "required": ["platform"],
            "properties": {
                "platform": {"type": "string", "maxLength": 64}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Avax Blinks API",
	Description:      "Generate and track Avalanche DeFi redirect links per wallet",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
