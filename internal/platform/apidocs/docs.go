// Package apidocs registers the OpenAPI document served by gin-swagger in dev mode.
package apidocs

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
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Create an account",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {"201": {"description": "created"}, "400": {"description": "validation or duplicate name"}, "403": {"description": "bad admin code"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange credentials for a bearer token",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "token"}, "401": {"description": "bad credentials"}}
            }
        },
        "/auth/accounts/{id}": {
            "delete": {
                "tags": ["auth"],
                "summary": "Delete an account without open loans",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "deleted"}, "400": {"description": "open loans"}, "404": {"description": "not found"}}
            }
        },
        "/titles": {
            "get": {
                "tags": ["catalog"],
                "summary": "Search titles",
                "parameters": [
                    {"in": "query", "name": "search_by", "type": "string", "enum": ["title", "author", "category"]},
                    {"in": "query", "name": "q", "type": "string"},
                    {"in": "query", "name": "sort_by", "type": "string", "enum": ["name", "author", "totalQuantity", "availableQuantity"]},
                    {"in": "query", "name": "sort_order", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {"200": {"description": "items"}}
            },
            "post": {
                "tags": ["catalog"],
                "summary": "Add a title or restock an existing one",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/AddTitleRequest"}}],
                "responses": {"201": {"description": "created or restocked"}, "400": {"description": "validation"}}
            }
        },
        "/titles/{id}/copies": {
            "get": {
                "tags": ["copies"],
                "summary": "List the copies of a title",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "items"}, "404": {"description": "unknown title"}}
            },
            "post": {
                "tags": ["copies"],
                "summary": "Add copies to a title",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/AddCopiesRequest"}}
                ],
                "responses": {"201": {"description": "new copy keys"}, "404": {"description": "unknown title"}}
            }
        },
        "/titles/{id}/loans": {
            "get": {
                "tags": ["ledger"],
                "summary": "Loans of a title borrowed in [from, to)",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "items"}, "400": {"description": "bad range"}}
            }
        },
        "/copies/{key}": {
            "delete": {
                "tags": ["copies"],
                "summary": "Remove a copy that is not on loan",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "key", "type": "string", "required": true}],
                "responses": {"200": {"description": "removed"}, "400": {"description": "copy is borrowed"}, "404": {"description": "unknown copy"}}
            }
        },
        "/copies/{key}/borrow": {
            "post": {
                "tags": ["lending"],
                "summary": "Borrow a copy",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "key", "type": "string", "required": true}],
                "responses": {"201": {"description": "loan opened"}, "400": {"description": "policy refusal"}, "404": {"description": "unknown copy"}}
            }
        },
        "/loans/{key}/return": {
            "post": {
                "tags": ["lending"],
                "summary": "Return a borrowed copy",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "key", "type": "string", "required": true}],
                "responses": {"200": {"description": "loan closed"}, "403": {"description": "not the borrower"}, "404": {"description": "no open loan"}}
            }
        },
        "/me/loans": {
            "get": {
                "tags": ["ledger"],
                "summary": "Loan history of the caller",
                "security": [{"Bearer": []}],
                "responses": {"200": {"description": "items"}}
            }
        },
        "/inventory-changes": {
            "get": {
                "tags": ["ledger"],
                "summary": "Inventory change log",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "items, total, next_offset"}}
            }
        },
        "/reports/overdue": {
            "get": {
                "tags": ["ledger"],
                "summary": "Open loans labelled OK or OVERDUE",
                "security": [{"Bearer": []}],
                "responses": {"200": {"description": "items"}}
            }
        },
        "/categories": {
            "get": {"tags": ["catalog"], "summary": "List categories", "responses": {"200": {"description": "items"}}}
        },
        "/categories/{id}": {
            "delete": {
                "tags": ["catalog"],
                "summary": "Delete a category",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "deleted"}, "404": {"description": "not found"}}
            }
        },
        "/stats/books": {
            "get": {
                "tags": ["stats"],
                "summary": "Per-title usage",
                "parameters": [{"in": "query", "name": "refresh", "type": "boolean"}],
                "responses": {"200": {"description": "items"}}
            }
        },
        "/stats/popular": {
            "get": {
                "tags": ["stats"],
                "summary": "Most borrowed titles",
                "parameters": [{"in": "query", "name": "category_id", "type": "integer"}],
                "responses": {"200": {"description": "items"}}
            }
        },
        "/stats/users": {
            "get": {
                "tags": ["stats"],
                "summary": "Per-user borrowing for a period",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"in": "query", "name": "period", "type": "string", "enum": ["monthly", "quarterly"]},
                    {"in": "query", "name": "ref", "type": "string"},
                    {"in": "query", "name": "refresh", "type": "boolean"}
                ],
                "responses": {"200": {"description": "period and items"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["user_name", "password"],
            "properties": {
                "user_name": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "admin"]},
                "admin_code": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["user_name", "password"],
            "properties": {"user_name": {"type": "string"}, "password": {"type": "string"}}
        },
        "AddCopiesRequest": {
            "type": "object",
            "required": ["quantity"],
            "properties": {"quantity": {"type": "integer", "minimum": 1}}
        },
        "AddTitleRequest": {
            "type": "object",
            "required": ["name", "quantity"],
            "properties": {
                "name": {"type": "string"},
                "author": {"type": "string"},
                "categories": {"type": "array", "items": {"type": "string"}},
                "quantity": {"type": "integer", "minimum": 1}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "libcirc API",
	Description:      "Library circulation: catalog, copies, loans and usage statistics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
