// Package docs holds the Swagger document served under /swagger.
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
        "/health": {
            "get": {
                "summary": "Dependency health",
                "tags": [
                    "health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "503": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/healthz": {
            "get": {
                "summary": "Liveness probe",
                "tags": [
                    "health"
                ],
                "produces": [],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/sessions": {
            "post": {
                "summary": "Open a staging session",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handler.openSessionRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    },
                    "400": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "summary": "Get a staging session",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            },
            "delete": {
                "summary": "Close a staging session",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/uploads": {
            "post": {
                "summary": "Stage a file",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "document_type_id",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "file",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    },
                    "422": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/uploads/{typeId}/{index}": {
            "delete": {
                "summary": "Unstage a file",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "typeId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "name": "index",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/replacements": {
            "post": {
                "summary": "Replace an existing document",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "document_id",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "mode",
                        "in": "formData",
                        "required": false,
                        "description": "delete or archive"
                    },
                    {
                        "type": "file",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/deletes/{docId}": {
            "put": {
                "summary": "Mark a document for deletion",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "docId",
                        "in": "path",
                        "required": true,
                        "description": "document id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            },
            "delete": {
                "summary": "Undo a pending deletion",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "docId",
                        "in": "path",
                        "required": true,
                        "description": "document id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/archives/{docId}": {
            "put": {
                "summary": "Mark a document for archival",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "docId",
                        "in": "path",
                        "required": true,
                        "description": "document id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            },
            "delete": {
                "summary": "Undo a pending archival",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "type": "string",
                        "name": "docId",
                        "in": "path",
                        "required": true,
                        "description": "document id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/commit": {
            "post": {
                "summary": "Commit a staging session",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/handler.commitRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.CommitResult"
                        }
                    }
                }
            }
        },
        "/sessions/{id}/reset": {
            "post": {
                "summary": "Reset a staging session",
                "tags": [
                    "sessions"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "session id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/staging.View"
                        }
                    }
                }
            }
        },
        "/archives": {
            "get": {
                "summary": "List archived documents",
                "tags": [
                    "archives"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "module",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "entity_id",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "name": "offset",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/archives/export": {
            "get": {
                "summary": "Export archived documents",
                "tags": [
                    "archives"
                ],
                "produces": [
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "module",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "entity_id",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "XLSX workbook",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/archives/{id}/restore": {
            "post": {
                "summary": "Restore an archived document",
                "tags": [
                    "archives"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "403": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/archives/{id}/content": {
            "get": {
                "summary": "Preview an archived document",
                "tags": [
                    "archives"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.FileContent"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/documents/{id}/content": {
            "get": {
                "summary": "Preview a document",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.FileContent"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        },
        "/commits": {
            "get": {
                "summary": "List commit reports",
                "tags": [
                    "commits"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "module",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "string",
                        "name": "entity_id",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "name": "offset",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/commits/{id}": {
            "get": {
                "summary": "Get a commit report",
                "tags": [
                    "commits"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.CommitReport"
                        }
                    },
                    "404": {
                        "description": "error",
                        "schema": {
                            "$ref": "#/definitions/handler.errorPayload"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "request_id": {
                    "type": "string"
                },
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {
                            "type": "string"
                        },
                        "message": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "handler.openSessionRequest": {
            "type": "object",
            "properties": {
                "module": {
                    "type": "string"
                },
                "entity_id": {
                    "type": "string"
                },
                "max_upload_mb": {
                    "type": "integer"
                },
                "allow_delete_without_replacement": {
                    "type": "boolean"
                }
            }
        },
        "handler.commitRequest": {
            "type": "object",
            "properties": {
                "entity_id": {
                    "type": "string"
                }
            }
        },
        "model.FileContent": {
            "type": "object",
            "properties": {
                "filename": {
                    "type": "string"
                },
                "mime_type": {
                    "type": "string"
                },
                "content": {
                    "type": "string"
                }
            }
        },
        "model.CommitReport": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "session_id": {
                    "type": "string"
                },
                "module": {
                    "type": "string"
                },
                "entity_id": {
                    "type": "string"
                },
                "succeeded": {
                    "type": "integer"
                },
                "failed": {
                    "type": "integer"
                },
                "started_at": {
                    "type": "string"
                },
                "finished_at": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "kind": {
                                "type": "string"
                            },
                            "document_id": {
                                "type": "string"
                            },
                            "document_type_id": {
                                "type": "string"
                            },
                            "filename": {
                                "type": "string"
                            },
                            "error": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "staging.Validity": {
            "type": "object",
            "properties": {
                "valid": {
                    "type": "boolean"
                },
                "missing": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "override": {
                    "type": "boolean"
                }
            }
        },
        "staging.View": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "module": {
                    "type": "string"
                },
                "entity_id": {
                    "type": "string"
                },
                "max_upload_mb": {
                    "type": "integer"
                },
                "assignments": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "archived": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "staged": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "pending_delete": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "pending_archive": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "validity": {
                    "$ref": "#/definitions/staging.Validity"
                },
                "dirty": {
                    "type": "boolean"
                },
                "can_delete": {
                    "type": "boolean"
                },
                "can_archive": {
                    "type": "boolean"
                },
                "warnings": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "staging.CommitResult": {
            "type": "object",
            "properties": {
                "session_id": {
                    "type": "string"
                },
                "module": {
                    "type": "string"
                },
                "entity_id": {
                    "type": "string"
                },
                "skipped": {
                    "type": "boolean"
                },
                "started_at": {
                    "type": "string"
                },
                "finished_at": {
                    "type": "string"
                },
                "operations": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "kind": {
                                "type": "string"
                            },
                            "document_id": {
                                "type": "string"
                            },
                            "document_type_id": {
                                "type": "string"
                            },
                            "filename": {
                                "type": "string"
                            },
                            "error": {
                                "type": "string"
                            }
                        }
                    }
                }
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
	Title:            "fleetdocs API",
	Description:      "Document staging sessions for driver and vehicle paperwork.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
