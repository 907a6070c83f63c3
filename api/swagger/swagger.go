package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "WMS Imagery API",
        "description": "Enumerates half-hour WMS slots and downloads satellite tiles",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Intervals", "description": "Half-hour slot enumeration"},
        {"name": "Downloads", "description": "Tile download runs"},
        {"name": "Tiles", "description": "Signed tile retrieval"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/intervals": {
            "get": {
                "tags": ["Intervals"],
                "summary": "List half-hour slot labels for a date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "description": "YYYYMMDD"},
                    {"name": "final", "in": "query", "type": "boolean", "description": "Clamp to the current time as the last day of a range"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads": {
            "post": {
                "tags": ["Downloads"],
                "summary": "Start a download run over an inclusive date range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DownloadRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid date or range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/{id}": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Download run status with signed tile links",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/{id}/manifest": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Download the run manifest",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Manifest file"},
                    "409": {"description": "Run still in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/downloads/{id}/records": {
            "get": {
                "tags": ["Downloads"],
                "summary": "Fetch ledger rows of a download run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No ledger rows for the run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tiles/{token}": {
            "get": {
                "tags": ["Tiles"],
                "summary": "Download a saved tile via signed token",
                "produces": ["image/png"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PNG tile"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Tile not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DownloadRequest": {
            "type": "object",
            "required": ["start", "end"],
            "properties": {
                "start": {"type": "string", "example": "20240915"},
                "end": {"type": "string", "example": "20240916"}
            }
        },
        "TileOutcome": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "label": {"type": "string"},
                "url": {"type": "string"},
                "status": {"type": "string", "enum": ["SAVED", "FAILED", "SKIPPED"]},
                "http_status": {"type": "integer"},
                "file": {"type": "string"},
                "bytes": {"type": "integer"},
                "error": {"type": "string"},
                "fetched_at": {"type": "string", "format": "date-time"}
            }
        },
        "TileLink": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "label": {"type": "string"},
                "url": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "Run": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "RUNNING", "FINISHED", "FAILED"]},
                "total": {"type": "integer"},
                "saved": {"type": "integer"},
                "failed": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"},
                "error": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/TileOutcome"}},
                "links": {"type": "array", "items": {"$ref": "#/definitions/TileLink"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
