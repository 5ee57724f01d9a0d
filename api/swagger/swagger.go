package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Edu Centre API",
        "description": "Session scheduling for the education centre admin system",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Scheduler", "description": "Recurring session expansion and maintenance"},
        {"name": "Sessions", "description": "Session listing and lifecycle"}
    ],
    "paths": {
        "/scheduler/run": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Expand recurring class schedules into sessions for a month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "description": "Month (YYYY-MM)"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RunSchedulerRequest"}}
                ],
                "responses": {
                    "200": {"description": "Expansion result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid month", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/ensure-upcoming": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Expand the current month and the rest of the rolling horizon",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "description": "Base month (YYYY-MM)"}
                ],
                "responses": {
                    "200": {"description": "Per-month results", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/sessions": {
            "delete": {
                "tags": ["Scheduler"],
                "summary": "Delete every session of a month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "required": true, "description": "Month (YYYY-MM)"}
                ],
                "responses": {
                    "200": {"description": "Deleted ids", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid month", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/sessions/range": {
            "delete": {
                "tags": ["Scheduler"],
                "summary": "Delete every session within a date range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "start", "in": "query", "type": "string", "required": true, "description": "Start date (YYYY-MM-DD)"},
                    {"name": "end", "in": "query", "type": "string", "required": true, "description": "End date (YYYY-MM-DD)"}
                ],
                "responses": {
                    "200": {"description": "Deleted ids", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions of a month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "type": "string", "description": "Month (YYYY-MM), defaults to the current month"},
                    {"name": "classId", "in": "query", "type": "string", "description": "Class filter"}
                ],
                "responses": {
                    "200": {"description": "Sessions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid month", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/special": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Create a one-off session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSpecialSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot already taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/reschedule": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Cancel a scheduled session and create its replacement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Rescheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session not scheduled or slot taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/status": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Complete or cancel a scheduled session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSessionStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session is terminal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RunSchedulerRequest": {
            "type": "object",
            "properties": {
                "month": {"type": "string", "example": "2025-03"}
            }
        },
        "CreateSpecialSessionRequest": {
            "type": "object",
            "required": ["classId", "date", "startTime"],
            "properties": {
                "classId": {"type": "string"},
                "date": {"type": "string", "example": "2025-03-03"},
                "startTime": {"type": "string", "example": "09:00"},
                "durationMinutes": {"type": "integer"},
                "targetStudentIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "RescheduleSessionRequest": {
            "type": "object",
            "required": ["date", "startTime"],
            "properties": {
                "date": {"type": "string"},
                "startTime": {"type": "string"},
                "durationMinutes": {"type": "integer"}
            }
        },
        "UpdateSessionStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["COMPLETED", "CANCELLED"]}
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
