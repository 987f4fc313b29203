package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FileTrack API",
        "description": "File lifecycle and time-based escalation engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Files", "description": "Case file lifecycle"},
        {"name": "Extensions", "description": "Time-extension workflow"},
        {"name": "Incentives", "description": "Points and coin economies"},
        {"name": "Admin", "description": "Holidays, desks, settings and sweeps"}
    ],
    "paths": {
        "/files": {
            "get": {
                "tags": ["Files"],
                "summary": "List case files",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "divisionId", "in": "query", "type": "string"},
                    {"name": "departmentId", "in": "query", "type": "string"},
                    {"name": "assignedTo", "in": "query", "type": "string"},
                    {"name": "redListed", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Files"],
                "summary": "Register a new case file",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFileRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/files/{id}": {
            "get": {
                "tags": ["Files"],
                "summary": "Get a case file",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/files/{id}/history": {
            "get": {
                "tags": ["Files"],
                "summary": "Get a file's routing trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/files/{id}/forward": {
            "post": {
                "tags": ["Files"],
                "summary": "Forward a file to another holder",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ForwardFileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the current holder"}
                }
            }
        },
        "/files/{id}/action": {
            "post": {
                "tags": ["Files"],
                "summary": "Apply a named transition",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FileActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Action not valid for current state"}
                }
            }
        },
        "/files/{id}/recall": {
            "post": {
                "tags": ["Files"],
                "summary": "Recall a file out of circulation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Super admin only"}
                }
            }
        },
        "/files/{id}/dispatch": {
            "post": {
                "tags": ["Files"],
                "summary": "Dispatch an approved file",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DispatchFileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Only approved files can be dispatched"}
                }
            }
        },
        "/files/{id}/extensions": {
            "get": {
                "tags": ["Extensions"],
                "summary": "List extension requests for a file",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Extensions"],
                "summary": "Request extra time on a file",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestExtensionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Only the current holder may request"}
                }
            }
        },
        "/extensions/pending": {
            "get": {
                "tags": ["Extensions"],
                "summary": "List extension requests awaiting my approval",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/extensions/{id}/resolve": {
            "post": {
                "tags": ["Extensions"],
                "summary": "Approve or deny an extension request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveExtensionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already resolved"}
                }
            }
        },
        "/incentives/me": {
            "get": {
                "tags": ["Incentives"],
                "summary": "Get my incentive balances",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incentives/me/transactions": {
            "get": {
                "tags": ["Incentives"],
                "summary": "List my ledger transactions",
                "parameters": [
                    {"name": "ledger", "in": "query", "type": "string", "enum": ["points", "coins"]},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incentives/leaderboard": {
            "get": {
                "tags": ["Incentives"],
                "summary": "Points leaderboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/redlist": {
            "get": {
                "tags": ["Incentives"],
                "summary": "Export the current red list",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report payload"}
                }
            }
        },
        "/admin/holidays": {
            "get": {
                "tags": ["Admin"],
                "summary": "List configured holidays",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Register a holiday",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateHolidayRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/admin/settings": {
            "get": {
                "tags": ["Admin"],
                "summary": "List runtime settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/sweep": {
            "post": {
                "tags": ["Admin"],
                "summary": "Run a red-list sweep immediately",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "CreateFileRequest": {
            "type": "object",
            "required": ["subject", "divisionId", "departmentId"],
            "properties": {
                "subject": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "string", "enum": ["LOW", "NORMAL", "HIGH", "URGENT"]},
                "priorityCategory": {"type": "string"},
                "divisionId": {"type": "string"},
                "departmentId": {"type": "string"},
                "allottedDays": {"type": "integer"},
                "dueDate": {"type": "string", "format": "date-time"}
            }
        },
        "ForwardFileRequest": {
            "type": "object",
            "required": ["toDivisionId", "toUserId"],
            "properties": {
                "toDivisionId": {"type": "string"},
                "toUserId": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "FileActionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject", "return", "return_to_previous", "return_to_host", "hold", "release"]},
                "remarks": {"type": "string"}
            }
        },
        "DispatchFileRequest": {
            "type": "object",
            "required": ["method"],
            "properties": {
                "method": {"type": "string"},
                "trackingInfo": {"type": "string"},
                "proofDocs": {"type": "array", "items": {"type": "string"}}
            }
        },
        "RequestExtensionRequest": {
            "type": "object",
            "required": ["additionalDays", "reason"],
            "properties": {
                "additionalDays": {"type": "integer", "minimum": 1, "maximum": 90},
                "reason": {"type": "string"}
            }
        },
        "ResolveExtensionRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "remarks": {"type": "string"}
            }
        },
        "CreateHolidayRequest": {
            "type": "object",
            "required": ["date", "name"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "name": {"type": "string"},
                "recurring": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
