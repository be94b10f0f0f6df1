package docs

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
    "basic": {"type": "basic"}
  },
  "paths": {
    "/households": {
      "get": {
        "tags": ["households"],
        "summary": "List households",
        "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Household"}}}}
      },
      "post": {
        "tags": ["households"],
        "summary": "Register a household",
        "security": [{"basic": []}],
        "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
        "responses": {
          "201": {"description": "Created", "schema": {"$ref": "#/definitions/Household"}},
          "400": {"description": "Invalid name, phone or service number", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/tariff/quote": {
      "get": {
        "tags": ["tariff"],
        "summary": "Price a consumption figure",
        "parameters": [{"in": "query", "name": "units", "type": "string", "required": true}],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/Quote"}},
          "400": {"description": "Invalid units", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/bills": {
      "get": {
        "tags": ["bills"],
        "summary": "List bills, newest first",
        "parameters": [
          {"in": "query", "name": "household_id", "type": "string"},
          {"in": "query", "name": "service_number", "type": "string"},
          {"in": "query", "name": "house_number", "type": "string"},
          {"in": "query", "name": "status", "type": "string", "enum": ["Paid", "Unpaid"]},
          {"in": "query", "name": "limit", "type": "integer"}
        ],
        "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Bill"}}}}
      },
      "post": {
        "tags": ["bills"],
        "summary": "Create a bill carrying unpaid dues forward",
        "security": [{"basic": []}],
        "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBillRequest"}}],
        "responses": {
          "201": {"description": "Created", "schema": {"$ref": "#/definitions/Bill"}},
          "400": {"description": "Invalid units or fine", "schema": {"$ref": "#/definitions/Error"}},
          "404": {"description": "Unknown household", "schema": {"$ref": "#/definitions/Error"}},
          "500": {"description": "Storage failure", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/bills/{id}": {
      "get": {
        "tags": ["bills"],
        "summary": "Get a bill",
        "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
        "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Bill"}}, "404": {"description": "Not found"}}
      },
      "delete": {
        "tags": ["bills"],
        "summary": "Delete a bill",
        "security": [{"basic": []}],
        "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
        "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
      }
    },
    "/bills/{id}/pdf": {
      "get": {
        "tags": ["bills"],
        "summary": "Download a bill as PDF",
        "produces": ["application/pdf"],
        "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
        "responses": {"200": {"description": "PDF document"}, "404": {"description": "Not found"}}
      }
    },
    "/bills/{id}/pay": {
      "post": {
        "tags": ["bills"],
        "summary": "Mark an unpaid bill as paid",
        "security": [{"basic": []}],
        "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
        "responses": {"200": {"description": "updated is false when the bill is unknown or already paid", "schema": {"$ref": "#/definitions/PayResult"}}}
      }
    }
  },
  "definitions": {
    "Error": {"type": "object", "properties": {"error": {"type": "string"}, "field": {"type": "string"}}},
    "RegisterRequest": {
      "type": "object",
      "required": ["household_name", "phone"],
      "properties": {
        "household_name": {"type": "string"},
        "phone": {"type": "string"},
        "service_number": {"type": "string"},
        "email": {"type": "string"},
        "address": {"type": "string"},
        "house_number": {"type": "string"},
        "connection_type": {"type": "string"}
      }
    },
    "Household": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "household_name": {"type": "string"},
        "service_number": {"type": "string"},
        "phone": {"type": "string"},
        "email": {"type": "string"},
        "address": {"type": "string"},
        "connection_type": {"type": "string"},
        "house_number": {"type": "string"}
      }
    },
    "SlabCharge": {
      "type": "object",
      "properties": {"slab": {"type": "string"}, "units": {"type": "string"}, "rate": {"type": "string"}, "amount": {"type": "string"}}
    },
    "Quote": {
      "type": "object",
      "properties": {
        "amount": {"type": "string"},
        "minimum_charge_applied": {"type": "boolean"},
        "breakdown": {"type": "array", "items": {"$ref": "#/definitions/SlabCharge"}}
      }
    },
    "CreateBillRequest": {
      "type": "object",
      "required": ["units"],
      "properties": {
        "household_id": {"type": "string"},
        "service_number": {"type": "string"},
        "units": {"type": "number"},
        "fine": {"type": "number"},
        "suggest_fine": {"type": "boolean"},
        "notes": {"type": "string"}
      }
    },
    "Bill": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "household_id": {"type": "string"},
        "household_name": {"type": "string"},
        "service_number": {"type": "string"},
        "house_number": {"type": "string"},
        "address": {"type": "string"},
        "phone": {"type": "string"},
        "connection_type": {"type": "string"},
        "units": {"type": "string"},
        "current_charge": {"type": "string"},
        "fine_amount": {"type": "string"},
        "previous_dues": {"type": "string"},
        "total_amount": {"type": "string"},
        "slab_breakdown": {"type": "array", "items": {"$ref": "#/definitions/SlabCharge"}},
        "minimum_charge_applied": {"type": "boolean"},
        "date": {"type": "string", "format": "date-time"},
        "due_date": {"type": "string", "format": "date-time"},
        "status": {"type": "string", "enum": ["Paid", "Unpaid"]},
        "paid_date": {"type": "string", "format": "date-time"},
        "notes": {"type": "string"}
      }
    },
    "PayResult": {"type": "object", "properties": {"id": {"type": "string"}, "updated": {"type": "boolean"}}}
  }
}`
