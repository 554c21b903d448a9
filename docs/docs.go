// Package docs holds the swagger document of the ride API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.swagger.io/support",
            "email": "support@swagger.io"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "summary": "Health Check",
                "tags": [
                    "Health"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/fares/estimate": {
            "post": {
                "summary": "Fare estimate for one vehicle type",
                "tags": [
                    "Fares"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Trip",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.FareEstimateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/fares/estimates": {
            "post": {
                "summary": "Fare estimates for every vehicle type",
                "tags": [
                    "Fares"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Trip",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.FareEstimateRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/rides": {
            "post": {
                "summary": "Request a ride",
                "tags": [
                    "Rides"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Ride request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.CreateRideRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/rides/available": {
            "get": {
                "summary": "Requested rides near a driver",
                "tags": [
                    "Dispatch"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "number",
                        "name": "latitude",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "number",
                        "name": "longitude",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "vehicle_type",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "number",
                        "name": "radius_km",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rides/{ride_id}": {
            "get": {
                "summary": "Ride details",
                "tags": [
                    "Rides"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rides/{ride_id}/accept": {
            "post": {
                "summary": "Accept a requested ride",
                "tags": [
                    "Dispatch"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rides/{ride_id}/status": {
            "post": {
                "summary": "Advance ride status",
                "tags": [
                    "Rides"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Target status",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.AdvanceStatusRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/rides/{ride_id}/cancel": {
            "post": {
                "summary": "Cancel a ride",
                "tags": [
                    "Rides"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Reason",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.CancelRideRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/rides/{ride_id}/location": {
            "post": {
                "summary": "Report driver location",
                "tags": [
                    "Tracking"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Sample",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.LocationRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted"
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            },
            "get": {
                "summary": "Latest driver location",
                "tags": [
                    "Tracking"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rides/{ride_id}/location/history": {
            "get": {
                "summary": "Driver location history",
                "tags": [
                    "Tracking"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/rides/{ride_id}/payment": {
            "post": {
                "summary": "Payment callback",
                "tags": [
                    "Payments"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Payment outcome",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentRequest"
                        }
                    },
                    {
                        "type": "string",
                        "description": "Ride ID",
                        "name": "ride_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        }
    },
    "definitions": {
        "dto.CreateRideRequest": {
            "type": "object",
            "properties": {
                "pickup_address": {
                    "type": "string"
                },
                "pickup_latitude": {
                    "type": "number"
                },
                "pickup_longitude": {
                    "type": "number"
                },
                "destination_address": {
                    "type": "string"
                },
                "destination_latitude": {
                    "type": "number"
                },
                "destination_longitude": {
                    "type": "number"
                },
                "vehicle_type": {
                    "type": "string"
                },
                "payment_method": {
                    "type": "string"
                },
                "bad_weather": {
                    "type": "boolean"
                },
                "high_demand": {
                    "type": "boolean"
                }
            }
        },
        "dto.FareEstimateRequest": {
            "type": "object",
            "properties": {
                "pickup_latitude": {
                    "type": "number"
                },
                "pickup_longitude": {
                    "type": "number"
                },
                "destination_latitude": {
                    "type": "number"
                },
                "destination_longitude": {
                    "type": "number"
                },
                "vehicle_type": {
                    "type": "string"
                },
                "bad_weather": {
                    "type": "boolean"
                },
                "high_demand": {
                    "type": "boolean"
                }
            }
        },
        "dto.AdvanceStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "otp": {
                    "type": "string"
                }
            }
        },
        "dto.CancelRideRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                }
            }
        },
        "dto.LocationRequest": {
            "type": "object",
            "properties": {
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                },
                "heading": {
                    "type": "number"
                },
                "speed": {
                    "type": "number"
                },
                "timestamp": {
                    "type": "string"
                }
            }
        },
        "dto.PaymentRequest": {
            "type": "object",
            "properties": {
                "payment_method": {
                    "type": "string"
                },
                "payment_status": {
                    "type": "string"
                },
                "transaction_id": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ride Dispatch API",
	Description:      "Ride dispatch core: fare estimates, ride requests, driver dispatch, the ride lifecycle, live location tracking and payment settlement.",
	InfoInstanceName: "ride",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
