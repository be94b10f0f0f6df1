// Package docs registers the Swagger description of the HTTP API with swag
// and serves it with http-swagger.
package docs

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// SwaggerInfo holds the exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "eBillManager API",
	Description:      "Households, slab tariff quotes and electricity bills that carry unpaid dues forward.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Handler serves the Swagger UI and doc.json. It must be mounted at prefix,
// which ends in a slash.
func Handler(prefix string) http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(prefix+"doc.json"),
		httpSwagger.InstanceName(SwaggerInfo.InstanceName()),
		httpSwagger.DocExpansion("list"),
	)
}
