// Package http contains the HTTP handlers of the analysis API.
//
// Handlers decode and validate JSON bodies with middleware.Validator, call
// into the service layer and render results with go-chi/render. Every error
// goes through errors.ErrorHandler, which writes RFC 7807 problem details:
// validation failures and too-short histories are 422, malformed bodies 400.
//
// Routes:
//
//	POST /api/v1/collation    history + risk-free factor + policy knots
//	POST /api/v1/saving-rate  saving rates for one population
//	POST /api/v1/growth       log asset growth between two asset vectors
//	GET  /healthz             liveness and uptime
//
// Non-finite results are encoded as JSON null.
package http
