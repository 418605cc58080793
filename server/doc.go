// Package server exposes the advisory features as a JSON HTTP API.
//
// Routes:
//
//	POST /v1/location          resolve coordinates to a place
//	GET  /v1/location/current  last resolved place
//	POST /v1/weather           live agri-weather report
//	POST /v1/mandi             wholesale market prices
//	POST /v1/drones            drone spraying providers
//	POST /v1/advice            free-form farming question
//	POST /v1/diagnose          crop photo diagnosis
//	POST /v1/expenses/parse    expense from transcribed speech
//	POST /v1/schemes           government schemes
//	POST /v1/speech            text to speech
//	GET  /v1/status            upstream cooldown state
//	GET  /healthz /readyz /health
//	GET  /metrics
//
// Errors use the body {"error": {"code": "...", "message": "..."}}. While
// the upstream cooldown is active, /v1 calls that need the model answer 429
// with a Retry-After header.
package server
