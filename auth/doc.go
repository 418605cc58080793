// Package auth authenticates callers of the advisory HTTP API with HS256
// bearer tokens issued by the companion app's login service.
//
// Tokens carry the farmer's id as the subject and may carry a preferred
// response language, which handlers use when a request does not name one.
package auth
