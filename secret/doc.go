// Package secret resolves credentials referenced from configuration, such as
// the Gemini API key and the token signing secret.
//
// A configuration value may be a plain string, may contain ${VAR}
// placeholders (see ExpandEnvStrict), or may reference a provider:
//
//	secretref:env:GEMINI_API_KEY
//	secretref:file:/run/secrets/gemini_api_key
//	postgres://advisor:secretref:env:PGPASSWORD@db:5432/advisor
//
// Resolved values are never logged.
package secret
