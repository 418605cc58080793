// Package advisor implements the farmer advisory features on top of a
// generative AI collaborator.
//
// Every feature builds a prompt, optionally derives a cache key, and hands a
// producer to a coordinator.Coordinator, which supplies caching, in-flight
// coalescing, the rate-limit cooldown and retry. The collaborator is reached
// through the Generator interface; GeminiClient implements it over the
// Gemini REST API.
package advisor
