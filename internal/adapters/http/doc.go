// Package http implements the ingestion transport: a typed request executor
// and a category-aware batch transport gated by a failure backoff policy.
package http
