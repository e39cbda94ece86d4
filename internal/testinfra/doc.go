//go:build integration

// Package testinfra starts throwaway Postgres and Redis containers for
// integration tests. Run with:
//
//	go test -tags integration ./internal/...
package testinfra
