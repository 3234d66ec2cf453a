// Package handler provides HTTP request handlers for the placeholder todo API.
package handler

import "github.com/vyrodovalexey/todo-crud/internal/model"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// Publisher receives change events after successful mutations.
type Publisher interface {
	Publish(event model.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.ChangeEvent) {}
