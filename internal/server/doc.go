// Package server implements the CollabPad relay: a WebSocket service that
// keeps named rooms of connected editors in sync by rebroadcasting
// whole-document updates to every other occupant.
//
// The implementation is organized into specialized files for configuration,
// the room registry, the connection hub, clients, message routing, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
