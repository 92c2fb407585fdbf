// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// INBOUND EVENTS
// =============================================================================

// EventType names an event sent by the server.
type EventType string

const (
	EventConnect           EventType = "connect"
	EventDisconnect        EventType = "disconnect"
	EventConfig            EventType = "config"
	EventDefaultMessages   EventType = "default-messages"
	EventSetAll            EventType = "message-set-all"
	EventSet               EventType = "message-set"
	EventUpdate            EventType = "message-update"
	EventGeneratingStarted EventType = "generating-started"
	EventGeneratingDone    EventType = "generating-done"
	EventError             EventType = "error"
)

// Event is one inbound event. Data is decoded by Dispatch according to Type:
//
//	config             ServerConfig
//	default-messages   []model.PartialMessage
//	message-set-all    []model.PartialMessage
//	message-set        model.PartialMessage
//	message-update     model.Delta
//	error              string
type Event struct {
	Type EventType       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event, encoding data as its payload.
func NewEvent(t EventType, data any) (Event, error) {
	if data == nil {
		return Event{Type: t}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Data: raw}, nil
}

// ServerConfig is the payload of a config event.
type ServerConfig struct {
	Functions       config.FunctionConfigs `json:"functions,omitempty"`
	DefaultMessages []json.RawMessage      `json:"default_messages,omitempty"`
}

// =============================================================================
// OUTBOUND COMMANDS
// =============================================================================

// Commands sent to the server.
const (
	CommandStartGenerating = "start-generating"
	CommandStopGenerating  = "stop-generating"
)

// StartGenerating is the payload of a start-generating command.
type StartGenerating struct {
	Messages []model.PartialMessage `json:"messages"`
}

// Transport delivers commands to the server.
type Transport interface {
	Send(command string, data any) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(command string, data any) error

// Send calls f.
func (f TransportFunc) Send(command string, data any) error {
	return f(command, data)
}
