package kservice

import (
	"encoding/json"
)

// The types of the messages exchanged via websocket
const (
	MessageRequest  = "request"
	MessageResponse = "response"
	MessageEvent    = "event"
)

// Message is the envelope of every message exchanged via websocket:
//
//	client -> server: {"type":"request","uid":"1","name":"User","action":"create","args":[{"data":{...}}]}
//	server -> client: {"type":"response","uid":"1","result":{...}}
//	server -> client: {"type":"response","uid":"1","error":{"code":"missing-service","message":"..."}}
//	server -> client: {"type":"event","name":"User","action":"create","result":{...}}
type Message struct {
	Type string `json:"type"`

	// UID matches each response with its request,
	// it is chosen by the client and is unique per connection
	UID string `json:"uid,omitempty"`

	// Name is the name of the service and Action the name of the method
	Name   string `json:"name,omitempty"`
	Action string `json:"action,omitempty"`

	Args   []json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *Error            `json:"error,omitempty"`
}
