package warpd

import (
	"encoding/json"
	"fmt"
	"time"

	"warpdir/internal/model"
)

type Op string

const (
	OpInsert  Op = "insert"
	OpDelete  Op = "delete"
	OpQuery   Op = "query"
	OpList    Op = "list"
	OpStatus  Op = "status"
	OpStop    Op = "stop"
	OpRestart Op = "restart"
)

func (o Op) valid() bool {
	switch o {
	case OpInsert, OpDelete, OpQuery, OpList, OpStatus, OpStop, OpRestart:
		return true
	}
	return false
}

// replies reports whether the server answers this op with a frame.
// Insert and Delete are fire-and-forget.
func (o Op) replies() bool {
	return o != OpInsert && o != OpDelete
}

type Request struct {
	Type Op     `json:"type"`
	Arg  string `json:"arg,omitempty"`
}

type Response struct {
	Entries []model.Entry `json:"entries,omitempty"`
	Status  *Status       `json:"status,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type Status struct {
	PID       int       `json:"pid"`
	Entries   int       `json:"entries"`
	Dirty     bool      `json:"dirty"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Address   string    `json:"address"`
}

// ProtocolError is an undecodable or unknown request. It only ever ends
// the connection it arrived on.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol error: %v", e.Err) }

func (e *ProtocolError) Unwrap() error { return e.Err }

func DecodeRequest(frame []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return Request{}, &ProtocolError{Err: err}
	}
	if !req.Type.valid() {
		return Request{}, &ProtocolError{Err: fmt.Errorf("unknown request type %q", req.Type)}
	}
	return req, nil
}
