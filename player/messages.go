// Package player drives a sandboxed, cross-origin embedded playback
// surface over an asynchronous message protocol. The surface exposes no
// synchronous control or clock API, so the driver models transport state
// locally and derives elapsed time from the wall clock.
package player

import (
	"encoding/json"
	"fmt"
)

// Transport is the embedded playback surface boundary. Commands cross it
// as serialized messages; status flows back through Driver.HandleMessage.
type Transport interface {
	// Post delivers one serialized command message to the surface.
	Post(message []byte) error

	// Origin is the only origin inbound status messages are trusted from.
	Origin() string
}

// Command names understood by the embedded surface.
const (
	cmdPlay  = "playVideo"
	cmdPause = "pauseVideo"
	cmdSeek  = "seekTo"
)

// commandMessage is the outbound wire shape.
type commandMessage struct {
	Event string `json:"event"`
	Func  string `json:"func"`
	Args  []any  `json:"args"`
}

func encodeCommand(name string, args ...any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	message, err := json.Marshal(commandMessage{Event: "command", Func: name, Args: args})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", name, err)
	}
	return message, nil
}

// statusMessage is the inbound wire shape.
type statusMessage struct {
	Event string `json:"event"`
	Info  int    `json:"info"`
}

// Inbound status events.
const (
	eventReady       = "onReady"
	eventStateChange = "onStateChange"
	eventError       = "onError"
)

// Surface playback-state codes carried by onStateChange.
const (
	surfaceEnded     = 0
	surfacePlaying   = 1
	surfacePaused    = 2
	surfaceBuffering = 3
)

// Surface error codes carried by onError.
const (
	errCodeInvalidParam  = 2
	errCodePlayback      = 5
	errCodeNotFound      = 100
	errCodeNotEmbeddable = 101
	errCodeNotAllowed    = 150
)

// errorCodeMessage maps surface error codes to human-readable advisories.
func errorCodeMessage(code int) string {
	switch code {
	case errCodeInvalidParam:
		return "invalid video reference"
	case errCodePlayback:
		return "playback error in the embedded surface"
	case errCodeNotFound:
		return "video not found"
	case errCodeNotEmbeddable, errCodeNotAllowed:
		return "video owner does not allow embedded playback"
	default:
		return fmt.Sprintf("unknown playback error (code %d)", code)
	}
}
