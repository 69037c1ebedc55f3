// Package nativehost carries cookie calls to a browser extension over the
// native messaging channel: a 4-byte little-endian length prefix followed by
// a JSON payload, on the process's stdin and stdout.
//
// The extension side answers each Request with a Response carrying the same
// ID, so several calls can be in flight at once.
package nativehost

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/warpdl/cookiebridge/common"
)

// Payload limits for frames written to and read from the browser.
const (
	MaxOutgoingMessageSize = common.MaxOutgoingMessageSize
	MaxIncomingMessageSize = common.MaxIncomingMessageSize
)

// Request is sent to the extension. Message holds the call details.
type Request struct {
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Response is read back from the extension. Result is kept raw so the
// cookie gateway can apply its own decoding rules.
type Response struct {
	ID     int             `json:"id"`
	Ok     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ReadMessage reads a native messaging format message from the reader.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > uint32(MaxIncomingMessageSize) {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, length, MaxIncomingMessageSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes a message in native messaging format to the writer.
// Prefix and payload go out in a single Write.
func WriteMessage(w io.Writer, msg []byte) error {
	return writeFrame(w, msg, MaxOutgoingMessageSize)
}

func writeFrame(w io.Writer, msg []byte, max int) error {
	if len(msg) > max {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(msg), max)
	}
	buf := make([]byte, 4+len(msg))
	binary.LittleEndian.PutUint32(buf, uint32(len(msg)))
	copy(buf[4:], msg)
	_, err := w.Write(buf)
	return err
}

// ParseResponse parses a JSON byte slice into a Response.
func ParseResponse(b []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MakeRequest creates a JSON-encoded request.
func MakeRequest(id int, method string, details json.RawMessage) ([]byte, error) {
	return json.Marshal(Request{
		ID:      id,
		Method:  method,
		Message: details,
	})
}
