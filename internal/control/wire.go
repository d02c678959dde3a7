package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// maxMessageSize bounds a single control message.
const maxMessageSize = 1 << 20

var errMessageTooLarge = errors.New("control message too large")

// Message represents a control protocol message.
type Message struct {
	Command  string `json:"command,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WireFormat handles message serialization for the control protocol.
type WireFormat interface {
	// Encode writes a message to the writer.
	Encode(w io.Writer, msg *Message) error
	// Decode reads a message from the reader.
	Decode(r io.Reader) (*Message, error)
}

// LineFormat implements a simple newline-delimited text protocol.
// Commands: "ping\n", "routes\n", "config.get control\n"
// Responses: "ok\n", "pong\n", "running\n", "error: message\n"
type LineFormat struct{}

// Encode writes a message as a newline-terminated string.
func (LineFormat) Encode(w io.Writer, msg *Message) error {
	var line string
	switch {
	case msg.Error != "":
		line = "error: " + msg.Error
	case msg.Response != "":
		line = msg.Response
	case msg.Command != "":
		line = msg.Command
	default:
		return errors.New("empty message")
	}
	if strings.ContainsRune(line, '\n') {
		return errors.New("line message contains a newline")
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// Decode reads a newline-terminated message.
func (LineFormat) Decode(r io.Reader) (*Message, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(line)

	if rest, ok := strings.CutPrefix(text, "error: "); ok {
		return &Message{Error: rest}, nil
	}

	// Context determines if this is command or response
	return &Message{Response: text, Command: text}, nil
}

// JSONFormat implements a JSON-based wire format.
// Each message is a single JSON object followed by a newline.
type JSONFormat struct{}

// Encode writes a message as JSON.
func (JSONFormat) Encode(w io.Writer, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Decode reads a JSON message.
func (JSONFormat) Decode(r io.Reader) (*Message, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// readLine reads up to and including the first newline. A final line
// without a newline is accepted when the peer half-closes after it.
func readLine(r io.Reader) (string, error) {
	reader := bufio.NewReader(io.LimitReader(r, maxMessageSize+1))
	line, err := reader.ReadString('\n')
	if len(line) > maxMessageSize {
		return "", errMessageTooLarge
	}
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// DefaultWireFormat is the wire format used by default (line-based).
var DefaultWireFormat WireFormat = LineFormat{}
