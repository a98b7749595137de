package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one message received on the realtime socket
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"ts"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Socket is an authenticated realtime connection to the server
type Socket struct {
	conn *websocket.Conn
}

// socketURL derives the websocket endpoint from the HTTP server URL
func socketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// DialSocket opens the realtime socket with the given session token
func DialSocket(ctx context.Context, serverURL, token string) (*Socket, error) {
	if token == "" {
		return nil, errors.New("not logged in: run 'pongctl player guest' or 'pongctl player login' first")
	}

	endpoint, err := socketURL(serverURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.New("session rejected: log in again")
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return &Socket{conn: conn}, nil
}

// Send writes one command to the server
func (s *Socket) Send(msgType string, data any) error {
	msg := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: msgType, Data: data}
	return s.conn.WriteJSON(msg)
}

// Next blocks for the next event
func (s *Socket) Next() (Event, error) {
	var evt Event
	if err := s.conn.ReadJSON(&evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// Close says goodbye and closes the connection
func (s *Socket) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}

// streamOptions controls which events are printed and when streaming stops
type streamOptions struct {
	jsonOutput bool
	snapshots  bool
	// until reports whether the stream is done after this event
	until func(Event) bool
}

// stream prints events until opts.until is satisfied, the server closes the
// socket, or ctx is cancelled
func stream(ctx context.Context, sock *Socket, opts streamOptions) error {
	go func() {
		<-ctx.Done()
		_ = sock.Close()
	}()

	for {
		evt, err := sock.Next()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		if evt.Type != "match_snapshot" || opts.snapshots {
			printEvent(evt, opts.jsonOutput)
		}
		if opts.until != nil && opts.until(evt) {
			return nil
		}
	}
}

// commandFailed reports whether evt is the error reply to a command
func commandFailed(evt Event, command string) (string, bool) {
	if evt.Type != "error" {
		return "", false
	}
	var payload struct {
		For     string `json:"for"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(evt.Data, &payload); err != nil || payload.For != command {
		return "", false
	}
	return fmt.Sprintf("%s (%s)", payload.Message, payload.Code), true
}

func printEvent(evt Event, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(evt)
		fmt.Println(string(data))
		return
	}

	timestamp := evt.Timestamp.Local().Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	display := string(evt.Data)
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, evt.Type, display)
}
