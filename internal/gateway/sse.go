package gateway

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	Name string
	ID   string
	Data []byte
}

// errStopSSE signals a clean stop from inside an emit callback.
var errStopSSE = errors.New("stop sse")

// readSSE parses a text/event-stream body and invokes emit for each
// dispatched event. Multi-line data fields are joined with newlines per
// the event-stream framing rules. Returns nil when emit requests a stop
// or the stream ends.
func readSSE(r io.Reader, emit func(sseEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ev sseEvent
	var data bytes.Buffer
	dispatch := func() error {
		if ev.Name == "" && data.Len() == 0 {
			return nil
		}
		ev.Data = bytes.TrimSuffix(append([]byte(nil), data.Bytes()...), []byte("\n"))
		err := emit(ev)
		ev = sseEvent{}
		data.Reset()
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				if errors.Is(err, errStopSSE) {
					return nil
				}
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
		case "id":
			ev.ID = value
		}
	}
	return scanner.Err()
}
