package sse

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultEventName is the name of events that carry no "event:" field.
const DefaultEventName = "message"

// Event is one dispatched text/event-stream event.
type Event struct {
	Name  string
	Data  []byte
	ID    string
	Retry time.Duration
}

// Reader splits a text/event-stream body into events.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader. maxLine bounds a single line of the stream;
// values <= 0 use 1 MiB.
func NewReader(r io.Reader, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = 1024 * 1024
	}

	initial := 64 * 1024
	if maxLine < initial {
		initial = maxLine
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initial), maxLine)
	scanner.Split(scanLines)

	return &Reader{scanner: scanner}
}

// Next returns the next event. It returns io.EOF once the stream ends cleanly;
// a partially received event at EOF is discarded.
func (r *Reader) Next() (*Event, error) {
	var (
		name    string
		id      string
		retry   time.Duration
		data    bytes.Buffer
		hasData bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if !hasData {
				name, id, retry = "", "", 0
				continue
			}
			if name == "" {
				name = DefaultEventName
			}
			return &Event{Name: name, Data: data.Bytes(), ID: id, Retry: retry}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				id = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// scanLines splits on LF, CRLF or a lone CR, as event streams allow all three.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: swallow a following LF, which may not have arrived yet.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
