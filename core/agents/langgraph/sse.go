package langgraph

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseReader splits a text/event-stream body into (event, data) pairs.
type sseReader struct {
	reader *bufio.Reader
	body   io.Closer
}

func newSSEReader(body io.ReadCloser) *sseReader {
	return &sseReader{
		reader: bufio.NewReader(body),
		body:   body,
	}
}

// Next returns io.EOF once the body is exhausted.
func (s *sseReader) Next() (string, []byte, error) {
	var eventName string
	var data bytes.Buffer

	dispatch := func() (string, []byte, error) {
		return eventName, bytes.Clone(data.Bytes()), nil
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			// An event without data (e.g. a bare "end") still dispatches.
			if data.Len() > 0 || eventName != "" {
				return dispatch()
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}

		if err == io.EOF {
			if data.Len() == 0 && eventName == "" {
				return "", nil, io.EOF
			}
			return dispatch()
		}
	}
}

func (s *sseReader) Close() error {
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}
