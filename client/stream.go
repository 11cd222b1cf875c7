package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

// maxFrameBytes bounds a single event frame; hotel payloads with image
// lists stay well under this.
const maxFrameBytes = 1 << 20

// readEventStream parses text/event-stream frames from body and hands each
// decoded event to handle, in arrival order. It returns nil once handle
// reports the terminal event, and an error for malformed frames or a
// stream that ends without a terminal event.
func readEventStream(body io.Reader, handle func(domain.StreamEvent) (done bool, err error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Unknown field (event:, id:, retry:); the protocol here only
			// uses data frames.
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}

		var event domain.StreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("malformed event frame: %w", err)
		}
		if event.Type == "" {
			return fmt.Errorf("event frame missing type discriminator")
		}

		done, err := handle(event)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return fmt.Errorf("stream closed before terminal event")
}
