package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/model"
)

// StreamJSON emits the objects of a JSON array, or of a JSON-lines stream
// when the input does not start with '['. Null entries are skipped.
func StreamJSON(ctx context.Context, r io.Reader) (<-chan model.RawProperty, <-chan error) {
	out := make(chan model.RawProperty, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		br := bufio.NewReader(r)
		first, err := peekNonSpace(br)
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "json: peek input")
			return
		}

		dec := json.NewDecoder(br)
		array := first == '['
		label := "jsonl"
		if array {
			label = "json"
			if _, err := dec.Token(); err != nil {
				errCh <- eris.Wrap(err, "json: read opening bracket")
				return
			}
		}

		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				errCh <- eris.Wrapf(err, "%s: context cancelled", label)
				return
			}
			if array && !dec.More() {
				if _, err := dec.Token(); err != nil {
					errCh <- eris.Wrap(err, "json: read closing bracket")
				}
				return
			}

			var raw model.RawProperty
			err := dec.Decode(&raw)
			if err == io.EOF && !array {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "%s: decode record %d", label, n)
				return
			}
			if raw == nil {
				continue
			}

			select {
			case out <- raw:
			case <-ctx.Done():
				errCh <- eris.Wrapf(ctx.Err(), "%s: context cancelled", label)
				return
			}
		}
	}()

	return out, errCh
}

// ReadJSONProperties collects every payload from a JSON array or JSON lines.
func ReadJSONProperties(ctx context.Context, r io.Reader) ([]model.RawProperty, error) {
	return collect(StreamJSON(ctx, r))
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b[0])) {
			return b[0], nil
		}
		_, _ = br.ReadByte()
	}
}
