package render

import (
	"encoding/json"
	"io"
	"sync"

	"ag-tools/internal/events"
)

// JSONRenderer writes one JSON object per event.
type JSONRenderer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONRenderer creates a line-delimited JSON renderer.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(event)
}

func (r *JSONRenderer) Close() error {
	return nil
}
