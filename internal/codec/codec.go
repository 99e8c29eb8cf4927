// Package codec maps flow state to and from chunks.
//
// One flow persists as a small set of independently keyed chunks: the message
// bodies as raw binary, the connection metadata as separate JSON documents,
// and everything else (method, URL, headers, status, timing, flags) as one
// http_flow JSON document. The codec is a pure transform — all I/O belongs to
// internal/store.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"flowvault/internal/flow"
)

// Kind identifies what part of a flow's state a chunk holds.
type Kind string

const (
	KindHTTPFlow        Kind = "http_flow"
	KindClientConn      Kind = "client_conn"
	KindServerConn      Kind = "server_conn"
	KindRequestContent  Kind = "request_content"
	KindResponseContent Kind = "response_content"
)

// validKinds is the set of chunk kinds this version understands.
var validKinds = map[Kind]bool{
	KindHTTPFlow:        true,
	KindClientConn:      true,
	KindServerConn:      true,
	KindRequestContent:  true,
	KindResponseContent: true,
}

// ValidateKind returns an error if the kind is not recognized.
func ValidateKind(k Kind) error {
	if !validKinds[k] {
		return fmt.Errorf("%w: %q", ErrUnknownChunkKind, k)
	}
	return nil
}

// Chunk is one independently stored unit of a flow's persisted state.
// Metadata kinds carry UTF-8 JSON in Data; content kinds carry raw bytes.
type Chunk struct {
	FlowID string
	Kind   Kind
	Data   []byte
}

// ErrUnsupportedFlowKind is returned by Encode for flows the chunk scheme has
// no serialization for. Callers log and drop the event; it is not fatal.
var ErrUnsupportedFlowKind = errors.New("unsupported flow kind")

// Decode failure sentinels.
var (
	ErrMissingFlowChunk = errors.New("missing http_flow chunk")
	ErrUnknownChunkKind = errors.New("unknown chunk kind")
	ErrMixedFlowIDs     = errors.New("chunk set spans multiple flow ids")
	ErrEmptyChunkSet    = errors.New("empty chunk set")
)

// DecodeError reports an incomplete or corrupt chunk set. The affected flow
// should be skipped; decoding other flows is unaffected.
type DecodeError struct {
	FlowID string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.FlowID == "" {
		return fmt.Sprintf("decode flow: %v", e.Err)
	}
	return fmt.Sprintf("decode flow %s: %v", e.FlowID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// httpFlowState is the JSON shape of the http_flow chunk. Bodies are removed
// into content chunks before this is marshalled; header and certificate byte
// values go through the flow.Bytes text transform.
type httpFlowState struct {
	ID       string         `json:"id"`
	Kind     flow.Kind      `json:"type"`
	Marked   string         `json:"marked"`
	Comment  string         `json:"comment"`
	Request  *flow.Request  `json:"request"`
	Response *flow.Response `json:"response"`
}

// Encode serializes one flow into its chunk set. Chunk order is content
// first, then connection metadata, then the http_flow document — but Decode
// accepts any order. Non-HTTP flows return ErrUnsupportedFlowKind.
func Encode(f *flow.Flow) ([]Chunk, error) {
	if f.Kind != flow.KindHTTP {
		return nil, fmt.Errorf("%w: %q (flow %s)", ErrUnsupportedFlowKind, f.Kind, f.ID)
	}
	if f.Request == nil {
		return nil, fmt.Errorf("encode flow %s: http flow has no request", f.ID)
	}

	chunks := []Chunk{
		{FlowID: f.ID, Kind: KindRequestContent, Data: f.Request.Content},
	}
	if f.Response != nil {
		chunks = append(chunks, Chunk{FlowID: f.ID, Kind: KindResponseContent, Data: f.Response.Content})
	}

	clientJSON, err := json.Marshal(f.Client)
	if err != nil {
		return nil, fmt.Errorf("encode flow %s: client_conn: %w", f.ID, err)
	}
	serverJSON, err := json.Marshal(f.Server)
	if err != nil {
		return nil, fmt.Errorf("encode flow %s: server_conn: %w", f.ID, err)
	}
	stateJSON, err := json.Marshal(httpFlowState{
		ID:       f.ID,
		Kind:     f.Kind,
		Marked:   f.Marked,
		Comment:  f.Comment,
		Request:  f.Request,
		Response: f.Response,
	})
	if err != nil {
		return nil, fmt.Errorf("encode flow %s: http_flow: %w", f.ID, err)
	}

	chunks = append(chunks,
		Chunk{FlowID: f.ID, Kind: KindClientConn, Data: clientJSON},
		Chunk{FlowID: f.ID, Kind: KindServerConn, Data: serverJSON},
		Chunk{FlowID: f.ID, Kind: KindHTTPFlow, Data: stateJSON},
	)
	return chunks, nil
}

// Decode reconstructs a flow from its chunk set. The set is indexed by kind
// before anything is unmarshalled, so the application order of metadata
// chunks does not matter and byte transforms run only once the owning chunk
// is present. Decode is idempotent for a fixed chunk set.
//
// A missing http_flow chunk, an unknown kind, or a set spanning multiple flow
// ids yields a *DecodeError.
func Decode(chunks []Chunk) (*flow.Flow, error) {
	if len(chunks) == 0 {
		return nil, &DecodeError{Err: ErrEmptyChunkSet}
	}

	fid := chunks[0].FlowID
	byKind := make(map[Kind][]byte, len(chunks))
	for _, c := range chunks {
		if c.FlowID != fid {
			return nil, &DecodeError{FlowID: fid, Err: fmt.Errorf("%w: %s and %s", ErrMixedFlowIDs, fid, c.FlowID)}
		}
		if err := ValidateKind(c.Kind); err != nil {
			return nil, &DecodeError{FlowID: fid, Err: err}
		}
		byKind[c.Kind] = c.Data // upsert semantics: last chunk per kind wins
	}

	stateJSON, ok := byKind[KindHTTPFlow]
	if !ok {
		return nil, &DecodeError{FlowID: fid, Err: ErrMissingFlowChunk}
	}
	var state httpFlowState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, &DecodeError{FlowID: fid, Err: fmt.Errorf("http_flow chunk: %w", err)}
	}

	f := &flow.Flow{
		ID:       state.ID,
		Kind:     state.Kind,
		Marked:   state.Marked,
		Comment:  state.Comment,
		Request:  state.Request,
		Response: state.Response,
	}
	if f.Kind == "" {
		// Payloads written before the type field existed are all HTTP.
		f.Kind = flow.KindHTTP
	}
	if f.ID == "" {
		f.ID = fid
	}

	if data, ok := byKind[KindClientConn]; ok && !jsonNull(data) {
		var cc flow.ClientConn
		if err := json.Unmarshal(data, &cc); err != nil {
			return nil, &DecodeError{FlowID: fid, Err: fmt.Errorf("client_conn chunk: %w", err)}
		}
		f.Client = &cc
	}
	if data, ok := byKind[KindServerConn]; ok && !jsonNull(data) {
		var sc flow.ServerConn
		if err := json.Unmarshal(data, &sc); err != nil {
			return nil, &DecodeError{FlowID: fid, Err: fmt.Errorf("server_conn chunk: %w", err)}
		}
		f.Server = &sc
	}

	if data, ok := byKind[KindRequestContent]; ok {
		if f.Request == nil {
			return nil, &DecodeError{FlowID: fid, Err: errors.New("request_content chunk without request metadata")}
		}
		f.Request.Content = data
	}
	if data, ok := byKind[KindResponseContent]; ok {
		if f.Response == nil {
			return nil, &DecodeError{FlowID: fid, Err: errors.New("response_content chunk without response metadata")}
		}
		f.Response.Content = data
	}

	return f, nil
}

// jsonNull reports whether a metadata chunk holds no document. A flow
// snapshot without connection metadata serializes those chunks as JSON null.
func jsonNull(data []byte) bool {
	return len(data) == 0 || string(data) == "null"
}
