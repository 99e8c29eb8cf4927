package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"flowvault/internal/flow"
)

// sampleFlow builds a complete HTTP flow with a response, binary header
// value, certificates and both bodies.
func sampleFlow() *flow.Flow {
	return &flow.Flow{
		ID:      "f-001",
		Kind:    flow.KindHTTP,
		Marked:  ":red_circle:",
		Comment: "interesting",
		Request: &flow.Request{
			Method:      "POST",
			Scheme:      "https",
			Host:        "example.com",
			Port:        443,
			Path:        "/api/v1/items",
			HTTPVersion: "HTTP/1.1",
			Headers: flow.Headers{
				{Name: flow.Bytes("Host"), Value: flow.Bytes("example.com")},
				{Name: flow.Bytes("X-Binary"), Value: flow.Bytes{0xff, 0x00, 0xfe}},
			},
			TimestampStart: 1700000000.25,
			TimestampEnd:   1700000000.5,
			Content:        []byte(`{"name":"widget"}`),
		},
		Response: &flow.Response{
			StatusCode:  201,
			Reason:      "Created",
			HTTPVersion: "HTTP/1.1",
			Headers: flow.Headers{
				{Name: flow.Bytes("Content-Type"), Value: flow.Bytes("application/json")},
			},
			TimestampStart: 1700000000.75,
			TimestampEnd:   1700000001.0,
			Content:        []byte{0x1f, 0x8b, 0x00, 0xff},
		},
		Client: &flow.ClientConn{
			ID:             "cc-1",
			Peername:       &flow.Addr{Host: "10.0.0.5", Port: 51234},
			Sockname:       &flow.Addr{Host: "10.0.0.1", Port: 8080},
			TLSEstablished: true,
			SNI:            "example.com",
		},
		Server: &flow.ServerConn{
			ID:              "sc-1",
			Address:         &flow.Addr{Host: "93.184.216.34", Port: 443},
			TLSEstablished:  true,
			CertificateList: []flow.Bytes{{0x30, 0x82, 0x01, 0xff}},
		},
	}
}

func TestEncode_ChunkSet(t *testing.T) {
	f := sampleFlow()
	chunks, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	byKind := map[Kind][]byte{}
	for _, c := range chunks {
		if c.FlowID != f.ID {
			t.Errorf("chunk %s has flow id %q, want %q", c.Kind, c.FlowID, f.ID)
		}
		byKind[c.Kind] = c.Data
	}
	for _, k := range []Kind{KindHTTPFlow, KindClientConn, KindServerConn, KindRequestContent, KindResponseContent} {
		if _, ok := byKind[k]; !ok {
			t.Errorf("missing chunk kind %s", k)
		}
	}

	if !bytes.Equal(byKind[KindRequestContent], f.Request.Content) {
		t.Error("request_content does not hold the raw request body")
	}
	if !bytes.Equal(byKind[KindResponseContent], f.Response.Content) {
		t.Error("response_content does not hold the raw response body")
	}

	// Bodies never ride inside the metadata document.
	var state map[string]json.RawMessage
	if err := json.Unmarshal(byKind[KindHTTPFlow], &state); err != nil {
		t.Fatalf("http_flow is not JSON: %v", err)
	}
	if bytes.Contains(byKind[KindHTTPFlow], []byte("widget")) {
		t.Error("request body leaked into http_flow chunk")
	}
}

func TestEncode_NoResponseOmitsResponseContent(t *testing.T) {
	f := sampleFlow()
	f.Response = nil

	chunks, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, c := range chunks {
		if c.Kind == KindResponseContent {
			t.Error("response_content chunk written for a flow without a response")
		}
	}
}

func TestEncode_RejectsNonHTTP(t *testing.T) {
	f := &flow.Flow{ID: "t-1", Kind: flow.KindTCP}
	_, err := Encode(f)
	if !errors.Is(err, ErrUnsupportedFlowKind) {
		t.Errorf("err = %v, want ErrUnsupportedFlowKind", err)
	}
}

func TestRoundTrip(t *testing.T) {
	f := sampleFlow()
	chunks, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(chunks)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, f) {
		t.Errorf("round trip mismatch:\ngot  %#v\nwant %#v", got, f)
	}
}

func TestDecode_OrderIndependent(t *testing.T) {
	f := sampleFlow()
	chunks, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Reverse the chunk set: content arrives before its metadata.
	reversed := make([]Chunk, len(chunks))
	for i, c := range chunks {
		reversed[len(chunks)-1-i] = c
	}

	got, err := Decode(reversed)
	if err != nil {
		t.Fatalf("Decode reversed: %v", err)
	}
	if !reflect.DeepEqual(got, f) {
		t.Error("reversed chunk order decoded differently")
	}
}

func TestDecode_Idempotent(t *testing.T) {
	chunks, err := Encode(sampleFlow())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	first, err := Decode(chunks)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	second, err := Decode(chunks)
	if err != nil {
		t.Fatalf("Decode again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("decoding the same chunk set twice gave different flows")
	}
}

func TestDecode_Errors(t *testing.T) {
	valid, err := Encode(sampleFlow())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name     string
		chunks   []Chunk
		sentinel error
	}{
		{"empty set", nil, ErrEmptyChunkSet},
		{
			"missing http_flow",
			[]Chunk{{FlowID: "f-001", Kind: KindRequestContent, Data: []byte("body")}},
			ErrMissingFlowChunk,
		},
		{
			"unknown kind",
			append([]Chunk{{FlowID: "f-001", Kind: Kind("websocket_frames"), Data: nil}}, valid...),
			ErrUnknownChunkKind,
		},
		{
			"mixed flow ids",
			append([]Chunk{{FlowID: "f-999", Kind: KindRequestContent, Data: nil}}, valid...),
			ErrMixedFlowIDs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.chunks)
			if err == nil {
				t.Fatal("Decode succeeded, want error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want %v", err, tt.sentinel)
			}
			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Error("err is not a *DecodeError")
			}
		})
	}
}

func TestDecode_MixedIDsDetectedAnywhere(t *testing.T) {
	valid, err := Encode(sampleFlow())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	tainted := append(append([]Chunk{}, valid...), Chunk{FlowID: "f-002", Kind: KindRequestContent})
	if _, err := Decode(tainted); !errors.Is(err, ErrMixedFlowIDs) {
		t.Errorf("err = %v, want ErrMixedFlowIDs", err)
	}
}

func TestDecode_ContentWithoutMetadata(t *testing.T) {
	state, _ := json.Marshal(httpFlowState{
		ID:      "f-003",
		Kind:    flow.KindHTTP,
		Request: &flow.Request{Method: "GET"},
	})
	chunks := []Chunk{
		{FlowID: "f-003", Kind: KindHTTPFlow, Data: state},
		{FlowID: "f-003", Kind: KindResponseContent, Data: []byte("orphan")},
	}
	_, err := Decode(chunks)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
}

func TestDecode_BackCompatDefaults(t *testing.T) {
	// A payload written before the type field existed: no type, no id,
	// connection chunks serialized as JSON null.
	state := []byte(`{"marked":"","comment":"","request":{"method":"GET","scheme":"http","host":"a","port":80,"path":"/","http_version":"HTTP/1.1","headers":[],"timestamp_start":0,"timestamp_end":0},"response":null}`)
	chunks := []Chunk{
		{FlowID: "legacy-1", Kind: KindHTTPFlow, Data: state},
		{FlowID: "legacy-1", Kind: KindClientConn, Data: []byte("null")},
		{FlowID: "legacy-1", Kind: KindServerConn, Data: nil},
		{FlowID: "legacy-1", Kind: KindRequestContent, Data: nil},
	}

	f, err := Decode(chunks)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.ID != "legacy-1" {
		t.Errorf("ID = %q, want the chunk fid", f.ID)
	}
	if f.Kind != flow.KindHTTP {
		t.Errorf("Kind = %q, want http", f.Kind)
	}
	if f.Client != nil || f.Server != nil {
		t.Error("null connection chunks decoded into non-nil structs")
	}
}
