package flow

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Bytes is a byte string that survives a round trip through JSON, which
// cannot carry raw binary. Valid UTF-8 marshals as a plain JSON string;
// anything else marshals as {"$b64": "<std base64>"}. Unmarshal accepts both
// forms, so payloads written before the $b64 wrapper existed still decode.
type Bytes []byte

type b64Wrapper struct {
	B64 string `json:"$b64"`
}

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	if utf8.Valid(b) {
		return json.Marshal(string(b))
	}
	return json.Marshal(b64Wrapper{B64: base64.StdEncoding.EncodeToString(b)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Bytes(s)
		return nil
	}
	var w b64Wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("byte value is neither string nor $b64 object: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(w.B64)
	if err != nil {
		return fmt.Errorf("decoding $b64 value: %w", err)
	}
	*b = raw
	return nil
}

// Header is one name/value pair. Names and values may contain arbitrary
// bytes; on the wire they are a two-element JSON array, mirroring how the
// capture engine snapshots header lists.
type Header struct {
	Name  Bytes
	Value Bytes
}

// MarshalJSON implements json.Marshaler.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Bytes{h.Name, h.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Header) UnmarshalJSON(data []byte) error {
	var pair [2]Bytes
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("header is not a [name, value] pair: %w", err)
	}
	h.Name, h.Value = pair[0], pair[1]
	return nil
}

// Headers preserves order and duplicates, like the underlying protocol.
type Headers []Header

// Get returns the first value for name (exact match) or "".
func (hs Headers) Get(name string) string {
	for _, h := range hs {
		if string(h.Name) == name {
			return string(h.Value)
		}
	}
	return ""
}

// Addr is a network endpoint. JSON form is the [host, port] pair used by
// capture-engine snapshots.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// MarshalJSON implements json.Marshaler.
func (a Addr) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{a.Host, a.Port})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Addr) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("address is not a [host, port] pair: %w", err)
	}
	if err := json.Unmarshal(pair[0], &a.Host); err != nil {
		return fmt.Errorf("address host: %w", err)
	}
	if err := json.Unmarshal(pair[1], &a.Port); err != nil {
		return fmt.Errorf("address port: %w", err)
	}
	return nil
}
