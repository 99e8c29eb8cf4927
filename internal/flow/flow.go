// Package flow defines the domain types for captured network exchanges.
//
// A Flow is one captured request/response exchange together with the client
// and server connection metadata the capture engine observed. Flow values are
// ephemeral: the capture engine owns their lifecycle, and flowvault persists
// them as chunks (see internal/codec) rather than keeping objects in memory.
package flow

import (
	"strconv"

	"github.com/google/uuid"
)

// Kind identifies the protocol a flow was captured from.
type Kind string

const (
	KindHTTP      Kind = "http"
	KindTCP       Kind = "tcp"
	KindUDP       Kind = "udp"
	KindDNS       Kind = "dns"
	KindWebSocket Kind = "websocket"
)

// Flow is one captured exchange, identified by a stable id assigned at
// capture time. Request is always present for HTTP flows; Response is nil
// until one has been recorded.
type Flow struct {
	ID       string
	Kind     Kind
	Marked   string // marker label; empty means unmarked
	Comment  string
	Request  *Request
	Response *Response
	Client   *ClientConn
	Server   *ServerConn
}

// NewID returns a fresh flow id. The capture engine normally assigns ids;
// this exists for producers (and tests) that construct flows directly.
func NewID() string {
	return uuid.NewString()
}

// Request is the client-to-server half of an HTTP exchange.
type Request struct {
	Method         string  `json:"method"`
	Scheme         string  `json:"scheme"`
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	Path           string  `json:"path"`
	HTTPVersion    string  `json:"http_version"`
	Headers        Headers `json:"headers"`
	TimestampStart float64 `json:"timestamp_start"`
	TimestampEnd   float64 `json:"timestamp_end"`

	// Content is the message body. It never travels inside JSON metadata;
	// the codec stores it as a separate binary chunk.
	Content []byte `json:"-"`
}

// URL composes the request URL. The composition matches the url column of
// the flow_view derived view exactly, so filters and decoded records agree.
func (r *Request) URL() string {
	return r.Scheme + "://" + r.Host + ":" + strconv.Itoa(r.Port) + r.Path
}

// Response is the server-to-client half of an HTTP exchange.
type Response struct {
	StatusCode     int     `json:"status_code"`
	Reason         string  `json:"reason"`
	HTTPVersion    string  `json:"http_version"`
	Headers        Headers `json:"headers"`
	TimestampStart float64 `json:"timestamp_start"`
	TimestampEnd   float64 `json:"timestamp_end"`

	Content []byte `json:"-"`
}

// ClientConn describes the connection from the client to the capture proxy.
type ClientConn struct {
	ID             string  `json:"id"`
	Peername       *Addr   `json:"peername"`
	Sockname       *Addr   `json:"sockname"`
	TLSEstablished bool    `json:"tls_established"`
	SNI            string  `json:"sni,omitempty"`
	ALPN           Bytes   `json:"alpn,omitempty"`
	TimestampStart float64 `json:"timestamp_start"`
	TimestampTLS   float64 `json:"timestamp_tls_setup,omitempty"`
	TimestampEnd   float64 `json:"timestamp_end,omitempty"`
}

// ServerConn describes the connection from the capture proxy to the origin.
type ServerConn struct {
	ID              string  `json:"id"`
	Address         *Addr   `json:"address"`
	Peername        *Addr   `json:"peername,omitempty"`
	Sockname        *Addr   `json:"sockname,omitempty"`
	TLSEstablished  bool    `json:"tls_established"`
	SNI             string  `json:"sni,omitempty"`
	ALPN            Bytes   `json:"alpn,omitempty"`
	CertificateList []Bytes `json:"certificate_list"`
	TimestampStart  float64 `json:"timestamp_start"`
	TimestampTLS    float64 `json:"timestamp_tls_setup,omitempty"`
	TimestampEnd    float64 `json:"timestamp_end,omitempty"`
}
