package grpc

import (
    "encoding/json"

    "google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec carries the management messages as JSON so the service needs no
// protobuf codegen. It is selected per call by content subtype.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v interface{}) error { return json.Unmarshal(b, v) }
func (jsonCodec) Name() string                            { return codecName }

func init() {
    encoding.RegisterCodec(jsonCodec{})
}
