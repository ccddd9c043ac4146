// Package codec registers a gRPC codec that encodes hand-written message
// types as JSON and everything else as protobuf. Services described with a
// plain grpc.ServiceDesc (no generated code) mark their request and response
// types with [JSONMessage].
//
// The codec replaces the default one under the name "proto", so importing
// this package is enough for clients and servers to use it.
package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // register the default first so ours wins
	"google.golang.org/protobuf/proto"
)

// Name is the codec name on the wire.
const Name = "proto"

// JSONMessage is implemented by message types carried as JSON.
type JSONMessage interface {
	JSONMessage()
}

func init() {
	encoding.RegisterCodec(jsonOrProto{})
}

type jsonOrProto struct{}

func (jsonOrProto) Name() string { return Name }

func (jsonOrProto) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case JSONMessage:
		return json.Marshal(m)
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("codec: cannot marshal %T", v)
	}
}

func (jsonOrProto) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case JSONMessage:
		return json.Unmarshal(data, m)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("codec: cannot unmarshal into %T", v)
	}
}
