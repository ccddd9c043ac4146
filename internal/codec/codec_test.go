package codec

import (
	"testing"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type sample struct {
	Address string `json:"address"`
}

func (*sample) JSONMessage() {}

func TestRegisteredUnderProtoName(t *testing.T) {
	c := encoding.GetCodec(Name)
	if _, ok := c.(jsonOrProto); !ok {
		t.Fatalf("codec %q is %T, want jsonOrProto", Name, c)
	}
}

func TestJSONMessages(t *testing.T) {
	c := jsonOrProto{}
	b, err := c.Marshal(&sample{Address: "1 Main St"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"address":"1 Main St"}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var out sample
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Address != "1 Main St" {
		t.Fatalf("got %q", out.Address)
	}
}

func TestProtoMessagesDelegate(t *testing.T) {
	c := jsonOrProto{}
	b, err := c.Marshal(wrapperspb.String("x"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := &wrapperspb.StringValue{}
	if err := c.Unmarshal(b, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.GetValue() != "x" {
		t.Fatalf("got %q, want x", out.GetValue())
	}
}

func TestUnsupportedType(t *testing.T) {
	if _, err := (jsonOrProto{}).Marshal(42); err == nil {
		t.Fatal("expected error for plain int")
	}
}
