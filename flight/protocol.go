package flight

import (
	"fmt"

	"github.com/hugr-lab/sits-go/internal/msgpack"
	"github.com/hugr-lab/sits-go/internal/serialize"
	"github.com/hugr-lab/sits-go/robj"
)

// DoAction types served by the runtime server.
const (
	ActionCall    = "call"
	ActionEval    = "eval"
	ActionRelease = "release"
	ActionPing    = "ping"
)

// envelope wraps every action body. Payload is MessagePack, zstd-compressed
// when Compressed is set.
type envelope struct {
	Compressed bool   `msgpack:"z"`
	Payload    []byte `msgpack:"p"`
}

type namedValue struct {
	Name  string         `msgpack:"name"`
	Value *msgpack.Value `msgpack:"value"`
}

type callRequest struct {
	Function string           `msgpack:"function"`
	Args     []*msgpack.Value `msgpack:"args"`
	Named    []namedValue     `msgpack:"named"`
}

type evalRequest struct {
	Source string       `msgpack:"source"`
	Env    []namedValue `msgpack:"env"`
}

type releaseRequest struct {
	IDs []string `msgpack:"ids"`
}

type releaseResponse struct {
	Released int `msgpack:"released"`
}

type valueResponse struct {
	Value *msgpack.Value `msgpack:"value"`
}

type pingResponse struct {
	Status  string `msgpack:"status"`
	Handles int    `msgpack:"handles"`
}

// codec packs action bodies.
type codec struct {
	comp   *serialize.Compressor
	decomp *serialize.Decompressor
}

func newCodec(threshold int) (*codec, error) {
	comp, err := serialize.NewCompressor(threshold)
	if err != nil {
		return nil, err
	}
	decomp, err := serialize.NewDecompressor(0)
	if err != nil {
		comp.Close()
		return nil, err
	}
	return &codec{comp: comp, decomp: decomp}, nil
}

func (c *codec) marshal(v any) ([]byte, error) {
	payload, err := msgpack.Encode(v)
	if err != nil {
		return nil, err
	}
	payload, compressed := c.comp.Pack(payload)
	return msgpack.Encode(envelope{Compressed: compressed, Payload: payload})
}

func (c *codec) unmarshal(body []byte, v any) error {
	var env envelope
	if err := msgpack.Decode(body, &env); err != nil {
		return err
	}
	payload := env.Payload
	if env.Compressed {
		var err error
		if payload, err = c.decomp.Decompress(payload); err != nil {
			return err
		}
	}
	return msgpack.Decode(payload, v)
}

func (c *codec) close() {
	c.comp.Close()
	c.decomp.Close()
}

func toWireValues(values []robj.Value, export msgpack.ExportFunc) ([]*msgpack.Value, error) {
	out := make([]*msgpack.Value, len(values))
	for i, v := range values {
		w, err := msgpack.FromValue(v, export)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = w
	}
	return out, nil
}

func fromWireValues(values []*msgpack.Value, resolve msgpack.ResolveFunc) ([]robj.Value, error) {
	out := make([]robj.Value, len(values))
	for i, w := range values {
		v, err := w.ToValue(resolve)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func toWireNamed(named []robj.Named, export msgpack.ExportFunc) ([]namedValue, error) {
	out := make([]namedValue, len(named))
	for i, n := range named {
		w, err := msgpack.FromValue(n.Value, export)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", n.Name, err)
		}
		out[i] = namedValue{Name: n.Name, Value: w}
	}
	return out, nil
}

func fromWireNamed(named []namedValue, resolve msgpack.ResolveFunc) ([]robj.Named, error) {
	out := make([]robj.Named, len(named))
	for i, n := range named {
		v, err := n.Value.ToValue(resolve)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", n.Name, err)
		}
		out[i] = robj.Named{Name: n.Name, Value: v}
	}
	return out, nil
}
