package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/valaphee/flow/internal/value"
)

// nodeWire is the flat serialized form of every node kind. Which fields are
// meaningful depends on the kind tag.
type nodeWire struct {
	Kind    string           `json:"kind"`
	In      int32            `json:"in,omitempty"`
	Out     int32            `json:"out,omitempty"`
	Value   int32            `json:"value,omitempty"`
	A       int32            `json:"a,omitempty"`
	B       int32            `json:"b,omitempty"`
	Key     int32            `json:"key,omitempty"`
	KeyType string           `json:"key_type,omitempty"`
	Cases   map[string]int32 `json:"cases,omitempty"`
	Default int32            `json:"default,omitempty"`
	Const   json.RawMessage  `json:"const,omitempty"`
	Type    string           `json:"type,omitempty"`
	URL     int32            `json:"url,omitempty"`
	Method  int32            `json:"method,omitempty"`
	Status  int32            `json:"status,omitempty"`
	Body    int32            `json:"body,omitempty"`
}

type graphWire struct {
	Name  string     `json:"name"`
	Nodes []nodeWire `json:"nodes"`
}

// Marshal serializes a graph document to its JSON wire form.
func Marshal(g *Graph) ([]byte, error) {
	wire := graphWire{Name: g.Name, Nodes: make([]nodeWire, 0, len(g.Nodes))}
	for _, n := range g.Nodes {
		w, err := marshalNode(n)
		if err != nil {
			return nil, err
		}
		wire.Nodes = append(wire.Nodes, w)
	}
	return json.Marshal(&wire)
}

// Unmarshal parses a JSON graph document.
func Unmarshal(data []byte) (*Graph, error) {
	var wire graphWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("parsing graph document: %w", err)
	}
	g := &Graph{Name: wire.Name, Nodes: make([]Node, 0, len(wire.Nodes))}
	for i, w := range wire.Nodes {
		n, err := unmarshalNode(w)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, w.Kind, err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	return g, nil
}

func marshalNode(n Node) (nodeWire, error) {
	switch n := n.(type) {
	case *Entry:
		return nodeWire{Kind: n.Kind(), Out: n.Out}, nil
	case *Branch:
		return nodeWire{Kind: n.Kind(), In: n.In, Value: n.Value, KeyType: n.KeyKind.String(), Cases: n.Cases, Default: n.Default}, nil
	case *Select:
		return nodeWire{Kind: n.Kind(), In: n.In, KeyType: n.KeyKind.String(), Cases: n.Cases, Default: n.Default, Out: n.Out}, nil
	case *Math:
		return nodeWire{Kind: n.Kind(), A: n.A, B: n.B, Out: n.Out}, nil
	case *MapRemove:
		return nodeWire{Kind: n.Kind(), In: n.In, Key: n.Key, Out: n.Out}, nil
	case *MapSet:
		return nodeWire{Kind: n.Kind(), In: n.In, Key: n.Key, Value: n.Value, Out: n.Out}, nil
	case *MapGet:
		return nodeWire{Kind: n.Kind(), In: n.In, Key: n.Key, Out: n.Out}, nil
	case *Literal:
		raw, err := json.Marshal(n.Value)
		if err != nil {
			return nodeWire{}, fmt.Errorf("encoding literal: %w", err)
		}
		return nodeWire{Kind: n.Kind(), Const: raw, Type: value.KindOf(n.Value).String(), Out: n.Out}, nil
	case *Log:
		return nodeWire{Kind: n.Kind(), In: n.In, Value: n.Value}, nil
	case *HTTPRequest:
		return nodeWire{Kind: n.Kind(), In: n.In, Out: n.Out, URL: n.URL, Method: n.Method, Status: n.Status, Body: n.Body}, nil
	}
	return nodeWire{}, fmt.Errorf("unserializable node kind %q", n.Kind())
}

func unmarshalNode(w nodeWire) (Node, error) {
	switch {
	case w.Kind == "entry":
		return &Entry{Out: w.Out}, nil
	case w.Kind == "branch":
		kk, err := parseKeyKind(w.KeyType)
		if err != nil {
			return nil, err
		}
		return &Branch{In: w.In, Value: w.Value, KeyKind: kk, Cases: w.Cases, Default: w.Default}, nil
	case w.Kind == "select":
		kk, err := parseKeyKind(w.KeyType)
		if err != nil {
			return nil, err
		}
		return &Select{In: w.In, KeyKind: kk, Cases: w.Cases, Default: w.Default, Out: w.Out}, nil
	case len(w.Kind) > 5 && w.Kind[:5] == "math.":
		op, err := value.ParseOp(w.Kind[5:])
		if err != nil {
			return nil, err
		}
		return &Math{Op: op, A: w.A, B: w.B, Out: w.Out}, nil
	case w.Kind == "map.remove":
		return &MapRemove{In: w.In, Key: w.Key, Out: w.Out}, nil
	case w.Kind == "map.set":
		return &MapSet{In: w.In, Key: w.Key, Value: w.Value, Out: w.Out}, nil
	case w.Kind == "map.get":
		return &MapGet{In: w.In, Key: w.Key, Out: w.Out}, nil
	case w.Kind == "literal":
		v, err := decodeConst(w.Const, w.Type)
		if err != nil {
			return nil, err
		}
		return &Literal{Value: v, Out: w.Out}, nil
	case w.Kind == "log":
		return &Log{In: w.In, Value: w.Value}, nil
	case w.Kind == "http.request":
		return &HTTPRequest{In: w.In, Out: w.Out, URL: w.URL, Method: w.Method, Status: w.Status, Body: w.Body}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", w.Kind)
}

func parseKeyKind(s string) (value.Kind, error) {
	if s == "" {
		return value.String, nil
	}
	return value.ParseKind(s)
}

// decodeConst turns a raw JSON constant into a model value. An explicit
// type wins; otherwise integral JSON numbers decode as int (long when
// outside the int range), fractional ones as double.
func decodeConst(raw json.RawMessage, typ string) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("literal without const")
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding literal: %w", err)
	}
	v, err := normalize(v)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return v, nil
	}
	k, err := value.ParseKind(typ)
	if err != nil {
		return nil, err
	}
	if k.Numeric() && value.KindOf(v) != k {
		return value.Convert(v, k)
	}
	if value.KindOf(v) != k {
		return nil, &value.TypeMismatchError{Expected: k.String(), Got: value.TypeName(v)}
	}
	return v, nil
}

func normalize(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			if i >= -1<<31 && i < 1<<31 {
				return int32(i), nil
			}
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			m[k] = n
		}
		return m, nil
	default:
		return v, nil
	}
}
