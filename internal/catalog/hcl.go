package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/valaphee/flow/internal/ctxlog"
	"github.com/valaphee/flow/internal/fsutil"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/value"
)

// Graphs can be authored as HCL documents and imported into the store:
//
//	graph "demo" {
//	  node "entry" "start" { out = 1 }
//	  node "literal" "three" {
//	    const = 3
//	    out   = 2
//	  }
//	  node "math.mul" "m" {
//	    a   = 2
//	    b   = 2
//	    out = 3
//	  }
//	  node "log" "sink" {
//	    in    = 1
//	    value = 3
//	  }
//	}

type hclDocument struct {
	Graphs []*hclGraph `hcl:"graph,block"`
}

type hclGraph struct {
	Name  string     `hcl:"name,label"`
	Nodes []*hclNode `hcl:"node,block"`
}

type hclNode struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// LoadHCLFile parses one .hcl document into graph models.
func LoadHCLFile(path string) ([]*graph.Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", path, diags.Error())
	}

	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", path, diags.Error())
	}

	graphs := make([]*graph.Graph, 0, len(doc.Graphs))
	for _, hg := range doc.Graphs {
		g := &graph.Graph{Name: hg.Name}
		for _, hn := range hg.Nodes {
			n, err := decodeNode(hn)
			if err != nil {
				return nil, fmt.Errorf("graph %q, node %q %q: %w", hg.Name, hn.Kind, hn.Name, err)
			}
			g.Nodes = append(g.Nodes, n)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// Import loads the .hcl file or directory at path and saves every graph it
// defines, returning how many were imported.
func Import(ctx context.Context, s *Store, path string) (int, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	files := []string{path}
	if info.IsDir() {
		if files, err = fsutil.FindFilesByExtension(path, ".hcl"); err != nil {
			return 0, err
		}
	}

	count := 0
	for _, file := range files {
		graphs, err := LoadHCLFile(file)
		if err != nil {
			return count, err
		}
		for _, g := range graphs {
			if err := s.Save(g); err != nil {
				return count, err
			}
			logger.Info("Imported graph.", "name", g.Name, "file", file)
			count++
		}
	}
	return count, nil
}

func decodeNode(hn *hclNode) (graph.Node, error) {
	switch hn.Kind {
	case "entry":
		var cfg struct {
			Out int32 `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		return &graph.Entry{Out: cfg.Out}, nil

	case "branch":
		var cfg struct {
			In      int32      `hcl:"in"`
			Value   int32      `hcl:"value"`
			KeyType *string    `hcl:"key_type,optional"`
			Cases   *cty.Value `hcl:"cases,optional"`
			Default int32      `hcl:"default"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		kk, err := keyKind(cfg.KeyType)
		if err != nil {
			return nil, err
		}
		cases, err := decodeCases(cfg.Cases)
		if err != nil {
			return nil, err
		}
		return &graph.Branch{In: cfg.In, Value: cfg.Value, KeyKind: kk, Cases: cases, Default: cfg.Default}, nil

	case "select":
		var cfg struct {
			In      int32      `hcl:"in"`
			KeyType *string    `hcl:"key_type,optional"`
			Cases   *cty.Value `hcl:"cases,optional"`
			Default int32      `hcl:"default"`
			Out     int32      `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		kk, err := keyKind(cfg.KeyType)
		if err != nil {
			return nil, err
		}
		cases, err := decodeCases(cfg.Cases)
		if err != nil {
			return nil, err
		}
		return &graph.Select{In: cfg.In, KeyKind: kk, Cases: cases, Default: cfg.Default, Out: cfg.Out}, nil

	case "math.add", "math.sub", "math.mul", "math.div":
		var cfg struct {
			A   int32 `hcl:"a"`
			B   int32 `hcl:"b"`
			Out int32 `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		op, err := value.ParseOp(hn.Kind[len("math."):])
		if err != nil {
			return nil, err
		}
		return &graph.Math{Op: op, A: cfg.A, B: cfg.B, Out: cfg.Out}, nil

	case "map.remove":
		var cfg struct {
			In  int32 `hcl:"in"`
			Key int32 `hcl:"key"`
			Out int32 `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		return &graph.MapRemove{In: cfg.In, Key: cfg.Key, Out: cfg.Out}, nil

	case "map.set":
		var cfg struct {
			In    int32 `hcl:"in"`
			Key   int32 `hcl:"key"`
			Value int32 `hcl:"value"`
			Out   int32 `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		return &graph.MapSet{In: cfg.In, Key: cfg.Key, Value: cfg.Value, Out: cfg.Out}, nil

	case "map.get":
		var cfg struct {
			In  int32 `hcl:"in"`
			Key int32 `hcl:"key"`
			Out int32 `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		return &graph.MapGet{In: cfg.In, Key: cfg.Key, Out: cfg.Out}, nil

	case "literal":
		var cfg struct {
			Const cty.Value `hcl:"const"`
			Type  *string   `hcl:"type,optional"`
			Out   int32     `hcl:"out"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		v, err := ctyToModel(cfg.Const)
		if err != nil {
			return nil, err
		}
		if cfg.Type != nil {
			k, err := value.ParseKind(*cfg.Type)
			if err != nil {
				return nil, err
			}
			if k.Numeric() {
				if v, err = value.Convert(v, k); err != nil {
					return nil, err
				}
			} else if value.KindOf(v) != k {
				return nil, &value.TypeMismatchError{Expected: k.String(), Got: value.TypeName(v)}
			}
		}
		return &graph.Literal{Value: v, Out: cfg.Out}, nil

	case "log":
		var cfg struct {
			In    int32 `hcl:"in"`
			Value int32 `hcl:"value"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		return &graph.Log{In: cfg.In, Value: cfg.Value}, nil

	case "http.request":
		var cfg struct {
			In     int32 `hcl:"in"`
			Out    int32 `hcl:"out,optional"`
			URL    int32 `hcl:"url"`
			Method int32 `hcl:"method,optional"`
			Status int32 `hcl:"status,optional"`
			Body   int32 `hcl:"body,optional"`
		}
		if err := decodeBody(hn.Body, &cfg); err != nil {
			return nil, err
		}
		return &graph.HTTPRequest{In: cfg.In, Out: cfg.Out, URL: cfg.URL, Method: cfg.Method, Status: cfg.Status, Body: cfg.Body}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", hn.Kind)
}

func decodeBody(body hcl.Body, target any) error {
	if diags := gohcl.DecodeBody(body, nil, target); diags.HasErrors() {
		return fmt.Errorf("%s", diags.Error())
	}
	return nil
}

func keyKind(s *string) (value.Kind, error) {
	if s == nil {
		return value.String, nil
	}
	return value.ParseKind(*s)
}

func decodeCases(v *cty.Value) (map[string]int32, error) {
	if v == nil || v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("cases must be a mapping of key to edge id")
	}
	cases := make(map[string]int32)
	for it := v.ElementIterator(); it.Next(); {
		k, e := it.Element()
		if e.Type() != cty.Number {
			return nil, fmt.Errorf("case %q: edge id must be a number", k.AsString())
		}
		id, _ := e.AsBigFloat().Int64()
		cases[k.AsString()] = int32(id)
	}
	return cases, nil
}

// ctyToModel lowers an HCL literal into the runtime value model. Whole
// numbers decode as int (long when outside the int range), fractional ones
// as double; objects become maps.
func ctyToModel(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("null literal")
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		f := v.AsBigFloat()
		if f.IsInt() {
			i, _ := f.Int64()
			if i >= -1<<31 && i < 1<<31 {
				return int32(i), nil
			}
			return i, nil
		}
		d, _ := f.Float64()
		return d, nil
	case t.IsObjectType() || t.IsMapType():
		m := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			ev, err := ctyToModel(e)
			if err != nil {
				return nil, err
			}
			m[k.AsString()] = ev
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported literal type %s", t.FriendlyName())
}
