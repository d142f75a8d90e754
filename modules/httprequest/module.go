// Package httprequest implements the http.request node: on control
// invocation it performs an HTTP request and exposes the last response on
// its status and body data outputs.
package httprequest

import (
	"fmt"
	"net/http"
	"sync"

	"resty.dev/v3"

	"github.com/valaphee/flow/internal/ctxlog"
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/internal/graph"
	"github.com/valaphee/flow/internal/path"
)

// Module implements the exec.Module interface for this package.
type Module struct{}

type executor struct {
	client *resty.Client
}

// state is the node-local response snapshot. Pulls on status/body may come
// from a different task than the invocation that wrote it, so access is
// synchronized here.
type state struct {
	mu     sync.Mutex
	status int32
	body   string
	done   bool
}

func (e executor) Bind(s exec.Scope, n graph.Node) (bool, error) {
	req, ok := n.(*graph.HTTPRequest)
	if !ok {
		return false, nil
	}

	url := s.DataPath(req.URL)
	var method *path.Data
	if req.Method != graph.Unwired {
		method = s.DataPath(req.Method)
	}
	out := s.ControlPath(req.Out)
	st := &state{}

	err := s.ControlPath(req.In).Declare(func() error {
		u, err := path.GetAs[string](url)
		if err != nil {
			return err
		}
		m := http.MethodGet
		if method != nil {
			if m, err = path.GetAs[string](method); err != nil {
				return err
			}
		}

		ctxlog.FromContext(s.Context()).Debug("Executing http.request node.", "method", m, "url", u)
		res, err := e.client.R().SetContext(s.Context()).Execute(m, u)
		if err != nil {
			return &exec.NodeEvalError{NodeKind: req.Kind(), Err: err}
		}

		st.mu.Lock()
		st.status = int32(res.StatusCode())
		st.body = res.String()
		st.done = true
		st.mu.Unlock()

		return out.Invoke()
	})
	if err != nil {
		return true, err
	}

	if req.Status != graph.Unwired {
		if err := s.DataPath(req.Status).Bind(func() (any, error) {
			return st.snapshot(req, func() any { return st.status })
		}); err != nil {
			return true, err
		}
	}
	if req.Body != graph.Unwired {
		if err := s.DataPath(req.Body).Bind(func() (any, error) {
			return st.snapshot(req, func() any { return st.body })
		}); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (st *state) snapshot(n *graph.HTTPRequest, read func() any) (any, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.done {
		return nil, &exec.NodeEvalError{NodeKind: n.Kind(), Err: fmt.Errorf("response pulled before any request completed")}
	}
	return read(), nil
}

// Register registers the executor with the engine. Each call creates one
// resty client, shared by every http.request node bound through r.
func (m *Module) Register(r *exec.Registry) {
	r.Register(exec.NodeSpec{
		Kind:        "http.request",
		Description: "Performs an HTTP request and exposes the response.",
		Ports: []exec.Port{
			exec.ControlIn("in"),
			exec.ControlOut("out"),
			exec.DataIn("url"),
			{Name: "method", Path: "data", Dir: "in", Optional: true},
			exec.DataOut("status"),
			exec.DataOut("body"),
		},
	}, executor{client: resty.New()})
}
