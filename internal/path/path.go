// Package path implements the two edge disciplines of a graph run: data
// paths, which produce a value lazily on every pull, and control paths,
// which carry an eager side-effect invocation.
//
// Path slots are write-once per scope. All binding happens while a scope is
// constructed, strictly before any task is launched, so slot reads during
// evaluation need no locking.
package path

import "fmt"

// DoubleBindError reports a second producer or body installed on a path.
// It always indicates a graph-model bug.
type DoubleBindError struct {
	ID int32
}

func (e *DoubleBindError) Error() string {
	return fmt.Sprintf("path %d already bound", e.ID)
}

// UnboundPathError reports a pull on a data path with no producer.
type UnboundPathError struct {
	ID int32
}

func (e *UnboundPathError) Error() string {
	return fmt.Sprintf("data path %d pulled with no producer bound", e.ID)
}

// Data is a lazily evaluated value edge. Each Get re-invokes the bound
// producer; there is no memoization across pulls.
type Data struct {
	id       int32
	producer func() (any, error)
}

// NewData returns an unbound data path for the given edge id.
func NewData(id int32) *Data {
	return &Data{id: id}
}

// ID returns the edge id the path was allocated for.
func (d *Data) ID() int32 {
	return d.id
}

// Bind installs the producer. A second Bind fails with DoubleBindError.
func (d *Data) Bind(producer func() (any, error)) error {
	if d.producer != nil {
		return &DoubleBindError{ID: d.id}
	}
	d.producer = producer
	return nil
}

// Bound reports whether a producer has been installed.
func (d *Data) Bound() bool {
	return d.producer != nil
}

// Get pulls one value from the producer.
func (d *Data) Get() (any, error) {
	if d.producer == nil {
		return nil, &UnboundPathError{ID: d.id}
	}
	return d.producer()
}

// Control is an eager side-effect edge. Its body runs synchronously in the
// invoking task.
type Control struct {
	id   int32
	body func() error
}

// NewControl returns an undeclared control path for the given edge id.
func NewControl(id int32) *Control {
	return &Control{id: id}
}

// ID returns the edge id the path was allocated for.
func (c *Control) ID() int32 {
	return c.id
}

// Declare installs the body. A second Declare fails with DoubleBindError.
func (c *Control) Declare(body func() error) error {
	if c.body != nil {
		return &DoubleBindError{ID: c.id}
	}
	c.body = body
	return nil
}

// Declared reports whether a body has been installed.
func (c *Control) Declared() bool {
	return c.body != nil
}

// Invoke runs the declared body. An undeclared control path is a no-op;
// dangling control outputs (a total branch's default, for instance) invoke
// harmlessly.
func (c *Control) Invoke() error {
	if c.body == nil {
		return nil
	}
	return c.body()
}
