package exec

// Port describes one named port of a node kind for the merged spec
// document.
type Port struct {
	Name     string `json:"name"`
	Path     string `json:"path"` // "control" or "data"
	Dir      string `json:"dir"`  // "in" or "out"
	Optional bool   `json:"optional,omitempty"`
}

// NodeSpec is one node kind's contribution to the merged spec document
// served at the service boundary.
type NodeSpec struct {
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Ports       []Port `json:"ports"`
}

// Convenience constructors for port specs.

func ControlIn(name string) Port  { return Port{Name: name, Path: "control", Dir: "in"} }
func ControlOut(name string) Port { return Port{Name: name, Path: "control", Dir: "out"} }
func DataIn(name string) Port     { return Port{Name: name, Path: "data", Dir: "in"} }
func DataOut(name string) Port    { return Port{Name: name, Path: "data", Dir: "out"} }
