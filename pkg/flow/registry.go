package flow

// Component is an opaque reference to a renderable node or edge
// implementation. The store only manages registry merging and
// defaulting; what a Component is (a template name, a render function,
// a client-side component id) is the rendering layer's business.
type Component any

// builtin names the components that ship with the library. The rendering
// layer maps them to its built-in implementations.
type builtin string

// Built-in node components.
const (
	BuiltinDefaultNode builtin = "node:default"
	BuiltinInputNode   builtin = "node:input"
	BuiltinOutputNode  builtin = "node:output"
)

// Built-in edge components.
const (
	BuiltinDefaultEdge  builtin = "edge:default"
	BuiltinStraightEdge builtin = "edge:straight"
	BuiltinStepEdge     builtin = "edge:step"
	BuiltinBezierEdge   builtin = "edge:bezier"
)

// NodeTypes maps a node's Type string to its component.
type NodeTypes map[string]Component

// EdgeTypes maps an edge's Type string to its component.
type EdgeTypes map[string]Component

// DefaultNodeTypes returns the built-in node type registry.
func DefaultNodeTypes() NodeTypes {
	return NodeTypes{
		"default": BuiltinDefaultNode,
		"input":   BuiltinInputNode,
		"output":  BuiltinOutputNode,
	}
}

// DefaultEdgeTypes returns the built-in edge type registry.
func DefaultEdgeTypes() EdgeTypes {
	return EdgeTypes{
		"default":  BuiltinDefaultEdge,
		"straight": BuiltinStraightEdge,
		"step":     BuiltinStepEdge,
		"bezier":   BuiltinBezierEdge,
	}
}

// MergeNodeTypes overlays user entries on the built-in defaults.
// User entries win by key; the inputs are not modified.
func MergeNodeTypes(user NodeTypes) NodeTypes {
	merged := DefaultNodeTypes()
	for k, v := range user {
		merged[k] = v
	}
	return merged
}

// MergeEdgeTypes overlays user entries on the built-in defaults.
// User entries win by key; the inputs are not modified.
func MergeEdgeTypes(user EdgeTypes) EdgeTypes {
	merged := DefaultEdgeTypes()
	for k, v := range user {
		merged[k] = v
	}
	return merged
}
