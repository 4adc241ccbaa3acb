package class

// Context tells constructor and deserialize hooks which engine operation is
// building the object. It replaces any process-wide "currently cloning" state.
type Context struct {
	Instantiating bool
	Deserializing bool
	EditorMode    bool
}

// Cloner is implemented by values that know how to deep copy themselves. It is
// used for default prototypes and by the instantiator for opaque host values.
type Cloner interface {
	Clone() any
}

// HostHandle marks native handles (platform UI nodes, GPU resources) that can be
// referenced from objects but never duplicated.
type HostHandle interface {
	HostHandle() string
}
