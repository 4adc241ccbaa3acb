package class

// Flags is the lifecycle bitmask carried by every object.
type Flags uint32

const (
	Destroyed Flags = 1 << iota
	RealDestroyed
	ToDestroy
	DontSave
	EditorOnly
	Dirty
	DontDestroy
	Destroying
	Deactivating
	IsPreloadCalled
	IsOnLoadCalled
	IsOnLoadStarted
	IsOnEnableCalled
	IsStartCalled
	IsEditorOnEnableCalled
	HideInGame
	HideInEditor
)

// PersistentMask keeps the flags that survive instantiation. One-shot and
// pending-state bits are dropped so a clone starts with a fresh lifecycle.
const PersistentMask = ^(ToDestroy | Dirty | Destroying | DontDestroy | Deactivating |
	IsPreloadCalled | IsOnLoadCalled | IsOnLoadStarted | IsOnEnableCalled |
	IsStartCalled | IsEditorOnEnableCalled)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Persistent returns f with transient bits cleared.
func (f Flags) Persistent() Flags {
	return f & PersistentMask
}
