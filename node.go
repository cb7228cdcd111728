package configurator

import "context"

// Node is any child of a Section: an *Option, a nested *Section or a
// *Delegated stand-in.
type Node interface {
	Name() string
	// PathName is the dot-joined path from the schema root, e.g. root.db.host.
	PathName() string
	Parent() *Section
	IsRequired() bool
	IsDeprecated() bool
	IsRenamed() bool

	Value() (any, error)
	ValueContext(ctx context.Context) (any, error)
	Set(v any) error
}

var (
	_ Node = (*Option)(nil)
	_ Node = (*Section)(nil)
	_ Node = (*Delegated)(nil)
)

func joinPath(parent *Section, name string) string {
	if parent == nil {
		return name
	}
	return parent.PathName() + "." + name
}
