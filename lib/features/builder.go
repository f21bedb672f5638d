package features

// Builder accumulates features and produces a Registry in one step.
type Builder struct {
	features        []Feature
	debugOutput     bool
	debugOutputPath string
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithFeature(f Feature) *Builder {
	b.features = append(b.features, f)
	return b
}

func (b *Builder) DebugOutput(enabled bool) *Builder {
	b.debugOutput = enabled
	return b
}

func (b *Builder) DebugOutputPath(path string) *Builder {
	b.debugOutputPath = path
	return b
}

// Build registers every accumulated feature in order. It fails on the first
// duplicate name.
func (b *Builder) Build() (*Registry, error) {
	r := NewRegistry()
	r.SetDebugOutput(b.debugOutput, b.debugOutputPath)
	for _, f := range b.features {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}
