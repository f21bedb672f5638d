package features

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

const DefaultDebugOutputPath = "composed_shader_debug.wgsl"

// DebugOutputPathFor names the debug artifact after the shading language.
func DebugOutputPathFor(lang Language) string {
	return "composed_shader_debug." + string(lang)
}

// Registry owns an ordered set of features. Registration order is the
// tie-break for equal-priority injections, so it is never rearranged.
//
// A Registry is not safe for concurrent use; callers serialize access.
type Registry struct {
	features []Feature
	index    map[string]int

	debugOutput     bool
	debugOutputPath string

	ctx         *Context
	initialized bool
	closed      bool
	generation  uint64

	logger *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		index:           make(map[string]int),
		debugOutputPath: DefaultDebugOutputPath,
		logger:          slog.Default().With(slog.String("module", "features")),
	}
}

// SetDebugOutput controls whether every composed shader is written verbatim
// to path. An empty path keeps the current one.
func (r *Registry) SetDebugOutput(enabled bool, path string) {
	r.debugOutput = enabled
	if path != "" {
		r.debugOutputPath = path
	}
}

func (r *Registry) DebugOutput() (bool, string) {
	return r.debugOutput, r.debugOutputPath
}

// Register appends f. If the registry is already initialized, f is
// initialized right away with the registry's context.
func (r *Registry) Register(f Feature) error {
	if r.closed {
		return ErrRegistryClosed
	}
	name := f.Name()
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFeatureName, name)
	}
	if r.initialized {
		if err := f.Init(r.ctx); err != nil {
			return fmt.Errorf("could not init feature %s: %w", name, err)
		}
	}
	r.index[name] = len(r.features)
	r.features = append(r.features, f)
	r.generation++
	r.logger.Debug(fmt.Sprintf("Registered feature %s", name))
	return nil
}

// Remove takes f out of the registry, releasing its resources if it was
// initialized.
func (r *Registry) Remove(name string) (Feature, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	f := r.features[i]
	r.features = slices.Delete(r.features, i, i+1)
	delete(r.index, name)
	for j := i; j < len(r.features); j++ {
		r.index[r.features[j].Name()] = j
	}
	if r.initialized {
		f.Cleanup(r.ctx)
	}
	r.generation++
	return f, nil
}

// InitAll initializes every registered feature, in registration order.
func (r *Registry) InitAll(ctx *Context) error {
	if r.closed {
		return ErrRegistryClosed
	}
	if r.initialized {
		return ErrAlreadyInitialized
	}
	if ctx.Uniforms == nil {
		ctx.Uniforms = NewUniforms()
	}
	ctx.Exports = r
	for i, f := range r.features {
		r.logger.Debug(fmt.Sprintf("Initializing feature: %s", f.Name()))
		if err := f.Init(ctx); err != nil {
			for _, done := range r.features[:i] {
				done.Cleanup(ctx)
			}
			return fmt.Errorf("could not init feature %s: %w", f.Name(), err)
		}
	}
	r.ctx = ctx
	r.initialized = true
	return nil
}

// CleanupAll releases every feature. The registry is unusable afterwards.
func (r *Registry) CleanupAll() {
	if r.closed {
		return
	}
	if r.initialized {
		for _, f := range r.features {
			r.logger.Debug(fmt.Sprintf("Cleaning up feature: %s", f.Name()))
			f.Cleanup(r.ctx)
		}
	}
	r.closed = true
}

func (r *Registry) Initialized() bool {
	return r.initialized
}

func (r *Registry) Closed() bool {
	return r.closed
}

// Context returns the context given to InitAll, or nil before that.
func (r *Registry) Context() *Context {
	return r.ctx
}

// Generation changes whenever membership or an enabled flag changes. The
// pipeline layer compares it to decide whether composed shaders are stale.
func (r *Registry) Generation() uint64 {
	return r.generation
}

func (r *Registry) Feature(name string) (Feature, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.features[i], true
}

func (r *Registry) Features() []Feature {
	return slices.Clone(r.features)
}

func (r *Registry) FeatureNames() []string {
	names := make([]string, len(r.features))
	for i, f := range r.features {
		names[i] = f.Name()
	}
	return names
}

// EnabledFeatures returns the enabled features in registration order.
func (r *Registry) EnabledFeatures() []Feature {
	if r.closed {
		return nil
	}
	var enabled []Feature
	for _, f := range r.features {
		if f.Enabled() {
			enabled = append(enabled, f)
		}
	}
	return enabled
}

func (r *Registry) EnabledCount() int {
	return len(r.EnabledFeatures())
}

func (r *Registry) TotalCount() int {
	return len(r.features)
}

// ToggleFeature flips the enabled flag of the named feature and returns the
// new state. It only marks composed shaders stale; the caller rebuilds.
func (r *Registry) ToggleFeature(name string) (bool, error) {
	f, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	enabled := !f.Enabled()
	f.SetEnabled(enabled)
	r.generation++
	return enabled, nil
}

func (r *Registry) EnableFeature(name string) error {
	return r.setEnabled(name, true)
}

func (r *Registry) DisableFeature(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	f, err := r.lookup(name)
	if err != nil {
		return err
	}
	if f.Enabled() == enabled {
		return nil
	}
	f.SetEnabled(enabled)
	r.generation++
	return nil
}

func (r *Registry) lookup(name string) (Feature, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}
	f, ok := r.Feature(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	return f, nil
}

// Injections collects the injections of every enabled feature, in
// registration order, with Origin set.
func (r *Registry) Injections() []ShaderInjection {
	var all []ShaderInjection
	for _, f := range r.EnabledFeatures() {
		for _, inj := range f.ShaderInjections() {
			inj.Origin = f.Name()
			all = append(all, inj)
		}
	}
	return all
}

// Compose merges base with the injections of every enabled feature.
func (r *Registry) Compose(base string) (string, error) {
	if r.closed {
		return "", ErrRegistryClosed
	}
	for _, f := range r.EnabledFeatures() {
		r.logger.Debug(fmt.Sprintf("Composing shader with feature: %s", f.Name()))
	}
	src, err := Compose(base, r.Injections())
	if err != nil {
		return "", err
	}
	if r.debugOutput {
		writeFileDebug(r.logger, r.debugOutputPath, src)
	}
	return src, nil
}

func (r *Registry) PrepareFrame() {
	if r.closed || !r.initialized {
		return
	}
	for _, f := range r.EnabledFeatures() {
		if p, ok := f.(FramePreparer); ok {
			p.PrepareFrame(r.ctx)
		}
	}
}

func (r *Registry) ExecutePrePasses(enc Encoder) {
	if r.closed || !r.initialized {
		return
	}
	for _, f := range r.EnabledFeatures() {
		if p, ok := f.(PrePasser); ok {
			p.PreRenderPass(enc, r.ctx)
		}
	}
}

func (r *Registry) ExecutePostPasses(enc Encoder) {
	if r.closed || !r.initialized {
		return
	}
	for _, f := range r.EnabledFeatures() {
		if p, ok := f.(PostPasser); ok {
			p.PostRenderPass(enc, r.ctx)
		}
	}
}

func (r *Registry) ExportedData(feature, key string) (any, bool) {
	data, ok := r.AllExportedData(feature)
	if !ok {
		return nil, false
	}
	v, ok := data[key]
	return v, ok
}

func (r *Registry) AllExportedData(feature string) (map[string]any, bool) {
	f, ok := r.Feature(feature)
	if !ok {
		return nil, false
	}
	e, ok := f.(Exporter)
	if !ok {
		return nil, false
	}
	return e.ExportData(), true
}

func writeFileDebug(logger *slog.Logger, filename string, content string) {
	f, err := os.Create(filename)
	if err != nil {
		logger.Warn(fmt.Sprintf("Failed to write debug shader output to '%s': %s", filename, err))
		return
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			return
		}
	}(f)

	_, err = fmt.Fprintf(f, "%s", content)
	if err != nil {
		logger.Warn(fmt.Sprintf("Could not write to debug file: %s", err))
		return
	}
	logger.Info(fmt.Sprintf("Wrote composed shader to '%s'", filename))
}
