package features

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testFeature struct {
	Base
	injections []ShaderInjection

	inits, cleanups, prepares, prePasses, postPasses int
	initErr                                          error
	exports                                          map[string]any
}

func newTestFeature(name string, injs ...ShaderInjection) *testFeature {
	return &testFeature{Base: NewBase(name), injections: injs}
}

func (f *testFeature) Init(*Context) error {
	f.inits++
	return f.initErr
}

func (f *testFeature) Cleanup(*Context) {
	f.cleanups++
}

func (f *testFeature) ShaderInjections() []ShaderInjection {
	out := make([]ShaderInjection, len(f.injections))
	copy(out, f.injections)
	return out
}

func (f *testFeature) PrepareFrame(*Context)           { f.prepares++ }
func (f *testFeature) PreRenderPass(Encoder, *Context)  { f.prePasses++ }
func (f *testFeature) PostRenderPass(Encoder, *Context) { f.postPasses++ }
func (f *testFeature) ExportData() map[string]any       { return f.exports }

type nullEncoder struct{}

func (nullEncoder) BeginPass(string, Target) {}
func (nullEncoder) Draw(string, *Uniforms)   {}
func (nullEncoder) EndPass()                 {}

func scenarioRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewBuilder().
		WithFeature(newTestFeature("G")).
		WithFeature(newTestFeature("L", NewInjection(FragmentColorCalculation, "x = lit(x);"))).
		WithFeature(newTestFeature("S", WithPriority(FragmentColorCalculation, "x = shadow(x);", 10))).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegistryScenario(t *testing.T) {
	r := scenarioRegistry(t)
	tmpl := "// INJECT_FRAGMENTCOLORCALCULATION\n"

	out, err := r.Compose(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if out != "x = lit(x);\nx = shadow(x);\n" {
		t.Errorf("got %q", out)
	}

	enabled, err := r.ToggleFeature("L")
	if err != nil {
		t.Fatal(err)
	}
	if enabled {
		t.Error("L should be disabled after toggle")
	}
	out, err = r.Compose(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if out != "x = shadow(x);\n" {
		t.Errorf("got %q", out)
	}
}

func TestRegistryDeterminism(t *testing.T) {
	r := scenarioRegistry(t)
	first, err := r.Compose(colorTemplate)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Compose(colorTemplate)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("composition %d differs", i)
		}
	}
}

func TestRegistryOrderIndependence(t *testing.T) {
	a := scenarioRegistry(t)

	b := NewRegistry()
	for _, f := range []*testFeature{
		newTestFeature("G"),
		newTestFeature("L", NewInjection(FragmentColorCalculation, "x = lit(x);")),
		newTestFeature("S", WithPriority(FragmentColorCalculation, "x = shadow(x);", 10)),
	} {
		if err := b.Register(f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.ToggleFeature("S"); err != nil {
		t.Fatal(err)
	}
	if err := b.DisableFeature("L"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ToggleFeature("L"); err != nil {
		t.Fatal(err)
	}
	if err := b.EnableFeature("S"); err != nil {
		t.Fatal(err)
	}

	outA, err := a.Compose(colorTemplate)
	if err != nil {
		t.Fatal(err)
	}
	outB, err := b.Compose(colorTemplate)
	if err != nil {
		t.Fatal(err)
	}
	if outA != outB {
		t.Errorf("outputs differ:\n%q\n%q", outA, outB)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprints differ for identical final state")
	}
}

func TestRegistryDisabledFeatureExclusion(t *testing.T) {
	tmpl := "// INJECT_VERTEXPREAMBLE\n// INJECT_FRAGMENTPREAMBLE\n// INJECT_FRAGMENTMAIN\n"
	r := NewRegistry()
	noisy := newTestFeature("noisy",
		NewInjection(VertexPreamble, "noisy_vp"),
		NewInjection(FragmentPreamble, "noisy_fp"),
		NewInjection(FragmentMain, "noisy_fm"),
	)
	quiet := newTestFeature("quiet", NewInjection(FragmentMain, "quiet_fm"))
	for _, f := range []Feature{noisy, quiet} {
		if err := r.Register(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.DisableFeature("noisy"); err != nil {
		t.Fatal(err)
	}
	out, err := r.Compose(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "noisy") {
		t.Errorf("disabled feature left residue: %q", out)
	}
	if out != "quiet_fm\n" {
		t.Errorf("got %q", out)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newTestFeature("a")); err != nil {
		t.Fatal(err)
	}
	gen := r.Generation()
	err := r.Register(newTestFeature("a"))
	if !errors.Is(err, ErrDuplicateFeatureName) {
		t.Fatalf("expected ErrDuplicateFeatureName, got %v", err)
	}
	if r.TotalCount() != 1 || r.Generation() != gen {
		t.Error("registry state changed on rejected registration")
	}

	_, err = NewBuilder().WithFeature(newTestFeature("b")).WithFeature(newTestFeature("b")).Build()
	if !errors.Is(err, ErrDuplicateFeatureName) {
		t.Fatalf("builder: expected ErrDuplicateFeatureName, got %v", err)
	}
}

func TestRegistryUnknownFeature(t *testing.T) {
	r := scenarioRegistry(t)
	gen := r.Generation()
	if _, err := r.ToggleFeature("nope"); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("toggle: expected ErrUnknownFeature, got %v", err)
	}
	if err := r.EnableFeature("nope"); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("enable: expected ErrUnknownFeature, got %v", err)
	}
	if _, err := r.Remove("nope"); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("remove: expected ErrUnknownFeature, got %v", err)
	}
	if r.Generation() != gen {
		t.Error("generation moved on failed operations")
	}
}

func TestRegistryGeneration(t *testing.T) {
	r := scenarioRegistry(t)
	gen := r.Generation()
	if _, err := r.ToggleFeature("G"); err != nil {
		t.Fatal(err)
	}
	if r.Generation() == gen {
		t.Error("toggle did not bump generation")
	}
	gen = r.Generation()
	if err := r.DisableFeature("G"); err != nil {
		t.Fatal(err)
	}
	if r.Generation() != gen {
		t.Error("disabling a disabled feature bumped generation")
	}
}

func TestRegistryEnabledFeaturesOrder(t *testing.T) {
	r := scenarioRegistry(t)
	if err := r.DisableFeature("L"); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range r.EnabledFeatures() {
		names = append(names, f.Name())
	}
	if strings.Join(names, ",") != "G,S" {
		t.Errorf("got %v", names)
	}
	if r.EnabledCount() != 2 || r.TotalCount() != 3 {
		t.Errorf("counts: enabled=%d total=%d", r.EnabledCount(), r.TotalCount())
	}
	if strings.Join(r.FeatureNames(), ",") != "G,L,S" {
		t.Errorf("names: %v", r.FeatureNames())
	}
}

func TestRegistryLifecycle(t *testing.T) {
	a := newTestFeature("a")
	b := newTestFeature("b")
	r, err := NewBuilder().WithFeature(a).WithFeature(b).Build()
	if err != nil {
		t.Fatal(err)
	}
	ctx := NewContext(WGSL, nil, 64, 64)
	if err := r.InitAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.InitAll(ctx); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}

	if err := r.DisableFeature("b"); err != nil {
		t.Fatal(err)
	}
	r.PrepareFrame()
	r.ExecutePrePasses(nullEncoder{})
	r.ExecutePostPasses(nullEncoder{})
	if a.prepares != 1 || a.prePasses != 1 || a.postPasses != 1 {
		t.Errorf("enabled feature hooks: %d %d %d", a.prepares, a.prePasses, a.postPasses)
	}
	if b.prepares != 0 || b.prePasses != 0 || b.postPasses != 0 {
		t.Error("disabled feature hooks ran")
	}

	late := newTestFeature("late")
	if err := r.Register(late); err != nil {
		t.Fatal(err)
	}
	if late.inits != 1 {
		t.Error("late feature was not initialized")
	}

	removed, err := r.Remove("a")
	if err != nil {
		t.Fatal(err)
	}
	if removed != a || a.cleanups != 1 {
		t.Error("removed feature was not cleaned up")
	}

	r.CleanupAll()
	r.CleanupAll()
	if a.inits != 1 || a.cleanups != 1 || b.inits != 1 || b.cleanups != 1 || late.cleanups != 1 {
		t.Errorf("init/cleanup counts off: a=%d/%d b=%d/%d late=%d", a.inits, a.cleanups, b.inits, b.cleanups, late.cleanups)
	}
	if _, err := r.Compose(colorTemplate); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("expected ErrRegistryClosed, got %v", err)
	}
	if _, err := r.ToggleFeature("b"); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("expected ErrRegistryClosed, got %v", err)
	}
}

func TestRegistryInitFailureRollsBack(t *testing.T) {
	a := newTestFeature("a")
	b := newTestFeature("b")
	b.initErr = errors.New("no gpu")
	r, err := NewBuilder().WithFeature(a).WithFeature(b).Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.InitAll(NewContext(GLSL, nil, 1, 1)); err == nil {
		t.Fatal("expected init error")
	}
	if a.cleanups != 1 {
		t.Error("already initialized feature was not cleaned up")
	}
	if r.Initialized() {
		t.Error("registry reports initialized after failure")
	}
}

func TestRegistryExportedData(t *testing.T) {
	mat := newTestFeature("materials")
	mat.exports = map[string]any{"roughness": float32(0.5)}
	r, err := NewBuilder().WithFeature(mat).WithFeature(newTestFeature("plain")).Build()
	if err != nil {
		t.Fatal(err)
	}
	v, ok := r.ExportedData("materials", "roughness")
	if !ok || v.(float32) != 0.5 {
		t.Errorf("got %v %v", v, ok)
	}
	if _, ok := r.ExportedData("materials", "metallic"); ok {
		t.Error("unexpected export")
	}
	if _, ok := r.ExportedData("missing", "roughness"); ok {
		t.Error("unexpected export from missing feature")
	}
}

func TestRegistryInjectionsOrigin(t *testing.T) {
	r := scenarioRegistry(t)
	injs := r.Injections()
	if len(injs) != 2 || injs[0].Origin != "L" || injs[1].Origin != "S" {
		t.Errorf("got %v", injs)
	}
}

func TestRegistryMarkerNotFoundNamesFeature(t *testing.T) {
	r := scenarioRegistry(t)
	_, err := r.Compose("// INJECT_FRAGMENTMAIN\n")
	var me *MarkerError
	if !errors.As(err, &me) || me.Feature != "L" {
		t.Fatalf("expected MarkerError naming L, got %v", err)
	}
}

func TestRegistryDebugOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "composed.wgsl")
	r, err := NewBuilder().
		WithFeature(newTestFeature("L", NewInjection(FragmentColorCalculation, "x = lit(x);"))).
		DebugOutput(true).
		DebugOutputPath(path).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Compose(colorTemplate)
	if err != nil {
		t.Fatal(err)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != out {
		t.Error("debug artifact differs from composed source")
	}
}

func TestRegistryFingerprint(t *testing.T) {
	r := scenarioRegistry(t)
	fp := r.Fingerprint()
	if fp != r.Fingerprint() {
		t.Fatal("fingerprint not stable")
	}
	if _, err := r.ToggleFeature("L"); err != nil {
		t.Fatal(err)
	}
	if r.Fingerprint() == fp {
		t.Error("fingerprint unchanged after disabling a contributing feature")
	}
	if _, err := r.ToggleFeature("L"); err != nil {
		t.Fatal(err)
	}
	if r.Fingerprint() != fp {
		t.Error("fingerprint differs after returning to the same state")
	}
	if TemplateFingerprint(fp, "a") == TemplateFingerprint(fp, "b") {
		t.Error("template fingerprint ignores template text")
	}
}
