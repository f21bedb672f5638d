package features

// Uniform is either a float vector/matrix or a sampled render target.
type Uniform struct {
	Name    string
	Values  []float32
	Texture Target
}

// Uniforms is a small ordered uniform block. Setting an existing name
// overwrites it in place so upload order stays stable across frames.
type Uniforms struct {
	entries []Uniform
	index   map[string]int
}

func NewUniforms() *Uniforms {
	return &Uniforms{index: make(map[string]int)}
}

func (u *Uniforms) Set(name string, values ...float32) {
	u.put(Uniform{Name: name, Values: append([]float32(nil), values...)})
}

func (u *Uniforms) SetTexture(name string, t Target) {
	u.put(Uniform{Name: name, Texture: t})
}

func (u *Uniforms) put(v Uniform) {
	if i, ok := u.index[v.Name]; ok {
		u.entries[i] = v
		return
	}
	u.index[v.Name] = len(u.entries)
	u.entries = append(u.entries, v)
}

func (u *Uniforms) Get(name string) (Uniform, bool) {
	i, ok := u.index[name]
	if !ok {
		return Uniform{}, false
	}
	return u.entries[i], true
}

func (u *Uniforms) Delete(name string) {
	i, ok := u.index[name]
	if !ok {
		return
	}
	u.entries = append(u.entries[:i], u.entries[i+1:]...)
	delete(u.index, name)
	for j := i; j < len(u.entries); j++ {
		u.index[u.entries[j].Name] = j
	}
}

// All returns the uniforms in insertion order.
func (u *Uniforms) All() []Uniform {
	return u.entries
}

func (u *Uniforms) Len() int {
	return len(u.entries)
}
