package features

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint digests everything composition depends on besides the template:
// the enabled features in order and every injection they currently supply.
// Equal fingerprints compose to identical output for the same template.
func (r *Registry) Fingerprint() uint64 {
	d := xxhash.New()
	for _, f := range r.EnabledFeatures() {
		_, _ = d.WriteString("F")
		_, _ = d.WriteString(f.Name())
		_, _ = d.Write([]byte{0})
		for _, inj := range f.ShaderInjections() {
			_, _ = d.WriteString(strconv.Itoa(int(inj.Point)))
			_, _ = d.WriteString(":")
			_, _ = d.WriteString(strconv.Itoa(inj.Priority))
			_, _ = d.WriteString(":")
			_, _ = d.WriteString(strconv.FormatUint(xxhash.Sum64String(inj.Code), 16))
			_, _ = d.Write([]byte{0})
		}
	}
	return d.Sum64()
}

// TemplateFingerprint combines a registry fingerprint with the template text.
func TemplateFingerprint(registry uint64, template string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strconv.FormatUint(registry, 16))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(template)
	return d.Sum64()
}
