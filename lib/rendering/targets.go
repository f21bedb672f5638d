package rendering

import (
	"fmt"

	"github.com/fosdem/lumen/lib/features"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Target is an offscreen render target: one texture plus the framebuffer
// that renders into it.
type Target struct {
	label         string
	width, height int
	depth         bool

	TextureID     uint32
	FramebufferID uint32
}

func (t *Target) Label() string {
	return t.label
}

func (t *Target) Size() (width, height int) {
	return t.width, t.height
}

func (t *Target) Depth() bool {
	return t.depth
}

// TargetBytes counts the GPU memory allocated for render targets.
var TargetBytes uint64

// Device hands out GL render targets to features.
type Device struct{}

func (d *Device) CreateTarget(desc features.TargetDesc) (features.Target, error) {
	if desc.Width < 1 || desc.Height < 1 {
		return nil, fmt.Errorf("target %s has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	t := &Target{label: desc.Label, width: desc.Width, height: desc.Height, depth: desc.Depth}

	if desc.Depth {
		t.TextureID = SetupDepthTexture(desc.Width, desc.Height)
	} else {
		t.TextureID = SetupRGBATexture(desc.Width, desc.Height)
	}

	fb, err := UseTextureAsFramebuffer(t.TextureID, desc.Depth)
	if err != nil {
		gl.DeleteTextures(1, &t.TextureID)
		return nil, fmt.Errorf("target %s: %w", desc.Label, err)
	}
	t.FramebufferID = fb
	TargetBytes += uint64(desc.Width * desc.Height * 4)
	return t, nil
}

func (d *Device) DestroyTarget(ft features.Target) {
	t, ok := ft.(*Target)
	if !ok {
		return
	}
	gl.DeleteFramebuffers(1, &t.FramebufferID)
	gl.DeleteTextures(1, &t.TextureID)
	TargetBytes -= uint64(t.width * t.height * 4)
}

func SetupRGBATexture(width int, height int) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	borderColor := mgl32.Vec4{0, 0, 0, 0}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(width),
		int32(height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(nil),
	)
	return id
}

// SetupDepthTexture creates a depth texture that samples as 1.0 outside its
// bounds, so geometry outside the light frustum is lit.
func SetupDepthTexture(width int, height int) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	borderColor := mgl32.Vec4{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.DEPTH_COMPONENT32F,
		int32(width),
		int32(height),
		0,
		gl.DEPTH_COMPONENT,
		gl.FLOAT,
		gl.Ptr(nil),
	)
	return id
}

func UseTextureAsFramebuffer(textureID uint32, depth bool) (uint32, error) {
	framebufferID := uint32(0)
	gl.GenFramebuffers(1, &framebufferID)
	gl.BindFramebuffer(gl.FRAMEBUFFER, framebufferID)

	gl.BindTexture(gl.TEXTURE_2D, textureID)
	if depth {
		gl.FramebufferTexture(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, textureID, 0)
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	} else {
		gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, textureID, 0)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	var err error
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return framebufferID, nil
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		err = fmt.Errorf("framebuffer incomplete attachment")
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		err = fmt.Errorf("framebuffer incomplete: missing attachment")
	case gl.FRAMEBUFFER_UNSUPPORTED:
		err = fmt.Errorf("framebuffer unsupported")
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		err = fmt.Errorf("framebuffer incomplete multisample")
	default:
		err = fmt.Errorf("unknown framebuffer issue 0x%x", status)
	}
	gl.DeleteFramebuffers(1, &framebufferID)
	return 0, err
}
