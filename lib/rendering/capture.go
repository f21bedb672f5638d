package rendering

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// ReadPixels copies the default framebuffer into an image. GL rows run
// bottom-up, so the result is flipped to image order.
func ReadPixels(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if width < 1 || height < 1 {
		return img
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	flipRows(img.Pix, img.Stride)
	return img
}

func flipRows(pix []byte, stride int) {
	row := make([]byte, stride)
	for top, bottom := 0, len(pix)-stride; top < bottom; top, bottom = top+stride, bottom-stride {
		copy(row, pix[top:top+stride])
		copy(pix[top:top+stride], pix[bottom:bottom+stride])
		copy(pix[bottom:bottom+stride], row)
	}
}
