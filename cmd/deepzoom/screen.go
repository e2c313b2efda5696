package main

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
)

var errNoTextureCreator = errors.New("deepzoom: draw context cannot create textures")

type textureDestroyer interface{ Destroy() }

// screen owns the window texture the frame is uploaded into.
type screen struct {
	texture any
	width   int
	height  int
}

// present uploads pix and draws it at the window origin. The texture is
// recreated when the window size changes.
func (s *screen) present(dc gpucontext.TextureDrawer, pix []byte, w, h int) error {
	if s.texture == nil || s.width != w || s.height != h {
		creator := dc.TextureCreator()
		if creator == nil {
			return errNoTextureCreator
		}
		// NewTextureFromRGBA waits for the GPU, so the old texture is idle
		// once it returns.
		tex, err := creator.NewTextureFromRGBA(w, h, pix)
		if err != nil {
			return fmt.Errorf("create texture: %w", err)
		}
		s.destroy()
		s.texture, s.width, s.height = tex, w, h
	} else if updater, ok := s.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(pix); err != nil {
			return fmt.Errorf("update texture: %w", err)
		}
	}

	tex, ok := s.texture.(gpucontext.Texture)
	if !ok {
		return fmt.Errorf("texture %T is not drawable", s.texture)
	}
	return dc.DrawTexture(tex, 0, 0)
}

func (s *screen) destroy() {
	if d, ok := s.texture.(textureDestroyer); ok {
		d.Destroy()
	}
	s.texture = nil
}
