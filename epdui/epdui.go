// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package epdui bridges a retained-mode render library to the ssd1680 panel
// driver. It reduces the library's color output to the panel's two colors,
// applies the optional landscape rotation, and relays repaints into the
// driver's blocking refresh cycle.
//
// Two entry points are provided. Flush takes a dirty rectangle and a raw
// packed-pixel buffer, mirroring the flush callback contract of widget
// toolkits that render into their own color buffers. DrawImage takes any
// image.Image and is the natural path for fogleman/gg style renderers.
package epdui

import (
	"fmt"
	"image"

	"periph.io/x/periph/conn/physic"

	"github.com/goepaper/weact213/devices/ssd1680"
)

// PixelFormat describes the packed encoding of a Flush pixel buffer.
type PixelFormat int

const (
	// RGB565 is 2 bytes per pixel, little-endian, 5-6-5 bit packing.
	RGB565 PixelFormat = iota
	// RGB888 is 3 bytes per pixel: R, G, B.
	RGB888
	// XRGB8888 is 4 bytes per pixel with the leading byte ignored.
	XRGB8888
)

func (f PixelFormat) bytesPerPixel() int {
	switch f {
	case RGB565:
		return 2
	case RGB888:
		return 3
	case XRGB8888:
		return 4
	}
	// Unknown encodings are read one byte per pixel as grayscale. Crude,
	// but it degrades to something visible instead of failing.
	return 1
}

// decodePixel extracts 8-bit RGB components from the first pixel in p.
func (f PixelFormat) decodePixel(p []byte) (r, g, b uint8) {
	switch f {
	case RGB565:
		v := uint16(p[1])<<8 | uint16(p[0])
		r = uint8((v >> 11 & 0x1F) * 255 / 31)
		g = uint8((v >> 5 & 0x3F) * 255 / 63)
		b = uint8((v & 0x1F) * 255 / 31)
	case RGB888:
		r, g, b = p[0], p[1], p[2]
	case XRGB8888:
		r, g, b = p[1], p[2], p[3]
	default:
		r, g, b = p[0], p[0], p[0]
	}
	return
}

// rgbToMono thresholds a color against perceptual brightness. The integer
// weights approximate the 0.30/0.59/0.11 luma coefficients; brightness
// below 128 is black.
func rgbToMono(r, g, b uint8) ssd1680.Color {
	luma := (int(r)*30 + int(g)*59 + int(b)*11) / 100
	if luma < 128 {
		return ssd1680.Black
	}
	return ssd1680.White
}

// Panel is the driver surface the adapter needs. *ssd1680.Dev satisfies it.
type Panel interface {
	SetPixel(x, y int, c ssd1680.Color)
	DisplayFrame() error
	ClearScreen() error
	Sleep() error
}

// Config describes a screen: the panel wiring plus the presentation
// orientation. Landscape rotates the logical surface 90 degrees so callers
// render 250x122 instead of the panel-native 122x250.
type Config struct {
	Pins    ssd1680.Pins
	SPIPort string
	Speed   physic.Frequency

	Landscape bool
}

// DefaultConfig returns the standard WeAct 2.13" wiring in portrait.
func DefaultConfig() Config {
	return Config{
		Pins:  ssd1680.DefaultPins,
		Speed: 4 * physic.MegaHertz,
	}
}

// Screen is one display instance. It owns the panel handle and the scratch
// buffers handed to the render library; nothing in this package is global,
// so multiple screens (or tests) can coexist.
//
// Screen is not safe for concurrent use.
type Screen struct {
	panel      Panel
	landscape  bool
	flushReady func()

	// Full-frame scratch buffers for the render library, sized for a
	// 32bpp single-pass render. The library draws whole frames; there is
	// no tiling.
	buf1, buf2 []byte
}

// New opens the panel described by cfg, clears it, and returns a Screen
// ready for rendering.
func New(cfg Config) (*Screen, error) {
	dev, err := ssd1680.New(cfg.Pins, &ssd1680.Opts{SPIPort: cfg.SPIPort, Speed: cfg.Speed})
	if err != nil {
		return nil, fmt.Errorf("epdui: opening panel: %w", err)
	}
	if err := dev.ClearScreen(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("epdui: initial clear: %w", err)
	}
	return NewWithPanel(dev, cfg.Landscape), nil
}

// NewWithPanel wraps an already-initialized panel.
func NewWithPanel(p Panel, landscape bool) *Screen {
	n := ssd1680.Width * ssd1680.Height * 4
	return &Screen{
		panel:     p,
		landscape: landscape,
		buf1:      make([]byte, n),
		buf2:      make([]byte, n),
	}
}

// Bounds is the logical render surface: 250x122 in landscape, 122x250
// otherwise.
func (s *Screen) Bounds() image.Rectangle {
	if s.landscape {
		return image.Rect(0, 0, ssd1680.Height, ssd1680.Width)
	}
	return ssd1680.DisplayBounds
}

// DrawBuffers returns the two full-frame scratch buffers reserved for the
// render library's own pixel format.
func (s *Screen) DrawBuffers() ([]byte, []byte) {
	return s.buf1, s.buf2
}

// SetFlushReady registers the render library's flush-complete callback. It
// is invoked by Flush after the pixels have been consumed but before the
// blocking panel refresh, so the library may start composing the next frame
// while the panel is still physically updating.
func (s *Screen) SetFlushReady(fn func()) {
	s.flushReady = fn
}

// toHardware maps a logical coordinate to a panel coordinate. In landscape
// this is a 90 degree rotation; the framebuffer itself has no notion of
// orientation, so the remap happens per pixel at flush time.
func (s *Screen) toHardware(x, y int) (int, int) {
	if s.landscape {
		return y, (ssd1680.Height - 1) - x
	}
	return x, y
}

// fromHardware is the inverse of toHardware.
func (s *Screen) fromHardware(hwX, hwY int) (int, int) {
	if s.landscape {
		return (ssd1680.Height - 1) - hwY, hwX
	}
	return hwX, hwY
}

// Flush consumes a rendered region and refreshes the panel.
//
// pixmap must cover exactly area, row-major with no padding between rows,
// in the given format. Every pixel is thresholded to black or white and
// written into the driver framebuffer at its (possibly rotated) hardware
// position. The registered flush-ready callback fires exactly once, before
// the refresh; the refresh itself then blocks the caller for the panel's
// 1-3 second update window.
func (s *Screen) Flush(area image.Rectangle, pixmap []byte, f PixelFormat) error {
	bpp := f.bytesPerPixel()
	w, h := area.Dx(), area.Dy()
	if len(pixmap) < w*h*bpp {
		return fmt.Errorf("epdui: pixmap too short: %d bytes for %dx%d at %d bpp", len(pixmap), w, h, bpp)
	}

	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := f.decodePixel(pixmap[i*bpp:])
			hwX, hwY := s.toHardware(area.Min.X+x, area.Min.Y+y)
			s.panel.SetPixel(hwX, hwY, rgbToMono(r, g, b))
			i++
		}
	}

	if s.flushReady != nil {
		s.flushReady()
	}
	return s.panel.DisplayFrame()
}

// DrawImage thresholds img onto the panel and refreshes. img is read in
// logical coordinates; pixels outside Bounds are ignored.
func (s *Screen) DrawImage(img image.Image) error {
	b := img.Bounds().Intersect(s.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, b8, _ := img.At(x, y).RGBA()
			hwX, hwY := s.toHardware(x, y)
			s.panel.SetPixel(hwX, hwY, rgbToMono(uint8(r>>8), uint8(g>>8), uint8(b8>>8)))
		}
	}
	return s.panel.DisplayFrame()
}

// Clear whitens the panel.
func (s *Screen) Clear() error {
	return s.panel.ClearScreen()
}

// Sleep puts the panel into deep sleep.
func (s *Screen) Sleep() error {
	return s.panel.Sleep()
}

// Close releases the panel transport if the panel supports it.
func (s *Screen) Close() error {
	if c, ok := s.panel.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
