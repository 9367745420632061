package ssd1680

import (
	"bytes"
	"image"
	"image/color"
)

var (
	White = Color{0}
	Black = Color{1}

	Model = color.ModelFunc(model)

	palette = color.Palette{White, Black}
)

// Color is a display color. The panel knows exactly two.
type Color struct {
	// 0 white, 1 black
	C uint8
}

func (c Color) RGBA() (r, g, b, a uint32) {
	if c.C == 0 {
		return 0xffff, 0xffff, 0xffff, 0xffff
	}
	return 0, 0, 0, 0xffff
}

func model(c color.Color) color.Color {
	return palette.Convert(c)
}

// Buffer is a 1-bit-per-pixel framebuffer in the panel's RAM layout: rows of
// Stride bytes, most significant bit leftmost, bit value 1 white and 0 black.
// Rows are padded up to a whole byte, so for a 122px row the last 6 bits of
// byte 15 are never shown.
type Buffer struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewBuffer returns an all-white Buffer covering r.
func NewBuffer(r image.Rectangle) *Buffer {
	stride := r.Dx() / 8
	if r.Dx()%8 != 0 {
		stride++
	}
	return &Buffer{
		Pix:    bytes.Repeat([]byte{0xff}, stride*r.Dy()),
		Stride: stride,
		Rect:   r,
	}
}

// Reset fills the buffer with white.
func (b *Buffer) Reset() {
	for i := range b.Pix {
		b.Pix[i] = 0xff
	}
}

func (b *Buffer) ColorModel() color.Model {
	return Model
}

func (b *Buffer) Bounds() image.Rectangle {
	return b.Rect
}

func (b *Buffer) At(x, y int) color.Color {
	return b.Pixel(x, y)
}

// Pixel returns the color at (x, y). Out-of-bounds reads return White.
func (b *Buffer) Pixel(x, y int) Color {
	if !(image.Point{x, y}.In(b.Rect)) {
		return White
	}
	px := (y-b.Rect.Min.Y)*b.Stride + (x-b.Rect.Min.X)/8
	bit := byte(0x80 >> (uint(x-b.Rect.Min.X) % 8))
	if b.Pix[px]&bit != 0 {
		return White
	}
	return Black
}

// Set implements draw.Image. Out-of-bounds writes are ignored.
func (b *Buffer) Set(x, y int, c color.Color) {
	if cc, ok := c.(Color); ok {
		b.SetPixel(x, y, cc)
		return
	}
	b.SetPixel(x, y, palette.Convert(c).(Color))
}

// SetPixel sets (x, y) without a color model conversion.
func (b *Buffer) SetPixel(x, y int, c Color) {
	if !(image.Point{x, y}.In(b.Rect)) {
		return
	}
	px := (y-b.Rect.Min.Y)*b.Stride + (x-b.Rect.Min.X)/8
	bit := byte(0x80 >> (uint(x-b.Rect.Min.X) % 8))
	if c.C == 0 {
		b.Pix[px] |= bit
	} else {
		b.Pix[px] &^= bit
	}
}
