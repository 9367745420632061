package epdui

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goepaper/weact213/devices/ssd1680"
)

// fakePanel records pixel writes and the order of lifecycle calls.
type fakePanel struct {
	pixels map[image.Point]ssd1680.Color
	calls  []string
}

func newFakePanel() *fakePanel {
	return &fakePanel{pixels: map[image.Point]ssd1680.Color{}}
}

func (p *fakePanel) SetPixel(x, y int, c ssd1680.Color) {
	p.pixels[image.Pt(x, y)] = c
}

func (p *fakePanel) DisplayFrame() error {
	p.calls = append(p.calls, "DisplayFrame")
	return nil
}

func (p *fakePanel) ClearScreen() error {
	p.calls = append(p.calls, "ClearScreen")
	return nil
}

func (p *fakePanel) Sleep() error {
	p.calls = append(p.calls, "Sleep")
	return nil
}

func TestLumaThreshold(t *testing.T) {
	// Pure gray has luma equal to its component value, so 127/128 is the
	// exact threshold boundary.
	assert.Equal(t, ssd1680.Black, rgbToMono(127, 127, 127))
	assert.Equal(t, ssd1680.White, rgbToMono(128, 128, 128))
	assert.Equal(t, ssd1680.Black, rgbToMono(0, 0, 0))
	assert.Equal(t, ssd1680.White, rgbToMono(255, 255, 255))
	// Green carries most of the weight: pure green is white, pure red
	// and pure blue are black.
	assert.Equal(t, ssd1680.White, rgbToMono(0, 255, 0))
	assert.Equal(t, ssd1680.Black, rgbToMono(255, 0, 0))
	assert.Equal(t, ssd1680.Black, rgbToMono(0, 0, 255))
}

func TestPixelFormatDecode(t *testing.T) {
	tests := []struct {
		name    string
		f       PixelFormat
		p       []byte
		r, g, b uint8
	}{
		{"rgb565 red", RGB565, []byte{0x00, 0xF8}, 255, 0, 0},
		{"rgb565 green", RGB565, []byte{0xE0, 0x07}, 0, 255, 0},
		{"rgb565 blue", RGB565, []byte{0x1F, 0x00}, 0, 0, 255},
		{"rgb565 white", RGB565, []byte{0xFF, 0xFF}, 255, 255, 255},
		{"rgb888", RGB888, []byte{0x12, 0x34, 0x56}, 0x12, 0x34, 0x56},
		{"xrgb8888 ignores lead byte", XRGB8888, []byte{0xFF, 0x12, 0x34, 0x56}, 0x12, 0x34, 0x56},
		{"unknown reads grayscale", PixelFormat(99), []byte{0x80}, 0x80, 0x80, 0x80},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, g, b := tc.f.decodePixel(tc.p)
			assert.Equal(t, tc.r, r, "r")
			assert.Equal(t, tc.g, g, "g")
			assert.Equal(t, tc.b, b, "b")
		})
	}
}

func TestBytesPerPixelFallback(t *testing.T) {
	assert.Equal(t, 2, RGB565.bytesPerPixel())
	assert.Equal(t, 3, RGB888.bytesPerPixel())
	assert.Equal(t, 4, XRGB8888.bytesPerPixel())
	assert.Equal(t, 1, PixelFormat(99).bytesPerPixel())
}

func TestBounds(t *testing.T) {
	portrait := NewWithPanel(newFakePanel(), false)
	assert.Equal(t, image.Rect(0, 0, 122, 250), portrait.Bounds())

	landscape := NewWithPanel(newFakePanel(), true)
	assert.Equal(t, image.Rect(0, 0, 250, 122), landscape.Bounds())
}

func TestLandscapeMappingIsABijection(t *testing.T) {
	s := NewWithPanel(newFakePanel(), true)
	b := s.Bounds()

	seen := map[image.Point]image.Point{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hwX, hwY := s.toHardware(x, y)
			require.True(t, hwX >= 0 && hwX < ssd1680.Width, "(%d,%d) -> hwX %d", x, y, hwX)
			require.True(t, hwY >= 0 && hwY < ssd1680.Height, "(%d,%d) -> hwY %d", x, y, hwY)

			hw := image.Pt(hwX, hwY)
			if prev, dup := seen[hw]; dup {
				t.Fatalf("hardware pixel %v hit by both %v and (%d,%d)", hw, prev, x, y)
			}
			seen[hw] = image.Pt(x, y)

			backX, backY := s.fromHardware(hwX, hwY)
			require.Equal(t, x, backX)
			require.Equal(t, y, backY)
		}
	}
	assert.Len(t, seen, ssd1680.Width*ssd1680.Height)
}

func TestPortraitMappingIsIdentity(t *testing.T) {
	s := NewWithPanel(newFakePanel(), false)
	hwX, hwY := s.toHardware(17, 203)
	assert.Equal(t, 17, hwX)
	assert.Equal(t, 203, hwY)
}

func TestFlushWritesRotatedPixels(t *testing.T) {
	panel := newFakePanel()
	s := NewWithPanel(panel, true)

	// A 2x1 region at logical (10, 20): black then white, RGB888.
	area := image.Rect(10, 20, 12, 21)
	pixmap := []byte{
		0x00, 0x00, 0x00,
		0xFF, 0xFF, 0xFF,
	}
	require.NoError(t, s.Flush(area, pixmap, RGB888))

	// Logical (10, 20) lands at hardware (20, 239); (11, 20) at (20, 238).
	assert.Equal(t, ssd1680.Black, panel.pixels[image.Pt(20, 239)])
	assert.Equal(t, ssd1680.White, panel.pixels[image.Pt(20, 238)])
	assert.Len(t, panel.pixels, 2)
	assert.Equal(t, []string{"DisplayFrame"}, panel.calls)
}

func TestFlushRejectsShortPixmap(t *testing.T) {
	s := NewWithPanel(newFakePanel(), false)
	area := image.Rect(0, 0, 4, 4)
	err := s.Flush(area, make([]byte, 4*4*2-1), RGB565)
	assert.Error(t, err)
}

func TestFlushReadyFiresOnceBeforeRefresh(t *testing.T) {
	panel := newFakePanel()
	s := NewWithPanel(panel, false)
	s.SetFlushReady(func() {
		panel.calls = append(panel.calls, "flushReady")
	})

	area := image.Rect(0, 0, 1, 1)
	require.NoError(t, s.Flush(area, []byte{0x00, 0x00}, RGB565))
	assert.Equal(t, []string{"flushReady", "DisplayFrame"}, panel.calls)
}

func TestFlushWithoutCallback(t *testing.T) {
	s := NewWithPanel(newFakePanel(), false)
	area := image.Rect(0, 0, 1, 1)
	assert.NoError(t, s.Flush(area, []byte{0x00, 0x00}, RGB565))
}

func TestDrawImage(t *testing.T) {
	panel := newFakePanel()
	s := NewWithPanel(panel, true)

	img := image.NewRGBA(image.Rect(0, 0, 250, 122))
	for y := 0; y < 122; y++ {
		for x := 0; x < 250; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(0, 0, color.Black)

	require.NoError(t, s.DrawImage(img))
	assert.Len(t, panel.pixels, ssd1680.Width*ssd1680.Height)
	assert.Equal(t, ssd1680.Black, panel.pixels[image.Pt(0, 249)])
	assert.Equal(t, ssd1680.White, panel.pixels[image.Pt(0, 248)])
	assert.Equal(t, []string{"DisplayFrame"}, panel.calls)
}

func TestDrawImageClipsToBounds(t *testing.T) {
	panel := newFakePanel()
	s := NewWithPanel(panel, false)

	img := image.NewRGBA(image.Rect(0, 0, 500, 500))
	require.NoError(t, s.DrawImage(img))
	assert.Len(t, panel.pixels, ssd1680.Width*ssd1680.Height)
}

func TestDrawBuffersSized(t *testing.T) {
	s := NewWithPanel(newFakePanel(), false)
	b1, b2 := s.DrawBuffers()
	want := ssd1680.Width * ssd1680.Height * 4
	assert.Len(t, b1, want)
	assert.Len(t, b2, want)
}

func TestClearAndSleepDelegate(t *testing.T) {
	panel := newFakePanel()
	s := NewWithPanel(panel, false)
	require.NoError(t, s.Clear())
	require.NoError(t, s.Sleep())
	assert.Equal(t, []string{"ClearScreen", "Sleep"}, panel.calls)
}

type closablePanel struct {
	*fakePanel
	closed bool
	err    error
}

func (p *closablePanel) Close() error {
	p.closed = true
	return p.err
}

func TestClose(t *testing.T) {
	// Panels without Close are a no-op.
	assert.NoError(t, NewWithPanel(newFakePanel(), false).Close())

	p := &closablePanel{fakePanel: newFakePanel()}
	require.NoError(t, NewWithPanel(p, false).Close())
	assert.True(t, p.closed)

	p = &closablePanel{fakePanel: newFakePanel(), err: fmt.Errorf("spi gone")}
	assert.Error(t, NewWithPanel(p, false).Close())
}
