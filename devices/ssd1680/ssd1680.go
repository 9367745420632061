// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ssd1680 drives a WeAct Studio 2.13" monochrome e-paper panel
// (SSD1680 controller, 122x250 pixels) over 4-wire SPI.
//
// The driver owns an in-memory framebuffer in the panel's RAM layout.
// Drawing operations mutate only the framebuffer; DisplayFrame uploads it
// and triggers a full refresh, which blocks for the 1-3 seconds the panel
// takes to physically update.
package ssd1680

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"golang.org/x/image/draw"
	"periph.io/x/periph/conn/display"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	// Width is the panel width in pixels, portrait.
	Width = 122
	// Height is the panel height in pixels, portrait.
	Height = 250
	// WidthBytes is the framebuffer row stride: 122/8 rounded up to a
	// whole byte. The panel RAM is addressed in bytes, so every row
	// occupies 16 bytes even though only 15.25 carry pixels.
	WidthBytes = (Width + 7) / 8
	// BufSize is the full framebuffer size in bytes.
	BufSize = WidthBytes * Height
)

// DisplayBounds covers the full panel in hardware (portrait) coordinates.
var DisplayBounds = image.Rect(0, 0, Width, Height)

// Pins names the GPIO control lines. SCK and MOSI are owned by the SPI port
// itself and are selected by Opts.SPIPort.
//
// Defaults match the WeAct 2.13" module wiring:
//
//	DC   - Data/Cmd - GPIO9
//	CS   - Select   - GPIO10
//	RST  - Reset    - GPIO4
//	Busy - Busy     - GPIO18
type Pins struct {
	// DC pin name, valid for gpioreg.ByName.
	DC string
	// CS pin name.
	CS string
	// RST pin name.
	RST string
	// Busy pin name.
	Busy string
}

var DefaultPins = Pins{
	DC:   "GPIO9",
	CS:   "GPIO10",
	RST:  "GPIO4",
	Busy: "GPIO18",
}

// Opts holds the bus configuration.
type Opts struct {
	// SPIPort is a spireg name; empty selects the first available port.
	SPIPort string
	// Speed is the SPI clock. Defaults to 4MHz, the reference speed for
	// this module. The SSD1680 tops out around 20MHz for writes.
	Speed physic.Frequency
}

const (
	defaultSpeed = 4 * physic.MegaHertz

	// The panel is allowed a few seconds to finish a refresh before
	// waitUntilIdle gives up and proceeds.
	defaultBusyTimeout  = 5 * time.Second
	defaultPollInterval = 10 * time.Millisecond
)

// Dev is an open handle to the panel.
//
// Dev is not safe for concurrent use; callers must serialize all drawing
// and refresh operations.
type Dev struct {
	hw     *hardware
	buffer *Buffer
	port   spi.PortCloser
	asleep bool

	busyTimeout  time.Duration
	pollInterval time.Duration
}

// New opens the SPI port and control pins, allocates the framebuffer, and
// runs the panel bring-up sequence. On success the panel is awake with its
// RAM address windows configured; the screen content is untouched until the
// first ClearScreen or DisplayFrame.
func New(p Pins, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	speed := opts.Speed
	if speed == 0 {
		speed = defaultSpeed
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init() = %w", err)
	}

	dc := gpioreg.ByName(p.DC)
	if dc == nil {
		return nil, fmt.Errorf("invalid dc pin %q", p.DC)
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("dc.Out(%v) = %w", gpio.Low, err)
	}

	cs := gpioreg.ByName(p.CS)
	if cs == nil {
		return nil, fmt.Errorf("invalid cs pin %q", p.CS)
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("cs.Out(%v) = %w", gpio.High, err)
	}

	rst := gpioreg.ByName(p.RST)
	if rst == nil {
		return nil, fmt.Errorf("invalid rst pin %q", p.RST)
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("rst.Out(%v) = %w", gpio.High, err)
	}

	busy := gpioreg.ByName(p.Busy)
	if busy == nil {
		return nil, fmt.Errorf("invalid busy pin %q", p.Busy)
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("busy.In(%v, %v) = %w", gpio.PullUp, gpio.NoEdge, err)
	}

	port, err := spireg.Open(opts.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("spireg.Open(%q) = _, %w", opts.SPIPort, err)
	}
	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		connerr := fmt.Errorf("port.Connect(%v, %v, 8) = %w", speed, spi.Mode0, err)
		if err := port.Close(); err != nil {
			return nil, fmt.Errorf("port.Close() = %w while handling %q", err, connerr)
		}
		return nil, connerr
	}

	d := &Dev{
		hw: &hardware{
			txLimit: 2048,
			c:       c,
			dc:      dc,
			cs:      cs,
			rst:     rst,
			busy:    busy,
		},
		buffer:       NewBuffer(DisplayBounds),
		port:         port,
		busyTimeout:  defaultBusyTimeout,
		pollInterval: defaultPollInterval,
	}
	if err := d.Init(); err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the SPI port. The control pins are left as-is.
func (d *Dev) Close() error {
	if d.port == nil {
		return nil
	}
	return d.port.Close()
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("ssd1680.Dev{%dx%d}", Width, Height)
}

// Reset performs the vendor-mandated hardware reset pulse. It can be used
// together with Init to awaken the panel after Sleep.
func (d *Dev) Reset() error {
	if err := d.hw.rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	if err := d.hw.rst.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	if err := d.hw.rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return nil
}

func (d *Dev) sendCommand(cmd command, data ...byte) error {
	_, err := d.hw.commandWriter().Write(append([]byte{byte(cmd)}, data...))
	return err
}

// waitUntilIdle polls the busy line until the panel reports ready. If the
// line stays busy past the timeout, a warning is logged and control returns
// anyway; the panel may still be mid-refresh at that point.
func (d *Dev) waitUntilIdle() {
	start := time.Now()
	for d.hw.busy.Read() == gpio.High {
		if time.Since(start) > d.busyTimeout {
			log.Printf("ssd1680: busy timeout after %v, continuing", d.busyTimeout)
			return
		}
		time.Sleep(d.pollInterval)
	}
}

// Init resets the panel and replays the bring-up sequence. It must be called
// after Sleep before any further refresh. New calls it once.
//
// The register writes below are fixed by the controller; the built-in
// waveform table is used, no LUT is uploaded.
func (d *Dev) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}
	d.waitUntilIdle()

	if err := d.sendCommand(swReset); err != nil {
		return err
	}
	d.waitUntilIdle()

	// Gate line count = Height-1, little-endian, normal scan direction.
	if err := d.sendCommand(driverOutputControl,
		byte((Height-1)&0xFF), byte((Height-1)>>8), 0x00); err != nil {
		return err
	}
	// Increment X and Y, advance in X direction.
	if err := d.sendCommand(dataEntryMode, 0x03); err != nil {
		return err
	}
	// X window in bytes: 0..WidthBytes-1.
	if err := d.sendCommand(setRAMXStartEnd, 0x00, WidthBytes-1); err != nil {
		return err
	}
	// Y window in gate lines: 0..Height-1, little-endian.
	if err := d.sendCommand(setRAMYStartEnd,
		0x00, 0x00, byte((Height-1)&0xFF), byte((Height-1)>>8)); err != nil {
		return err
	}
	// Border follows the LUT.
	if err := d.sendCommand(borderWaveformControl, 0x05); err != nil {
		return err
	}
	if err := d.sendCommand(displayUpdateControl1, 0x00, 0x80); err != nil {
		return err
	}
	// Internal temperature sensor.
	if err := d.sendCommand(tempSensorControl, 0x80); err != nil {
		return err
	}

	d.asleep = false
	return nil
}

// setCursor rewinds the RAM address counters to (0, 0) so the next RAM
// write starts at the top-left corner.
func (d *Dev) setCursor() error {
	if err := d.sendCommand(setRAMXAddressCounter, 0x00); err != nil {
		return err
	}
	return d.sendCommand(setRAMYAddressCounter, 0x00, 0x00)
}

// turnOnDisplay triggers a full refresh and blocks until the panel reports
// idle (or the busy timeout elapses).
func (d *Dev) turnOnDisplay() error {
	if err := d.sendCommand(displayUpdateControl2, 0xF7); err != nil {
		return err
	}
	if err := d.sendCommand(masterActivation); err != nil {
		return err
	}
	d.waitUntilIdle()
	return nil
}

// SetPixel sets a single framebuffer pixel. Coordinates outside the panel
// are ignored. No transport I/O happens until DisplayFrame.
func (d *Dev) SetPixel(x, y int, c Color) {
	d.buffer.SetPixel(x, y, c)
}

// DrawRect draws a rectangle in black into the framebuffer, with corners
// (x0,y0) and (x1,y1) in either order. A filled rectangle blackens every
// pixel in the box; an outline touches only the perimeter and leaves the
// interior alone, so callers wanting a clean box must clear first.
func (d *Dev) DrawRect(x0, y0, x1, y1 int, filled bool) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if filled {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				d.buffer.SetPixel(x, y, Black)
			}
		}
		return
	}
	for x := x0; x <= x1; x++ {
		d.buffer.SetPixel(x, y0, Black)
		d.buffer.SetPixel(x, y1, Black)
	}
	for y := y0; y <= y1; y++ {
		d.buffer.SetPixel(x0, y, Black)
		d.buffer.SetPixel(x1, y, Black)
	}
}

// Framebuffer exposes the in-memory frame for direct composition with
// image/draw. The returned Buffer is owned by the device.
func (d *Dev) Framebuffer() *Buffer {
	return d.buffer
}

// ClearScreen whitens the framebuffer and both controller RAM planes, then
// refreshes. The red plane is never drawn to by this driver, but stale
// content in it bleeds into refreshes, so it is cleared along with the
// black/white plane.
func (d *Dev) ClearScreen() error {
	if d.asleep {
		return fmt.Errorf("ssd1680: device is asleep, Init it first")
	}
	d.buffer.Reset()

	if err := d.setCursor(); err != nil {
		return err
	}
	if err := d.sendCommand(writeRAMBW, d.buffer.Pix...); err != nil {
		return err
	}
	if err := d.setCursor(); err != nil {
		return err
	}
	if err := d.sendCommand(writeRAMRed, d.buffer.Pix...); err != nil {
		return err
	}
	return d.turnOnDisplay()
}

// DisplayFrame uploads the framebuffer to the black/white RAM plane and
// refreshes the panel. It blocks for the duration of the physical refresh,
// typically 1-3 seconds.
func (d *Dev) DisplayFrame() error {
	if d.asleep {
		return fmt.Errorf("ssd1680: device is asleep, Init it first")
	}
	if err := d.setCursor(); err != nil {
		return err
	}
	if err := d.sendCommand(writeRAMBW, d.buffer.Pix...); err != nil {
		return err
	}
	return d.turnOnDisplay()
}

// Sleep puts the controller into deep sleep with RAM preserved. The device
// rejects further refreshes until Init is called again; there is no lighter
// wake path.
func (d *Dev) Sleep() error {
	if err := d.sendCommand(deepSleepMode, 0x01); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	d.asleep = true
	return nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return Model
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return DisplayBounds
}

// Draw implements display.Drawer: it composites src into the framebuffer
// through the two-color model and refreshes the panel.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	if d.asleep {
		return fmt.Errorf("ssd1680: device is asleep, Init it first")
	}
	draw.Draw(d.buffer, dstRect.Intersect(DisplayBounds), src, sp, draw.Src)
	return d.DisplayFrame()
}

// Halt implements conn.Resource by putting the panel to sleep.
func (d *Dev) Halt() error {
	return d.Sleep()
}

var _ display.Drawer = &Dev{}
