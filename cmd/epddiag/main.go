// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Binary epddiag exercises a WeAct 2.13" panel with test patterns, using the
// driver directly in panel-native portrait coordinates. Useful for checking
// wiring and panel health: every pattern should render with sharp edges and
// no ghosting.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/goepaper/weact213/devices/ssd1680"
	"github.com/goepaper/weact213/internal/config"
)

var (
	configPath = flag.String("config", "epd.yaml", "Path to the YAML config. Created with defaults on first run.")
	pause      = flag.Duration("pause", 3*time.Second, "Pause between patterns.")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	sc := cfg.Screen()
	d, err := ssd1680.New(sc.Pins, &ssd1680.Opts{SPIPort: sc.SPIPort, Speed: sc.Speed})
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	log.Println("Clearing")
	if err := d.ClearScreen(); err != nil {
		log.Fatal(err)
	}
	time.Sleep(*pause)

	patterns := []struct {
		name string
		draw func(*ssd1680.Dev)
	}{
		{"corner squares", cornerSquares},
		{"border outline", borderOutline},
		{"rectangles", rectangles},
		{"checkerboard", checkerboard},
	}
	for _, p := range patterns {
		log.Printf("Pattern: %s", p.name)
		d.Framebuffer().Reset()
		p.draw(d)
		if err := d.DisplayFrame(); err != nil {
			log.Fatal(err)
		}
		time.Sleep(*pause)
	}

	log.Println("Clearing")
	if err := d.ClearScreen(); err != nil {
		log.Fatal(err)
	}
	log.Println("Powering off")
	if err := d.Sleep(); err != nil {
		log.Fatal(err)
	}
}

// cornerSquares draws a 10x10 filled square in each corner. If any square is
// missing or displaced, the RAM window or data entry mode is wrong.
func cornerSquares(d *ssd1680.Dev) {
	const sz = 10
	d.DrawRect(0, 0, sz-1, sz-1, true)
	d.DrawRect(ssd1680.Width-sz, 0, ssd1680.Width-1, sz-1, true)
	d.DrawRect(0, ssd1680.Height-sz, sz-1, ssd1680.Height-1, true)
	d.DrawRect(ssd1680.Width-sz, ssd1680.Height-sz, ssd1680.Width-1, ssd1680.Height-1, true)
}

// borderOutline draws a 1px frame on the outermost pixels. Clipped edges
// point at an off-by-one in the gate or source configuration.
func borderOutline(d *ssd1680.Dev) {
	d.DrawRect(0, 0, ssd1680.Width-1, ssd1680.Height-1, false)
}

func rectangles(d *ssd1680.Dev) {
	d.DrawRect(10, 10, 60, 60, false)
	d.DrawRect(30, 80, 90, 140, true)
	d.DrawRect(20, 160, 100, 230, false)
}

// checkerboard alternates 8x8 tiles, aligning tile edges with framebuffer
// byte boundaries.
func checkerboard(d *ssd1680.Dev) {
	const tile = 8
	for y := 0; y < ssd1680.Height; y++ {
		for x := 0; x < ssd1680.Width; x++ {
			if (x/tile+y/tile)%2 == 0 {
				d.SetPixel(x, y, ssd1680.Black)
			}
		}
	}
}
