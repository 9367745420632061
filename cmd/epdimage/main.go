// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Binary epdimage displays an image file on a WeAct 2.13" e-paper panel.
package main

import (
	"flag"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/disintegration/imaging"
	"github.com/makeworld-the-better-one/dither"

	"github.com/goepaper/weact213/epdui"
	"github.com/goepaper/weact213/internal/config"
)

var (
	configPath = flag.String("config", "epd.yaml", "Path to the YAML config. Created with defaults on first run.")
	rotate     = flag.Float64("rotate", 0.0, "Image rotation in degrees.")
	useDither  = flag.Bool("dither", true, "Floyd-Steinberg dither instead of hard thresholding.")
	sleep      = flag.Bool("sleep", true, "Put the panel to sleep after displaying.")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] image.png", os.Args[0])
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	s, err := epdui.New(cfg.Screen())
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	img, err := loadImage(flag.Arg(0), s.Bounds())
	if err != nil {
		log.Fatal(err)
	}

	if *useDither {
		dith := dither.NewDitherer([]color.Color{color.White, color.Black})
		dith.Matrix = dither.FloydSteinberg
		dith.Serpentine = true
		if tmp := dith.DitherPaletted(img); tmp != nil {
			img = tmp
		}
	}

	log.Println("Displaying image")
	if err := s.DrawImage(img); err != nil {
		log.Fatal(err)
	}
	if *sleep {
		log.Println("Powering off")
		if err := s.Sleep(); err != nil {
			log.Fatal(err)
		}
	}
}

func loadImage(path string, bounds image.Rectangle) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	w, h := bounds.Dx(), bounds.Dy()
	rot := imaging.Rotate(img, *rotate, color.White)
	fit := imaging.Fit(rot, w, h, imaging.Lanczos)
	return imaging.PasteCenter(imaging.New(w, h, color.White), fit), nil
}
