// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Binary epdclock displays a clock, or a one-shot text banner, on a WeAct
// 2.13" e-paper panel.
package main

import (
	"flag"
	"image/color"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"

	"github.com/goepaper/weact213/epdui"
	"github.com/goepaper/weact213/internal/config"
)

var (
	configPath = flag.String("config", "epd.yaml", "Path to the YAML config. Created with defaults on first run.")
	format     = flag.String("format", "15:04", "time.Time format.")
	text       = flag.String("text", "", "Display this text once and exit instead of running the clock.")
	fontSize   = flag.Float64("size", 48, "Font size in points.")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	s, err := epdui.New(cfg.Screen())
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if *text != "" {
		if err := update(s, *text); err != nil {
			log.Fatal(err)
		}
		s.Sleep()
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := update(s, time.Now().Format(*format)); err != nil {
		log.Fatal(err)
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case sig := <-c:
			log.Printf("Got signal %q, quitting", sig.String())
			if err := s.Clear(); err != nil {
				log.Printf("Clearing: %v", err)
			}
			if err := s.Sleep(); err != nil {
				log.Printf("Sleeping: %v", err)
			}
			return
		case t := <-ticker.C:
			if err := update(s, t.Format(*format)); err != nil {
				log.Fatal(err)
			}
		}
	}
}

func update(s *epdui.Screen, text string) error {
	b := s.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	img := imaging.New(b.Dx(), b.Dy(), color.White)
	ctx := gg.NewContextForImage(img)
	ctx.SetFontFace(fontFace())
	ctx.SetRGB(0, 0, 0)
	ctx.DrawStringWrapped(text, w/2, h/2, 0.5, 0.5, w-8, 1.0, gg.AlignCenter)

	return s.DrawImage(ctx.Image())
}

func fontFace() font.Face {
	f, err := opentype.Parse(gomonobold.TTF)
	if err != nil {
		log.Fatal(err)
	}
	ff, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    *fontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		log.Fatal(err)
	}
	return ff
}
