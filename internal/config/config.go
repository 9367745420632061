// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the shared YAML configuration for the display tools:
// panel wiring, SPI settings, and presentation orientation.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"periph.io/x/periph/conn/physic"

	"github.com/goepaper/weact213/devices/ssd1680"
	"github.com/goepaper/weact213/epdui"
)

// Config is the on-disk tool configuration.
type Config struct {
	// DC is the data/command pin name, valid for gpioreg.ByName.
	DC string `yaml:"dc"`
	// CS is the chip select pin name.
	CS string `yaml:"cs"`
	// RST is the reset pin name.
	RST string `yaml:"rst"`
	// Busy is the busy pin name.
	Busy string `yaml:"busy"`

	// SPIPort is a spireg port name; empty selects the first available.
	SPIPort string `yaml:"spi_port"`
	// SPISpeedHz is the SPI clock in hertz. 0 means the driver default.
	SPISpeedHz int64 `yaml:"spi_speed_hz"`

	// Landscape rotates the render surface to 250x122.
	Landscape bool `yaml:"landscape"`
}

// Default returns the standard WeAct 2.13" wiring in landscape, which is
// how the module is usually mounted.
func Default() *Config {
	return &Config{
		DC:         ssd1680.DefaultPins.DC,
		CS:         ssd1680.DefaultPins.CS,
		RST:        ssd1680.DefaultPins.RST,
		Busy:       ssd1680.DefaultPins.Busy,
		SPISpeedHz: 4_000_000,
		Landscape:  true,
	}
}

// Normalize fills missing pin names so partially written configs still
// address the default wiring.
func (c *Config) Normalize() {
	if c.DC == "" {
		c.DC = ssd1680.DefaultPins.DC
	}
	if c.CS == "" {
		c.CS = ssd1680.DefaultPins.CS
	}
	if c.RST == "" {
		c.RST = ssd1680.DefaultPins.RST
	}
	if c.Busy == "" {
		c.Busy = ssd1680.DefaultPins.Busy
	}
	if c.SPISpeedHz < 0 {
		c.SPISpeedHz = 0
	}
}

// Screen converts the configuration to the adapter's form.
func (c *Config) Screen() epdui.Config {
	return epdui.Config{
		Pins: ssd1680.Pins{
			DC:   c.DC,
			CS:   c.CS,
			RST:  c.RST,
			Busy: c.Busy,
		},
		SPIPort:   c.SPIPort,
		Speed:     physic.Frequency(c.SPISpeedHz) * physic.Hertz,
		Landscape: c.Landscape,
	}
}

// Load reads the YAML config at path. On first run, when the file does not
// exist, the default config is written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically: temp file in the same directory,
// chmod 0600, rename over the target.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
