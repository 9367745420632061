package ssd1680

import (
	"fmt"
	"io"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
)

// hardware owns the SPI connection and the control pins. The panel is
// transmit-only: nothing is ever read back over SPI, the only input is the
// busy line.
type hardware struct {
	// txLimit caps the size of a single SPI transfer. Linux spidev
	// defaults to 4096-byte transfers, so a full 4000-byte frame fits,
	// but we batch anyway to stay below the limit on any platform.
	txLimit int

	c conn.Conn

	// busy is high while the panel is physically refreshing.
	busy gpio.PinIO
	// cs is the chip select pin, asserted (low) per transfer.
	cs gpio.PinOut
	// dc selects command (low) or data (high) framing.
	dc gpio.PinOut
	// rst is the active-low hardware reset pin.
	rst gpio.PinOut
}

func (h *hardware) dataWriter() io.Writer {
	return &batchedWriter{&dataWriter{h}, h.txLimit}
}

func (h *hardware) commandWriter() io.Writer {
	return &commandWriter{h}
}

// dataWriter transmits a data payload: DC high, CS asserted for the
// duration of the transfer.
type dataWriter struct {
	*hardware
}

func (w *dataWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := w.dc.Out(gpio.High); err != nil {
		return 0, fmt.Errorf("%v.Out(%v) = %w", w.dc, gpio.High, err)
	}
	if err := w.cs.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("%v.Out(%v) = %w", w.cs, gpio.Low, err)
	}
	defer func() {
		if e := w.cs.Out(gpio.High); e != nil && err == nil {
			err = fmt.Errorf("%v.Out(%v) = %w", w.cs, gpio.High, e)
		}
	}()
	if len(p) > w.txLimit {
		p = p[:w.txLimit]
		if err := w.c.Tx(p, nil); err != nil {
			return 0, err
		}
		return len(p), io.ErrShortWrite
	}
	if err := w.c.Tx(p, nil); err != nil {
		return 0, err
	}
	return len(p), nil
}

// commandWriter transmits a command byte (DC low) followed by its payload
// (DC high). CS is released between the command and the payload.
type commandWriter struct {
	*hardware
}

func (w *commandWriter) writeCommand(cmd byte) (err error) {
	if err := w.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("%v.Out(%v) = %w", w.dc, gpio.Low, err)
	}
	if err := w.cs.Out(gpio.Low); err != nil {
		return fmt.Errorf("%v.Out(%v) = %w", w.cs, gpio.Low, err)
	}
	defer func() {
		if e := w.cs.Out(gpio.High); e != nil && err == nil {
			err = fmt.Errorf("%v.Out(%v) = %w", w.cs, gpio.High, e)
		}
	}()
	if err := w.c.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("sending command %#02x: %w", cmd, err)
	}
	return nil
}

func (w *commandWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	cmd, data := p[0], p[1:]
	if err := w.writeCommand(cmd); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 1, nil
	}
	n, err := w.dataWriter().Write(data)
	return 1 + n, err
}

// batchedWriter splits large payloads into dst-sized writes.
type batchedWriter struct {
	dst       io.Writer
	batchSize int
}

func (b *batchedWriter) Write(p []byte) (int, error) {
	var sent int
	for i := 0; i < len(p); i += b.batchSize {
		j := i + b.batchSize
		if j > len(p) {
			j = len(p)
		}
		n, err := b.dst.Write(p[i:j])
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}
