// Package input drives the game client's controls through a
// microcontroller bridge on a serial port. The bridge presents itself to
// the machine as a plain USB mouse/keyboard, so the client cannot tell
// injected input from a human.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/tarm/serial"
)

// ErrTargetLost means the bridge stopped acknowledging commands. There is
// no way to recover input after this; the scan must abort.
var ErrTargetLost = errors.New("input: target lost")

// Adapter is the input collaborator the scanner depends on. Every command
// includes the configured settle delay so the UI has time to react before
// the next capture.
type Adapter interface {
	Click(pt image.Point) error
	Scroll(amount int) error
	KeyPress(key string) error
}

// SerialAdapter speaks the bridge's line protocol: one command per line,
// each answered with "received".
type SerialAdapter struct {
	port   *serial.Port
	settle time.Duration
}

// Open opens the serial port the bridge is attached to.
func Open(portName string, baud int, settle time.Duration) (*SerialAdapter, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:     portName,
		Baud:     baud,
		Parity:   serial.ParityNone,
		StopBits: serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("input: open %s: %w", portName, err)
	}
	return &SerialAdapter{port: port, settle: settle}, nil
}

func (a *SerialAdapter) Close() error { return a.port.Close() }

func (a *SerialAdapter) Click(pt image.Point) error {
	return a.send(fmt.Sprintf("click:%d,%d\n", pt.X, pt.Y))
}

func (a *SerialAdapter) Scroll(amount int) error {
	if amount >= 0 {
		return a.send(fmt.Sprintf("scroll_down:%d\n", amount))
	}
	return a.send(fmt.Sprintf("scroll_up:%d\n", -amount))
}

func (a *SerialAdapter) KeyPress(key string) error {
	return a.send(fmt.Sprintf("key:%s\n", key))
}

func (a *SerialAdapter) send(message string) error {
	if _, err := a.port.Write([]byte(message)); err != nil {
		return fmt.Errorf("%w: write: %v", ErrTargetLost, err)
	}
	if err := a.waitForAck(); err != nil {
		return err
	}
	time.Sleep(a.settle)
	return nil
}

// waitForAck reads until the bridge's newline-terminated response.
func (a *SerialAdapter) waitForAck() error {
	var response []byte
	buf := make([]byte, 128)
	for {
		n, err := a.port.Read(buf)
		if err != nil {
			return fmt.Errorf("%w: read: %v", ErrTargetLost, err)
		}
		response = append(response, buf[:n]...)
		if len(response) > 0 && response[len(response)-1] == '\n' {
			response = bytes.TrimSpace(response)
			if string(response) != "received" {
				return fmt.Errorf("%w: unexpected response %q", ErrTargetLost, response)
			}
			return nil
		}
	}
}
