//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"ghanima/role"
)

var (
	colorMaster = color.RGBA{G: 0x20}
	colorSlave  = color.RGBA{B: 0x20}
	colorError  = color.RGBA{R: 0x40}
)

// errorFlashTicks is how long the LED stays red after link errors
const errorFlashTicks = 200

// roleLED shows the current role on a WS2812 pixel and flashes red when
// the receiver dropped frames
type roleLED struct {
	dev        ws2812.Device
	role       role.Role
	errorUntil uint32
	flashing   bool
	buf        [1]color.RGBA
}

func newRoleLED(pin machine.Pin) *roleLED {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l := &roleLED{dev: ws2812.New(pin), role: role.Slave}
	l.write(colorSlave)
	return l
}

func (l *roleLED) Show(r role.Role) {
	l.role = r
	if !l.flashing {
		l.write(l.roleColor())
	}
}

// Error turns the LED red until now+errorFlashTicks
func (l *roleLED) Error(now uint32) {
	l.errorUntil = now + errorFlashTicks
	l.flashing = true
	l.write(colorError)
}

// Update restores the role color once an error flash expired
func (l *roleLED) Update(now uint32) {
	if l.flashing && int32(now-l.errorUntil) >= 0 {
		l.flashing = false
		l.write(l.roleColor())
	}
}

func (l *roleLED) roleColor() color.RGBA {
	if l.role == role.Master {
		return colorMaster
	}
	return colorSlave
}

func (l *roleLED) write(c color.RGBA) {
	l.buf[0] = c
	l.dev.WriteColors(l.buf[:])
}
