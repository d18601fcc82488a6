//go:build !linux

package hardware

import "errors"

var errNoCdev = errors.New("gpio character device is only available on linux")

// Cdev is unavailable off linux; Initialize always fails.
type Cdev struct{}

func NewCdev(chip string) *Cdev { return &Cdev{} }

func (c *Cdev) Initialize() error                 { return errNoCdev }
func (c *Cdev) SetMode(id PinID, mode Mode) error { return errNoCdev }
func (c *Cdev) SetPull(id PinID, pull Pull) error { return errNoCdev }
func (c *Cdev) Write(id PinID, high bool) error   { return errNoCdev }
func (c *Cdev) Read(id PinID) (bool, error)       { return false, errNoCdev }
func (c *Cdev) Close() error                      { return nil }
