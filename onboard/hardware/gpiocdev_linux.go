package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// Cdev drives pins through the GPIO character device. Pin ids are line
// offsets on the configured chip.
type Cdev struct {
	chipName string
	lock     *sync.Mutex
	chip     *gpiocdev.Chip
	lines    map[PinID]*gpiocdev.Line
}

func NewCdev(chip string) *Cdev {
	if chip == "" {
		chip = "gpiochip0"
	}
	return &Cdev{
		chipName: chip,
		lock:     new(sync.Mutex),
		lines:    make(map[PinID]*gpiocdev.Line),
	}
}

func (c *Cdev) Initialize() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	chip, err := gpiocdev.NewChip(c.chipName)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.chipName, err)
	}
	c.chip = chip
	return nil
}

// line requests the line as an input the first time it is seen.
func (c *Cdev) line(id PinID) (*gpiocdev.Line, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.chip == nil {
		return nil, ERR_NOT_INITIALIZED
	}
	if l, ok := c.lines[id]; ok {
		return l, nil
	}
	l, err := c.chip.RequestLine(int(id), gpiocdev.AsInput)
	if err != nil {
		return nil, err
	}
	c.lines[id] = l
	return l, nil
}

func (c *Cdev) SetMode(id PinID, mode Mode) error {
	l, err := c.line(id)
	if err != nil {
		return err
	}
	if mode == Output {
		return l.Reconfigure(gpiocdev.AsOutput(0))
	}
	return l.Reconfigure(gpiocdev.AsInput)
}

func (c *Cdev) SetPull(id PinID, pull Pull) error {
	l, err := c.line(id)
	if err != nil {
		return err
	}
	switch pull {
	case PullUp:
		return l.Reconfigure(gpiocdev.WithPullUp)
	case PullDown:
		return l.Reconfigure(gpiocdev.WithPullDown)
	default:
		return l.Reconfigure(gpiocdev.WithBiasDisabled)
	}
}

func (c *Cdev) Write(id PinID, high bool) error {
	l, err := c.line(id)
	if err != nil {
		return err
	}
	v := 0
	if high {
		v = 1
	}
	return l.SetValue(v)
}

func (c *Cdev) Read(id PinID) (bool, error) {
	l, err := c.line(id)
	if err != nil {
		return false, err
	}
	v, err := l.Value()
	return v == 1, err
}

func (c *Cdev) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for id, l := range c.lines {
		l.Close()
		delete(c.lines, id)
	}
	if c.chip == nil {
		return nil
	}
	err := c.chip.Close()
	c.chip = nil
	return err
}
