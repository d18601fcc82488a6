package onboard

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	jerrors "github.com/CodedInternet/gojacobian/onboard/errors"
	"github.com/CodedInternet/gojacobian/onboard/hardware"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

type registeredPin struct {
	name string
	id   hardware.PinID
}

// Controller owns the GPIO backend and the logical pin names used by every
// other component. The run and override flags are read by the actuation loop
// and written by the command source, so they are atomic. Backend calls are
// serialized under lock.
type Controller struct {
	name string
	gpio hardware.GPIO
	log  *slog.Logger

	lock   *sync.RWMutex
	pinout []registeredPin // registration order, used for shutdown
	byName map[string]hardware.PinID

	running    atomic.Bool
	overridden atomic.Bool

	// resolution failures can come from the loop at the tick rate
	warnLimit *rate.Limiter

	shutdown    sync.Once
	shutdownErr error
}

// NewController initializes gpio. A failure here is fatal to the session; the
// returned error wraps errors.ErrInitFailed.
func NewController(name string, gpio hardware.GPIO, log *slog.Logger) (c *Controller, err error) {
	if err = gpio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", jerrors.ErrInitFailed, err)
	}

	c = &Controller{
		name:      name,
		gpio:      gpio,
		log:       log,
		lock:      new(sync.RWMutex),
		byName:    make(map[string]hardware.PinID),
		warnLimit: rate.NewLimiter(rate.Limit(1), 5),
	}
	c.running.Store(true)

	log.Info("controller successfully initialized", "tag", "Success", "controller", name)
	return c, nil
}

func (c *Controller) Name() string {
	return c.name
}

// ConfigurePin registers name for pin id and applies its mode and pull.
// Names are unique; a second registration of the same name is rejected. A pin
// whose mode or pull cannot be applied is not registered.
func (c *Controller) ConfigurePin(id hardware.PinID, name string, mode hardware.Mode, pull hardware.Pull) error {
	c.lock.Lock()
	if existing, ok := c.byName[name]; ok {
		c.lock.Unlock()
		err := jerrors.DuplicatePinError{Name: name, ID: int(existing)}
		c.log.Error(err.Error(), "tag", "Error")
		return err
	}
	err := multierr.Append(c.gpio.SetMode(id, mode), c.gpio.SetPull(id, pull))
	if err == nil {
		c.byName[name] = id
		c.pinout = append(c.pinout, registeredPin{name: name, id: id})
	}
	c.lock.Unlock()

	if err != nil {
		c.log.Error("unable to configure pin, it stays unregistered", "tag", "Error", "pin", name, "id", id, "err", err)
		return err
	}
	c.log.Info("a new pin has been configured", "tag", "Success", "pin", name, "id", id,
		"mode", mode, "pull", pull)
	return nil
}

func (c *Controller) ResolvePin(name string) (hardware.PinID, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	id, ok := c.byName[name]
	if !ok {
		return 0, jerrors.PinNameError{Name: name}
	}
	return id, nil
}

func (c *Controller) warn(err error) {
	if c.warnLimit.Allow() {
		c.log.Error(err.Error(), "tag", "Error")
	}
}

// SetDigitalOutput is a logged no-op when name is not registered.
func (c *Controller) SetDigitalOutput(name string, high bool) error {
	id, err := c.ResolvePin(name)
	if err != nil {
		c.warn(err)
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.gpio.Write(id, high)
}

// ReadDigitalInput is a logged no-op returning false when name is not registered.
func (c *Controller) ReadDigitalInput(name string) (bool, error) {
	id, err := c.ResolvePin(name)
	if err != nil {
		c.warn(err)
		return false, err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.gpio.Read(id)
}

func (c *Controller) SetOverride(override bool) {
	if c.overridden.Swap(override) == override {
		return
	}
	if override {
		c.log.Info("the controller is no longer in control of the vehicle", "tag", "Success")
	} else {
		c.log.Info("the controller is now in direct control of the vehicle", "tag", "Success")
	}
}

func (c *Controller) IsOverridden() bool {
	return c.overridden.Load()
}

func (c *Controller) SetRunning(running bool) {
	c.running.Store(running)
}

func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// Shutdown drives every registered pin low and returns it to input so nothing
// is left energised. Only the first call does any work; later calls return the
// same result.
func (c *Controller) Shutdown() error {
	c.shutdown.Do(func() {
		c.running.Store(false)

		c.lock.Lock()
		defer c.lock.Unlock()

		var err error
		for _, pin := range c.pinout {
			err = multierr.Append(err, c.gpio.Write(pin.id, false))
			err = multierr.Append(err, c.gpio.SetMode(pin.id, hardware.Input))
		}
		err = multierr.Append(err, c.gpio.Close())
		c.shutdownErr = err

		if err != nil {
			c.log.Error("controller terminated with errors", "tag", "Error", "err", err)
			return
		}
		c.log.Info("controller terminated, it is now safe to touch the electronic components", "tag", "Success")
	})
	return c.shutdownErr
}
