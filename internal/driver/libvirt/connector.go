/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package libvirt implements the power.Connector capability on top of a
// libvirt connection. It is the only package that sees libvirt's native
// state codes; everything above it works on the abstract power.State set.
package libvirt

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexandremahdhaoui/tooling/pkg/flaterrors"
	virt "libvirt.org/go/libvirt"

	"github.com/alexandremahdhaoui/virtpower/pkg/power"
)

const defaultURI = "qemu:///system"

var (
	errConnectLibvirt = errors.New("failed to connect to libvirt")
	errLookupDomain   = errors.New("failed to look up domain")
	errGetDomainState = errors.New("failed to get domain state")
	errShutdownDomain = errors.New("failed to shutdown domain")
	errDestroyDomain  = errors.New("failed to destroy domain")
	errNotInitialized = errors.New("libvirt connection is not initialized")
)

// Connector resolves guests on one libvirt connection.
type Connector struct {
	conn *virt.Connect
	uri  string
}

// Option is a functional option for configuring the Connector.
type Option func(*Connector)

// WithURI overrides the libvirt connection URI.
func WithURI(uri string) Option {
	return func(c *Connector) {
		c.uri = uri
	}
}

// NewConnector connects to libvirt (qemu:///system by default).
func NewConnector(opts ...Option) (*Connector, error) {
	c := &Connector{uri: defaultURI}

	for _, opt := range opts {
		opt(c)
	}

	conn, err := virt.NewConnect(c.uri)
	if err != nil {
		return nil, flaterrors.Join(err, fmt.Errorf("uri=%s", c.uri), errConnectLibvirt)
	}

	c.conn = conn

	return c, nil
}

// Alive reports whether the libvirt connection is still usable. The daemon's
// readiness probe keys off this.
func (c *Connector) Alive() bool {
	if c.conn == nil {
		return false
	}

	alive, err := c.conn.IsAlive()

	return err == nil && alive
}

// Close closes the libvirt connection.
func (c *Connector) Close() error {
	if c.conn == nil {
		return nil
	}
	_, err := c.conn.Close()
	return err
}

// LookupByName implements power.Connector.
func (c *Connector) LookupByName(_ context.Context, name string) (power.Guest, error) {
	if c.conn == nil {
		return nil, errNotInitialized
	}

	dom, err := c.conn.LookupDomainByName(name)
	if err != nil {
		if isNoDomain(err) {
			return nil, flaterrors.Join(err, fmt.Errorf("guestName=%s", name), power.ErrGuestNotFound)
		}

		return nil, flaterrors.Join(err, fmt.Errorf("guestName=%s", name), errLookupDomain)
	}

	return &guest{dom: dom, name: name}, nil
}

// guest adapts a *virt.Domain to power.Guest.
type guest struct {
	dom  *virt.Domain
	name string
}

// State implements power.Guest.
func (g *guest) State(_ context.Context) (power.State, error) {
	state, _, err := g.dom.GetState()
	if err != nil {
		if isNoDomain(err) {
			return power.StateNoState, flaterrors.Join(err, fmt.Errorf("guestName=%s", g.name), power.ErrGuestNotFound)
		}

		return power.StateNoState, flaterrors.Join(err, fmt.Errorf("guestName=%s", g.name), errGetDomainState)
	}

	return classify(state), nil
}

// Shutdown implements power.Guest. It sends the hypervisor's default
// graceful shutdown signal (ACPI for qemu/kvm) and returns immediately.
func (g *guest) Shutdown(_ context.Context) error {
	if err := g.dom.Shutdown(); err != nil {
		return flaterrors.Join(err, fmt.Errorf("guestName=%s", g.name), errShutdownDomain)
	}

	return nil
}

// Destroy implements power.Guest. Hard power-off; destroying a guest that
// already stopped or vanished is treated as success so the caller's fallback
// is idempotent.
func (g *guest) Destroy(_ context.Context) error {
	if err := g.dom.Destroy(); err != nil {
		if isNoDomain(err) || isOperationInvalid(err) {
			return nil
		}

		return flaterrors.Join(err, fmt.Errorf("guestName=%s", g.name), errDestroyDomain)
	}

	return nil
}

// Free implements power.Guest.
func (g *guest) Free() {
	_ = g.dom.Free()
}

// classify maps libvirt's native domain states onto the abstract power-state
// set. Unknown codes map to NoState, which is never terminal.
func classify(state virt.DomainState) power.State {
	switch state {
	case virt.DOMAIN_RUNNING:
		return power.StateRunning
	case virt.DOMAIN_BLOCKED:
		return power.StateBlocked
	case virt.DOMAIN_PAUSED:
		return power.StatePaused
	case virt.DOMAIN_SHUTDOWN:
		return power.StateShuttingDown
	case virt.DOMAIN_SHUTOFF:
		return power.StateShutoff
	case virt.DOMAIN_CRASHED:
		return power.StateCrashed
	case virt.DOMAIN_PMSUSPENDED:
		return power.StateSuspended
	case virt.DOMAIN_NOSTATE:
		return power.StateNoState
	default:
		return power.StateNoState
	}
}

func isNoDomain(err error) bool {
	var lverr virt.Error
	return errors.As(err, &lverr) && lverr.Code == virt.ERR_NO_DOMAIN
}

// isOperationInvalid matches libvirt's "domain is not running" class of
// failures, raised when destroying an already stopped guest.
func isOperationInvalid(err error) bool {
	var lverr virt.Error
	return errors.As(err, &lverr) && lverr.Code == virt.ERR_OPERATION_INVALID
}
