// Package cameractl bridges the daemon's camera-control surface (read
// all, read one, write by id or name, reset, export/import) onto the
// kernel video control ioctls in internal/v4l2, caching the enumerated
// set so repeated reads don't re-walk the driver's control list.
package cameractl

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/instance-id/hypercalibrate/internal/hcerr"
	"github.com/instance-id/hypercalibrate/internal/logging"
	"github.com/instance-id/hypercalibrate/internal/v4l2"
)

var log = logging.L("cameractl")

// Type names the kind of value a control holds, mirroring the kernel's
// V4L2_CTRL_TYPE_* tags.
type Type string

const (
	TypeInteger     Type = "integer"
	TypeBoolean     Type = "boolean"
	TypeMenu        Type = "menu"
	TypeButton      Type = "button"
	TypeInteger64   Type = "integer64"
	TypeString      Type = "string"
	TypeBitmask     Type = "bitmask"
	TypeIntegerMenu Type = "integer_menu"
	TypeUnknown     Type = "unknown"
)

func typeFrom(t v4l2.ControlType) Type {
	switch t {
	case v4l2.CtrlTypeInteger:
		return TypeInteger
	case v4l2.CtrlTypeBoolean:
		return TypeBoolean
	case v4l2.CtrlTypeMenu:
		return TypeMenu
	case v4l2.CtrlTypeButton:
		return TypeButton
	case v4l2.CtrlTypeInteger64:
		return TypeInteger64
	case v4l2.CtrlTypeString:
		return TypeString
	case v4l2.CtrlTypeBitmask:
		return TypeBitmask
	case v4l2.CtrlTypeIntegerMenu:
		return TypeIntegerMenu
	default:
		return TypeUnknown
	}
}

const (
	flagReadOnly uint32 = 0x0004
	flagInactive uint32 = 0x0040
)

// Control is one camera control as exposed to callers outside this
// package: id, name, type, range, current/default value, optional menu
// items, and raw driver flags.
type Control struct {
	ID        uint32
	Name      string
	Type      Type
	Min       int32
	Max       int32
	Step      int32
	Default   int32
	Value     int32
	MenuItems map[int32]string
	Flags     uint32
}

func (c Control) readOnly() bool {
	return c.Flags&flagReadOnly != 0 || c.Flags&flagInactive != 0
}

// normalizeName lowercases a control name and replaces spaces with
// underscores, the key shape camera.controls persists.
func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Bridge owns the cached control set for one open capture device.
type Bridge struct {
	fd int

	mu     sync.RWMutex
	byID   map[uint32]Control
	order  []uint32
	byName map[string]uint32
}

// New builds a Bridge bound to an already-open device file descriptor.
// Callers must call Refresh once before using List/Get/Export.
func New(fd int) *Bridge {
	return &Bridge{
		fd:     fd,
		byID:   make(map[uint32]Control),
		byName: make(map[string]uint32),
	}
}

// Refresh walks the device's full control list via VIDIOC_QUERYCTRL
// (NEXT_CTRL chaining, which is inherently sequential) and replaces the
// cache wholesale.
func (b *Bridge) Refresh() error {
	infos, err := v4l2.EnumerateControls(b.fd)
	if err != nil {
		return fmt.Errorf("%w: enumerate controls: %v", hcerr.ErrDeviceUnavailable, err)
	}

	byID := make(map[uint32]Control, len(infos))
	byName := make(map[string]uint32, len(infos))
	order := make([]uint32, 0, len(infos))
	for _, info := range infos {
		c := Control{
			ID:        info.ID,
			Name:      info.Name,
			Type:      typeFrom(info.Type),
			Min:       info.Min,
			Max:       info.Max,
			Step:      info.Step,
			Default:   info.Default,
			Value:     info.Value,
			MenuItems: info.MenuItems,
			Flags:     info.Flags,
		}
		byID[c.ID] = c
		byName[normalizeName(c.Name)] = c.ID
		order = append(order, c.ID)
	}

	b.mu.Lock()
	b.byID, b.byName, b.order = byID, byName, order
	b.mu.Unlock()
	return nil
}

// RefreshValues re-reads only the current value of every already-cached
// control, concurrently (one VIDIOC_G_CTRL per control), and updates the
// cache in place. Unlike Refresh, it never changes the set of known
// controls, only their values.
func (b *Bridge) RefreshValues() error {
	b.mu.RLock()
	ids := make([]uint32, len(b.order))
	copy(ids, b.order)
	b.mu.RUnlock()

	values := make([]int32, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			v, err := v4l2.GetControl(b.fd, id)
			if err != nil {
				errs[i] = err
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = g.Wait()

	b.mu.Lock()
	for i, id := range ids {
		if errs[i] != nil {
			continue
		}
		c := b.byID[id]
		c.Value = values[i]
		b.byID[id] = c
	}
	b.mu.Unlock()
	return nil
}

// List returns every cached control, in enumeration order.
func (b *Bridge) List() []Control {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Control, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id])
	}
	return out
}

// Get returns the cached control with the given id.
func (b *Bridge) Get(id uint32) (Control, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.byID[id]
	return c, ok
}

// GetByName resolves a case-insensitive control name to its cached
// Control.
func (b *Bridge) GetByName(name string) (Control, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.byName[normalizeName(name)]
	if !ok {
		return Control{}, false
	}
	c, ok := b.byID[id]
	return c, ok
}

// SetByID writes value to the control identified by id, and on success
// mirrors it into the cache.
func (b *Bridge) SetByID(id uint32, value int32) error {
	b.mu.RLock()
	c, ok := b.byID[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown control id %d", hcerr.ErrInvalidCalibrationPoint, id)
	}

	if err := v4l2.SetControl(b.fd, id, value); err != nil {
		return fmt.Errorf("%w: %v", hcerr.ErrControlWriteFailed, err)
	}

	b.mu.Lock()
	c.Value = value
	b.byID[id] = c
	b.mu.Unlock()
	return nil
}

// SetByName resolves name case-insensitively and writes value through
// SetByID.
func (b *Bridge) SetByName(name string, value int32) error {
	b.mu.RLock()
	id, ok := b.byName[normalizeName(name)]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown control name %q", hcerr.ErrInvalidCalibrationPoint, name)
	}
	return b.SetByID(id, value)
}

// ResetOne writes a control's Default value back to the device.
func (b *Bridge) ResetOne(id uint32) error {
	b.mu.RLock()
	c, ok := b.byID[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown control id %d", hcerr.ErrInvalidCalibrationPoint, id)
	}
	if c.readOnly() {
		return nil
	}
	return b.SetByID(id, c.Default)
}

// ResetAll resets every non-read-only, non-inactive control to its
// default, skipping the rest.
func (b *Bridge) ResetAll() error {
	b.mu.RLock()
	ids := make([]uint32, 0, len(b.order))
	for _, id := range b.order {
		c := b.byID[id]
		if !c.readOnly() {
			ids = append(ids, id)
		}
	}
	b.mu.RUnlock()

	var firstErr error
	for _, id := range ids {
		if err := b.ResetOne(id); err != nil {
			log.Warn("reset control failed", "id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Export returns the cache as a name->value map, names normalized to
// lowercase with underscores, for persistence in camera.controls.
func (b *Bridge) Export() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int, len(b.byID))
	for _, c := range b.byID {
		out[normalizeName(c.Name)] = int(c.Value)
	}
	return out
}

// Import applies a persisted name->value map (as produced by Export) to
// the device, skipping names that don't resolve to a known control.
// Boolean controls encode their value as 0/1.
func (b *Bridge) Import(values map[string]int) error {
	var firstErr error
	for name, value := range values {
		if err := b.SetByName(name, int32(value)); err != nil {
			log.Warn("import control failed", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
