package v4l2

import (
	"fmt"
	"unsafe"
)

// ControlType enumerates the V4L2 control type tag.
type ControlType uint32

const (
	CtrlTypeInteger     ControlType = 1
	CtrlTypeBoolean     ControlType = 2
	CtrlTypeMenu        ControlType = 3
	CtrlTypeButton      ControlType = 4
	CtrlTypeInteger64   ControlType = 5
	CtrlTypeCtrlClass   ControlType = 6
	CtrlTypeString      ControlType = 7
	CtrlTypeBitmask     ControlType = 8
	CtrlTypeIntegerMenu ControlType = 11
)

const (
	ctrlFlagDisabled uint32 = 0x0001
	ctrlFlagReadOnly uint32 = 0x0004
	ctrlFlagInactive uint32 = 0x0040
)

// queryCtrlReq mirrors struct v4l2_queryctrl.
type queryCtrlReq struct {
	ID           uint32
	Type         uint32
	Name         [32]byte
	Minimum      int32
	Maximum      int32
	Step         int32
	DefaultValue int32
	Flags        uint32
	reserved     [2]uint32
}

// queryMenuReq mirrors struct v4l2_querymenu.
type queryMenuReq struct {
	ID    uint32
	Index uint32
	Name  [32]byte // union with the int64 value of integer-menu controls
	_     uint32   // reserved
}

// controlReq mirrors struct v4l2_control.
type controlReq struct {
	ID    uint32
	Value int32
}

// ControlInfo describes one enumerated device control.
type ControlInfo struct {
	ID        uint32
	Name      string
	Type      ControlType
	Min, Max  int32
	Step      int32
	Default   int32
	Value     int32
	Flags     uint32
	MenuItems map[int32]string
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// EnumerateControls walks every control the driver exposes (via the
// NEXT_CTRL flag), skipping disabled controls and the synthetic
// control-class markers, resolving menu items for menu-typed controls,
// and reading each control's current value.
func EnumerateControls(fd int) ([]ControlInfo, error) {
	var out []ControlInfo
	id := uint32(0) | ctrlFlagNextCtrl

	for {
		var q queryCtrlReq
		q.ID = id
		if err := ioctl(fd, vidiocQueryCtrl, unsafe.Pointer(&q)); err != nil {
			break // EINVAL signals end of control list
		}

		id = q.ID | ctrlFlagNextCtrl

		if q.Flags&ctrlFlagDisabled != 0 {
			continue
		}
		if ControlType(q.Type) == CtrlTypeCtrlClass {
			continue
		}

		info := ControlInfo{
			ID:      q.ID,
			Name:    cString(q.Name[:]),
			Type:    ControlType(q.Type),
			Min:     q.Minimum,
			Max:     q.Maximum,
			Step:    q.Step,
			Default: q.DefaultValue,
			Flags:   q.Flags,
		}

		if info.Type == CtrlTypeMenu || info.Type == CtrlTypeIntegerMenu {
			info.MenuItems = queryMenu(fd, q.ID, q.Minimum, q.Maximum)
		}

		if v, err := GetControl(fd, q.ID); err == nil {
			info.Value = v
		} else {
			info.Value = info.Default
		}

		out = append(out, info)
	}
	return out, nil
}

func queryMenu(fd int, id uint32, min, max int32) map[int32]string {
	items := make(map[int32]string)
	for i := min; i <= max; i++ {
		var m queryMenuReq
		m.ID = id
		m.Index = uint32(i)
		if err := ioctl(fd, vidiocQueryMenu, unsafe.Pointer(&m)); err != nil {
			continue
		}
		items[i] = cString(m.Name[:])
	}
	return items
}

// GetControl issues VIDIOC_G_CTRL.
func GetControl(fd int, id uint32) (int32, error) {
	c := controlReq{ID: id}
	if err := ioctl(fd, vidiocGCtrl, unsafe.Pointer(&c)); err != nil {
		return 0, fmt.Errorf("G_CTRL %d: %w", id, err)
	}
	return c.Value, nil
}

// SetControl issues VIDIOC_S_CTRL.
func SetControl(fd int, id uint32, value int32) error {
	c := controlReq{ID: id, Value: value}
	if err := ioctl(fd, vidiocSCtrl, unsafe.Pointer(&c)); err != nil {
		return fmt.Errorf("S_CTRL %d=%d: %w", id, value, err)
	}
	return nil
}
