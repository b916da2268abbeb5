package encoder

import (
	"errors"
	"fmt"
)

// GATT layout exposed by the strap firmware.
const (
	DeviceName = "BLE_Encoder"

	ServiceUUID         uint16 = 0x00FF
	ZoneCharUUID        uint16 = 0xFF01 // read, notify
	CalibrationCharUUID uint16 = 0xFF02 // write
)

// Opcode is the first byte of a zone characteristic notification.
type Opcode byte

const (
	OpLoose             Opcode = 0x01
	OpTight             Opcode = 0x02
	OpMaybeLoose        Opcode = 0x03
	OpToggleCalibration Opcode = 0x04
)

var (
	ErrEmptyNotification = errors.New("empty notification")
	ErrUnknownOpcode     = errors.New("unknown opcode")
)

// Zone is the tension band last reported by the strap.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneLoose
	ZoneTight
	ZoneMaybeLoose
)

func (z Zone) String() string {
	switch z {
	case ZoneLoose:
		return "RED"
	case ZoneTight:
		return "GREEN"
	case ZoneMaybeLoose:
		return "YELLOW"
	default:
		return "NONE"
	}
}

// Label returns the user-facing alert text for the zone.
func (z Zone) Label() string {
	switch z {
	case ZoneLoose:
		return "Strap is Loose"
	case ZoneTight:
		return "Strap is Tight"
	case ZoneMaybeLoose:
		return "Strap May Be Loose"
	default:
		return "Waiting for Data"
	}
}

// Opcode returns the notification byte the firmware sends for z.
// ZoneNone has no wire representation.
func (z Zone) Opcode() (Opcode, bool) {
	switch z {
	case ZoneLoose:
		return OpLoose, true
	case ZoneTight:
		return OpTight, true
	case ZoneMaybeLoose:
		return OpMaybeLoose, true
	default:
		return 0, false
	}
}

// Notification is a decoded zone characteristic update.
type Notification struct {
	Op   Opcode
	Zone Zone // ZoneNone when Op is OpToggleCalibration
}

// ToggleCalibration reports whether the device button asked for a
// calibration mode flip.
func (n Notification) ToggleCalibration() bool {
	return n.Op == OpToggleCalibration
}

// Decode interprets a notification payload. Only the first byte is
// significant; trailing bytes are ignored.
func Decode(data []byte) (Notification, error) {
	if len(data) == 0 {
		return Notification{}, ErrEmptyNotification
	}
	op := Opcode(data[0])
	switch op {
	case OpLoose:
		return Notification{Op: op, Zone: ZoneLoose}, nil
	case OpTight:
		return Notification{Op: op, Zone: ZoneTight}, nil
	case OpMaybeLoose:
		return Notification{Op: op, Zone: ZoneMaybeLoose}, nil
	case OpToggleCalibration:
		return Notification{Op: op}, nil
	}
	return Notification{}, fmt.Errorf("%w 0x%02x", ErrUnknownOpcode, data[0])
}

// CalibrationPayload is the value written to the calibration characteristic.
func CalibrationPayload(on bool) []byte {
	if on {
		return []byte{0x01}
	}
	return []byte{0x00}
}
