package speculos

import "fmt"

// DeviceModel identifies one of the Ledger hardware models Speculos can emulate.
type DeviceModel int

const (
	NanoS DeviceModel = iota
	NanoX
	NanoSPlus
	Blue
	Stax
	Flex
)

// Slug returns the model identifier Speculos expects on its command line.
func (m DeviceModel) Slug() string {
	switch m {
	case NanoS:
		return "nanos"
	case NanoX:
		return "nanox"
	case NanoSPlus:
		return "nanosp"
	case Blue:
		return "blue"
	case Stax:
		return "stax"
	case Flex:
		return "flex"
	}
	return ""
}

func (m DeviceModel) String() string {
	return m.Slug()
}

// AllModels lists every supported device model.
func AllModels() []DeviceModel {
	return []DeviceModel{NanoS, NanoX, NanoSPlus, Blue, Stax, Flex}
}

// ParseDeviceModel resolves a model slug such as "nanos" or "stax".
func ParseDeviceModel(s string) (DeviceModel, error) {
	for _, m := range AllModels() {
		if m.Slug() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown device model: %q", s)
}

// Button identifies one of the two physical buttons on Nano-family devices.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
)

// code returns the numeric button identifier used on the automation wire.
// Speculos expects 1 for left and 2 for right regardless of how the
// constants are declared here.
func (b Button) code() int {
	switch b {
	case ButtonLeft:
		return 1
	case ButtonRight:
		return 2
	}
	return 0
}

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	}
	return ""
}

// ParseButton resolves "left" or "right".
func ParseButton(s string) (Button, error) {
	switch s {
	case "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	}
	return 0, fmt.Errorf("unknown button: %q", s)
}
