package protocol

import "fmt"

// Message types
const (
	TypeLogin    uint32 = 1
	TypeGuard    uint32 = 2
	TypeDevice   uint32 = 3
	TypeEnergy   uint32 = 4
	TypeInfo     uint32 = 5
	TypeSetting  uint32 = 7
	TypeElevator uint32 = 8
)

// Login subtypes
const (
	SubtypeCertPinReq  uint32 = 5
	SubtypeCertPinRes  uint32 = 6
	SubtypeMenuReq     uint32 = 7
	SubtypeMenuRes     uint32 = 8
	SubtypeLoginPinReq uint32 = 9
	SubtypeLoginPinRes uint32 = 10
)

// Device subtypes
const (
	SubtypeDeviceQueryReq  uint32 = 1
	SubtypeDeviceQueryRes  uint32 = 2
	SubtypeDeviceInvokeReq uint32 = 3
	SubtypeDeviceInvokeRes uint32 = 4
)

// Elevator subtypes
const (
	SubtypeElevatorReq uint32 = 1
	SubtypeElevatorRes uint32 = 2
)

// Energy subtypes
const (
	SubtypeEnergyNowReq     uint32 = 1
	SubtypeEnergyNowRes     uint32 = 2
	SubtypeEnergyMonthlyReq uint32 = 3
	SubtypeEnergyMonthlyRes uint32 = 4
	SubtypeEnergyGraphReq   uint32 = 16
	SubtypeEnergyGraphRes   uint32 = 17
)

// Device categories
const (
	DeviceLight      = "light"
	DeviceHeating    = "heating"
	DeviceGas        = "gas"
	DeviceFan        = "fan"
	DeviceWallsocket = "wallsocket"
	DeviceAll        = "all"
)

// Categories lists the device categories in the order the server reports them.
var Categories = []string{DeviceLight, DeviceHeating, DeviceGas, DeviceFan, DeviceWallsocket}

// Device states
const (
	StateOn  = "on"
	StateOff = "off"
)

// Guard modes
const (
	GuardModeOff  = "0"
	GuardModeAway = "1"
)

// Energy types
const (
	EnergyElec     = "Elec"
	EnergyGas      = "Gas"
	EnergyWater    = "Water"
	EnergyHotwater = "Hotwater"
	EnergyHeating  = "Heating"
)

// EnergyTypes lists every energy type the server meters.
var EnergyTypes = []string{EnergyElec, EnergyGas, EnergyWater, EnergyHotwater, EnergyHeating}

// TypeName returns a human-readable message type name
func TypeName(t uint32) string {
	switch t {
	case TypeLogin:
		return "login"
	case TypeGuard:
		return "guard"
	case TypeDevice:
		return "device"
	case TypeEnergy:
		return "energy"
	case TypeInfo:
		return "info"
	case TypeSetting:
		return "setting"
	case TypeElevator:
		return "elevator"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}
