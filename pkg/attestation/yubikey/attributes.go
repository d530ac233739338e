package yubikey

import "fmt"

// PINPolicy is the decoded slot PIN policy.
type PINPolicy string

// TouchPolicy is the decoded slot touch policy.
type TouchPolicy string

// FormFactor is the decoded physical form factor of the device.
type FormFactor string

const (
	FormFactorUnknown FormFactor = "Unknown"
)

// Byte-to-variant lookup tables for the vendor extensions. Unmapped bytes
// deliberately fall through to the zero value / Unknown so decoding is
// total over arbitrary input.
var (
	pinPolicies = map[byte]PINPolicy{
		0: "None",
		1: "Never",
		2: "Once",
		3: "Always",
		4: "MatchOnce",
		5: "MatchAlways",
	}

	touchPolicies = map[byte]TouchPolicy{
		0: "None",
		1: "Never",
		2: "Always",
		3: "Cached",
	}

	formFactors = map[byte]FormFactor{
		1: "UsbAKeychain",
		2: "UsbANano",
		3: "UsbCKeychain",
		4: "UsbCNano",
		5: "UsbCLightning",
		6: "UsbABiometricKeychain",
		7: "UsbCBiometricKeychain",
	}
)

// FirmwareVersion is the three-component device firmware version.
type FirmwareVersion struct {
	Major byte
	Minor byte
	Patch byte
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Attributes is the decoded, immutable output of a successful attestation
// extraction. Fields left at their zero value were absent or undecodable
// in the attestation certificate; only chain and key verification are
// fatal, decoding is best effort.
type Attributes struct {
	PinPolicy    PINPolicy
	TouchPolicy  TouchPolicy
	FormFactor   FormFactor
	Firmware     FirmwareVersion
	SerialNumber string
	Slot         string
}

// Map flattens the attributes into the string map consumed by the token
// template engine under the "yk" namespace.
func (a *Attributes) Map() map[string]string {
	return map[string]string{
		"FormFactor":      string(a.FormFactor),
		"FirmwareVersion": a.Firmware.String(),
		"PinPolicy":       string(a.PinPolicy),
		"TouchPolicy":     string(a.TouchPolicy),
		"Slot":            a.Slot,
		"SerialNumber":    a.SerialNumber,
	}
}
