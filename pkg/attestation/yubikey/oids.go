package yubikey

import "encoding/asn1"

// Yubico PIV attestation object identifiers. These are fixed, well-known
// vendor constants, not configuration.
// https://developers.yubico.com/PIV/Introduction/PIV_attestation.html
const (
	// OIDAttestationIntermediate carries the intermediate attestation
	// certificate embedded in the certificate request.
	OIDAttestationIntermediate = "1.3.6.1.4.1.41482.3.2"

	// OIDFirmware carries the device firmware version as three bytes.
	OIDFirmware = "1.3.6.1.4.1.41482.3.3"

	// OIDSerialNumber carries the device serial as a big-endian uint32.
	OIDSerialNumber = "1.3.6.1.4.1.41482.3.7"

	// OIDPinTouchPolicy carries the slot PIN and touch policies as two
	// bytes.
	OIDPinTouchPolicy = "1.3.6.1.4.1.41482.3.8"

	// OIDFormFactor carries the physical form factor as a single byte.
	OIDFormFactor = "1.3.6.1.4.1.41482.3.9"

	// OIDAttestationDevice carries the slot attestation certificate
	// embedded in the certificate request.
	OIDAttestationDevice = "1.3.6.1.4.1.41482.3.11"
)

var (
	oidFirmware       = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 41482, 3, 3}
	oidSerialNumber   = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 41482, 3, 7}
	oidPinTouchPolicy = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 41482, 3, 8}
	oidFormFactor     = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 41482, 3, 9}
)
