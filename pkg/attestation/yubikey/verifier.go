// Package yubikey verifies hardware attestation statements embedded in
// certificate signing requests and decodes the vendor extensions of the
// attestation certificate into template-ready attributes.
package yubikey

import (
	"bytes"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"regexp"
	"strconv"

	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/request"
	"github.com/virot/tamemycerts/pkg/validation"
)

var (
	ErrCertParse      = errors.New("yubikey: unable to parse attestation certificate")
	ErrChainBuild     = errors.New("yubikey: failed to build certificate path")
	ErrChainLength    = errors.New("yubikey: certificate path does not contain exactly three certificates")
	ErrUntrustedRoot  = errors.New("yubikey: certificate path does not terminate at the Yubico PIV root CA")
	ErrKeyMismatch    = errors.New("yubikey: certificate request public key does not match the attested key")
	ErrInvalidRootPEM = errors.New("yubikey: invalid pinned root certificate")
)

// pivRootPEM is the Yubico PIV Root CA Serial 263751 certificate. It is
// pinned in the binary rather than read from a trust store or from
// configuration; replacing it requires a new build. The root is never
// installed in any system store, so chain validation supplies it
// explicitly and the terminal certificate is byte-compared against it.
const pivRootPEM = `-----BEGIN CERTIFICATE-----
MIIDFzCCAf+gAwIBAgIDBAZHMA0GCSqGSIb3DQEBCwUAMCsxKTAnBgNVBAMMIFl1
YmljbyBQSVYgUm9vdCBDQSBTZXJpYWwgMjYzNzUxMCAXDTE2MDMxNDAwMDAwMFoY
DzIwNTIwNDE3MDAwMDAwWjArMSkwJwYDVQQDDCBZdWJpY28gUElWIFJvb3QgQ0Eg
U2VyaWFsIDI2Mzc1MTCCASIwDQYJKoZIhvcNAQEBBQADggEPADCCAQoCggEBAMN2
cMTNR6YCdcTFRxuPy31PabRn5m6pJ+nSE0HRWpoaM8fc8wHC+Tmb98jmNvhWNE2E
ilU85uYKfEFP9d6Q2GmytqBnxZsAa3KqZiCCx2LwQ4iYEOb1llgotVr/whEpdVOq
joU0P5e1j1y7OfwOvky/+AXIN/9Xp0VFlYRk2tQ9GcdYKDmqU+db9iKwpAzid4oH
BVLIhmD3pvkWaRA2H3DA9t7H/HNq5v3OiO1jyLZeKqZoMbPObrxqDg+9fOdShzgf
wCqgT3XVmTeiwvBSTctyi9mHQfYd2DwkaqxRnLbNVyK9zl+DzjSGp9IhVPiVtGet
X02dxhQnGS7K6BO0Qe8CAwEAAaNCMEAwHQYDVR0OBBYEFMpfyvLEojGc6SJf8ez0
1d8Cv4O/MA8GA1UdEwQIMAYBAf8CAQEwDgYDVR0PAQH/BAQDAgEGMA0GCSqGSIb3
DQEBCwUAA4IBAQBc7Ih8Bc1fkC+FyN1fhjWioBCMr3vjneh7MLbA6kSoyWF70N3s
XhbXvT4eRh0hvxqvMZNjPU/VlRn6gLVtoEikDLrYFXN6Hh6Wmyy1GTnspnOvMvz2
lLKuym9KYdYLDgnj3BeAvzIhVzzYSeU77/Cupofj093OuAswW0jYvXsGTyix6B3d
bW5yWvyS9zNXaqGaUmP3U9/b6DlHdDogMLu3VLpBB9bm5bjaKWWJYgWltCVgUbFq
Fqyi4+JE014cSgR57Jcu3dZiehB6UtAPgad9L5cNvua/IWRmm+ANy3O2LH++Pyl8
SREzU8onbBsjMg9QDiSf5oJLKvd/Ren+zGY7
-----END CERTIFICATE-----
`

// slotPattern extracts the two-hex-digit slot identifier from the
// attestation certificate's common name.
var slotPattern = regexp.MustCompile(`YubiKey PIV Attestation ([0-9A-Fa-f]{2})`)

// Verifier validates the attestation certificate chain embedded in a
// certificate request and extracts device attributes. The pinned root is
// immutable and shared read-only across requests.
type Verifier struct {
	logger *logging.Logger
	root   *x509.Certificate
}

func NewVerifier(logger *logging.Logger) *Verifier {
	root, err := parseRoot([]byte(pivRootPEM))
	if err != nil {
		// The pinned root is a compile-time constant; failing to parse
		// it is a build defect, not a runtime condition.
		panic(err)
	}
	return &Verifier{
		logger: logger,
		root:   root,
	}
}

// NewVerifierWithRoot creates a verifier anchored at the given root
// instead of the pinned Yubico CA. Tests use it to exercise the chain
// logic with synthetic certificates.
func NewVerifierWithRoot(logger *logging.Logger, root *x509.Certificate) *Verifier {
	return &Verifier{
		logger: logger,
		root:   root,
	}
}

func parseRoot(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidRootPEM
	}
	return x509.ParseCertificate(block.Bytes)
}

// Extract locates the attestation extensions in the request, validates
// the certificate chain against the pinned root and decodes the vendor
// extensions. A request without attestation extensions yields nil
// attributes and no denial; requiring attestation is the policy author's
// job, not this component's. Chain and key failures deny the request on
// the shared result. Attribute decoding is best effort and never fatal.
func (v *Verifier) Extract(
	result *validation.Result,
	req *request.CertificateRequest) *Attributes {

	if !req.HasExtension(OIDAttestationDevice) ||
		!req.HasExtension(OIDAttestationIntermediate) {
		return nil
	}

	if result.DeniedForIssuance() {
		return nil
	}

	attestationCert, err := x509.ParseCertificate(req.Extension(OIDAttestationDevice))
	if err != nil {
		v.logger.Error(err)
		result.SetFailureStatus(validation.StatusAttestationDenied,
			ErrCertParse.Error())
		return nil
	}
	intermediateCert, err := x509.ParseCertificate(req.Extension(OIDAttestationIntermediate))
	if err != nil {
		v.logger.Error(err)
		result.SetFailureStatus(validation.StatusAttestationDenied,
			ErrCertParse.Error())
		return nil
	}

	chain, err := v.buildChain(attestationCert, intermediateCert)
	if err != nil {
		v.logger.Error(err)
		result.SetFailureStatus(validation.StatusAttestationDenied, err.Error())
		return nil
	}

	// The request must carry the exact public key the device attested
	// to, otherwise the attestation proves nothing about this CSR.
	if !bytes.Equal(req.PublicKey, chain[0].RawSubjectPublicKeyInfo) {
		v.logger.Error(ErrKeyMismatch)
		result.SetFailureStatus(validation.StatusAttestationDenied,
			ErrKeyMismatch.Error())
		return nil
	}

	attributes := v.decode(attestationCert)
	v.logger.Debug("yubikey: attestation verified",
		"serial", attributes.SerialNumber,
		"slot", attributes.Slot,
		"firmware", attributes.Firmware.String())

	return attributes
}

// buildChain validates the attestation certificate against the pinned
// root with the intermediate as the only untrusted extra certificate.
// Revocation is not checked; attestation certificates carry no revocation
// information. The resulting chain must contain exactly the leaf, the
// intermediate and the pinned root, and the terminal certificate's public
// key must byte-for-byte equal the pinned root's. The explicit terminal
// check keeps the trust decision independent of the platform's own trust
// evaluation.
func (v *Verifier) buildChain(
	attestationCert, intermediateCert *x509.Certificate) ([]*x509.Certificate, error) {

	roots := x509.NewCertPool()
	roots.AddCert(v.root)

	intermediates := x509.NewCertPool()
	intermediates.AddCert(intermediateCert)

	chains, err := attestationCert.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, ErrChainBuild
	}

	chain := chains[0]
	if len(chain) != 3 {
		return nil, ErrChainLength
	}
	if !bytes.Equal(
		chain[2].RawSubjectPublicKeyInfo,
		v.root.RawSubjectPublicKeyInfo) {
		return nil, ErrUntrustedRoot
	}

	return chain, nil
}

// decode extracts the vendor extensions into attributes. Every branch is
// tolerant: a missing or wrong-length extension leaves its attribute at
// the default value.
func (v *Verifier) decode(cert *x509.Certificate) *Attributes {

	attributes := &Attributes{
		FormFactor: FormFactorUnknown,
	}

	if match := slotPattern.FindStringSubmatch(cert.Subject.CommonName); match != nil {
		attributes.Slot = match[1]
	}

	for _, ext := range cert.Extensions {
		switch {
		case ext.Id.Equal(oidPinTouchPolicy):
			if len(ext.Value) == 2 {
				attributes.PinPolicy = pinPolicies[ext.Value[0]]
				attributes.TouchPolicy = touchPolicies[ext.Value[1]]
			}

		case ext.Id.Equal(oidFormFactor):
			if len(ext.Value) >= 1 {
				if formFactor, ok := formFactors[ext.Value[0]]; ok {
					attributes.FormFactor = formFactor
				}
			}

		case ext.Id.Equal(oidFirmware):
			if len(ext.Value) == 3 {
				attributes.Firmware = FirmwareVersion{
					Major: ext.Value[0],
					Minor: ext.Value[1],
					Patch: ext.Value[2],
				}
			}

		case ext.Id.Equal(oidSerialNumber):
			// The wire encoding is always big-endian regardless of the
			// host platform.
			if len(ext.Value) == 4 {
				attributes.SerialNumber = formatSerial(
					binary.BigEndian.Uint32(ext.Value))
			}
		}
	}

	return attributes
}

func formatSerial(serial uint32) string {
	return strconv.FormatUint(uint64(serial), 10)
}
