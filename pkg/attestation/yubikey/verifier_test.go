package yubikey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/request"
	"github.com/virot/tamemycerts/pkg/validation"
)

// testDevice is a synthetic attestation chain standing in for a real
// security key: a self-signed root, an intermediate signed by it and a
// leaf attestation certificate signed by the intermediate.
type testDevice struct {
	root            *x509.Certificate
	intermediateDER []byte
	leafDER         []byte
	leafSPKI        []byte
}

func newTestDevice(t *testing.T, commonName string, leafExtensions []pkix.Extension) *testDevice {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	intermediateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test PIV Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER, err := x509.CreateCertificate(
		rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	root, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	intermediateTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "Test PIV Attestation"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	intermediateDER, err := x509.CreateCertificate(
		rand.Reader, intermediateTemplate, root, &intermediateKey.PublicKey, rootKey)
	require.NoError(t, err)
	intermediate, err := x509.ParseCertificate(intermediateDER)
	require.NoError(t, err)

	leafTemplate := &x509.Certificate{
		SerialNumber:    big.NewInt(3),
		Subject:         pkix.Name{CommonName: commonName},
		NotBefore:       time.Now().Add(-time.Hour),
		NotAfter:        time.Now().Add(24 * time.Hour),
		ExtraExtensions: leafExtensions,
	}
	leafDER, err := x509.CreateCertificate(
		rand.Reader, leafTemplate, intermediate, &leafKey.PublicKey, intermediateKey)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	return &testDevice{
		root:            root,
		intermediateDER: intermediateDER,
		leafDER:         leafDER,
		leafSPKI:        leaf.RawSubjectPublicKeyInfo,
	}
}

func vendorExtensions() []pkix.Extension {
	return []pkix.Extension{
		{Id: oidFirmware, Value: []byte{5, 4, 3}},
		{Id: oidSerialNumber, Value: []byte{0, 0, 1, 0}},
		{Id: oidPinTouchPolicy, Value: []byte{2, 1}},
		{Id: oidFormFactor, Value: []byte{3}},
	}
}

func attestedRequest(device *testDevice) *request.CertificateRequest {
	return &request.CertificateRequest{
		RequestID: 42,
		Template:  "PIVAuthentication",
		PublicKey: device.leafSPKI,
		Extensions: map[string][]byte{
			OIDAttestationDevice:       device.leafDER,
			OIDAttestationIntermediate: device.intermediateDER,
		},
	}
}

func TestExtractDecodesAttributes(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	attributes := verifier.Extract(result, attestedRequest(device))

	require.NotNil(t, attributes)
	assert.False(t, result.DeniedForIssuance())
	assert.Equal(t, "9a", attributes.Slot)
	assert.Equal(t, "5.4.3", attributes.Firmware.String())
	assert.Equal(t, "256", attributes.SerialNumber)
	assert.Equal(t, PINPolicy("Once"), attributes.PinPolicy)
	assert.Equal(t, TouchPolicy("Never"), attributes.TouchPolicy)
	assert.Equal(t, FormFactor("UsbCKeychain"), attributes.FormFactor)
}

func TestExtractAttributeMap(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9c", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	attributes := verifier.Extract(result, attestedRequest(device))

	require.NotNil(t, attributes)
	values := attributes.Map()
	assert.Equal(t, "9c", values["Slot"])
	assert.Equal(t, "5.4.3", values["FirmwareVersion"])
	assert.Equal(t, "256", values["SerialNumber"])
	assert.Equal(t, "UsbCKeychain", values["FormFactor"])
}

func TestExtractWithoutAttestationExtensions(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	// A plain software request carries no attestation. That is not a
	// failure; requiring attestation is the policy author's job.
	req := attestedRequest(device)
	req.Extensions = nil

	attributes := verifier.Extract(result, req)

	assert.Nil(t, attributes)
	assert.False(t, result.DeniedForIssuance())
}

func TestExtractMissingVendorExtensions(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", nil)
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	attributes := verifier.Extract(result, attestedRequest(device))

	require.NotNil(t, attributes)
	assert.False(t, result.DeniedForIssuance())
	assert.Equal(t, "9a", attributes.Slot)
	assert.Equal(t, FormFactorUnknown, attributes.FormFactor)
	assert.Equal(t, "0.0.0", attributes.Firmware.String())
	assert.Empty(t, attributes.SerialNumber)
}

func TestExtractWrongLengthVendorExtensions(t *testing.T) {

	extensions := []pkix.Extension{
		{Id: oidFirmware, Value: []byte{5, 4}},
		{Id: oidSerialNumber, Value: []byte{1, 0}},
		{Id: oidPinTouchPolicy, Value: []byte{2}},
	}
	device := newTestDevice(t, "YubiKey PIV Attestation 9a", extensions)
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	attributes := verifier.Extract(result, attestedRequest(device))

	require.NotNil(t, attributes)
	assert.False(t, result.DeniedForIssuance())
	assert.Equal(t, "0.0.0", attributes.Firmware.String())
	assert.Empty(t, attributes.SerialNumber)
	assert.Empty(t, string(attributes.PinPolicy))
}

func TestExtractSlotAbsentFromCommonName(t *testing.T) {

	device := newTestDevice(t, "Some Other Device", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	attributes := verifier.Extract(result, attestedRequest(device))

	require.NotNil(t, attributes)
	assert.Empty(t, attributes.Slot)
}

func TestExtractKeyMismatchDenies(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	// The CSR carries a key different from the attested one. The chain
	// itself is valid but the attestation proves nothing about this CSR.
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	spki, err := x509.MarshalPKIXPublicKey(&other.PublicKey)
	require.NoError(t, err)

	req := attestedRequest(device)
	req.PublicKey = spki

	attributes := verifier.Extract(result, req)

	assert.Nil(t, attributes)
	assert.True(t, result.DeniedForIssuance())
	assert.Equal(t, validation.StatusAttestationDenied, result.Code)
	assert.Contains(t, result.Descriptions[0], "does not match")
}

func TestExtractUntrustedRootDenies(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	stranger := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())

	// The verifier is anchored at a different root than the one that
	// signed the device's chain.
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), stranger.root)
	result := validation.NewResult()

	attributes := verifier.Extract(result, attestedRequest(device))

	assert.Nil(t, attributes)
	assert.True(t, result.DeniedForIssuance())
	assert.Equal(t, validation.StatusAttestationDenied, result.Code)
}

func TestExtractTwoElementChainDenies(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	// Present the root itself as the intermediate so the shortest path
	// from leaf to root has only two links. A real device chain always
	// has three.
	leaf, err := x509.ParseCertificate(device.intermediateDER)
	require.NoError(t, err)

	req := &request.CertificateRequest{
		RequestID: 42,
		PublicKey: leaf.RawSubjectPublicKeyInfo,
		Extensions: map[string][]byte{
			OIDAttestationDevice:       device.intermediateDER,
			OIDAttestationIntermediate: device.root.Raw,
		},
	}

	attributes := verifier.Extract(result, req)

	assert.Nil(t, attributes)
	assert.True(t, result.DeniedForIssuance())
	assert.Contains(t, result.Descriptions[0], "exactly three")
}

func TestExtractGarbageCertificateDenies(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()

	req := attestedRequest(device)
	req.Extensions[OIDAttestationDevice] = []byte{0xde, 0xad, 0xbe, 0xef}

	attributes := verifier.Extract(result, req)

	assert.Nil(t, attributes)
	assert.True(t, result.DeniedForIssuance())
	assert.Equal(t, validation.StatusAttestationDenied, result.Code)
}

func TestExtractSkipsAlreadyDeniedRequest(t *testing.T) {

	device := newTestDevice(t, "YubiKey PIV Attestation 9a", vendorExtensions())
	verifier := NewVerifierWithRoot(logging.DefaultLogger(), device.root)
	result := validation.NewResult()
	result.SetFailureStatus(validation.StatusPolicyDenied, "Failed on policy: deny-everyone")

	attributes := verifier.Extract(result, attestedRequest(device))

	assert.Nil(t, attributes)
	assert.Equal(t, validation.StatusPolicyDenied, result.Code)
	assert.Len(t, result.Descriptions, 1)
}

func TestPinnedRootParses(t *testing.T) {

	verifier := NewVerifier(logging.DefaultLogger())

	assert.NotNil(t, verifier.root)
	assert.Equal(t, "Yubico PIV Root CA Serial 263751",
		verifier.root.Subject.CommonName)
}

func TestVendorOIDsMatchDottedForms(t *testing.T) {

	assert.Equal(t, OIDFirmware, oidFirmware.String())
	assert.Equal(t, OIDSerialNumber, oidSerialNumber.String())
	assert.Equal(t, OIDPinTouchPolicy, oidPinTouchPolicy.String())
	assert.Equal(t, OIDFormFactor, oidFormFactor.String())
	assert.True(t, oidFirmware.Equal(asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 41482, 3, 3}))
}
