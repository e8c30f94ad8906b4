// Package signature implements the Berlin Group request signing checks: the
// Digest header, the HTTP-Signature draft Signature header, and the TPP
// signature certificate with its expiry and revocation rules.
package signature

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// Headers checked by the executor.
const (
	headerSignature  = "Signature"
	headerDigest     = "Digest"
	headerCert       = "TPP-Signature-Certificate"
	headerXRequestID = "X-Request-ID"
	headerDate       = "Date"
)

// mandatorySignedHeaders must always appear in the Signature header's
// headers list.
var mandatorySignedHeaders = []string{"digest", "x-request-id", "date"}

// conditionalSignedHeaders must appear in the headers list whenever the
// corresponding request header is present.
var conditionalSignedHeaders = []string{"psu-id", "psu-corporate-id", "tpp-redirect-uri"}

var signatureElementPattern = regexp.MustCompile(`([a-zA-Z]+)="([^"]*)"`)

// signatureElements is the parsed form of the Signature header.
type signatureElements struct {
	keyID     string
	headers   []string
	signature string
}

// Executor validates the signature-related headers of a request. All steps
// short-circuit on the first violation; success is silent apart from a debug
// log.
type Executor struct {
	cfg        *config.SignatureConfig
	trustStore *TrustStore
	checker    *RevocationChecker
	cache      *RevocationCache
	logger     *logrus.Logger
}

// NewExecutor creates a signature verification executor. trustStore may be
// nil when revocation checking is disabled.
func NewExecutor(cfg *config.SignatureConfig, trustStore *TrustStore, logger *logrus.Logger) *Executor {
	return &Executor{
		cfg:        cfg,
		trustStore: trustStore,
		checker:    NewRevocationChecker(cfg.RevocationRetryCount, logger),
		cache:      NewRevocationCache(cfg.RevocationCacheTTL),
		logger:     logger,
	}
}

// Validate runs the full verification sequence over the request headers and
// raw body.
func (e *Executor) Validate(headers *utils.HeaderMap, body []byte) *errors.Error {
	if err := e.validatePresence(headers); err != nil {
		return err
	}

	cert, err := ParseCertificateHeader(headers.Get(headerCert))
	if err != nil {
		return err
	}

	if err := e.validateCertificateExpiry(cert); err != nil {
		return err
	}
	if err := e.validateCertificateRevocation(cert); err != nil {
		return err
	}
	if err := e.validateDigest(headers.Get(headerDigest), body); err != nil {
		return err
	}
	if err := e.validateSignature(headers, cert); err != nil {
		return err
	}

	e.logger.WithField("subject", cert.Subject.String()).Debug("Request signature validated")
	return nil
}

// validatePresence checks that every signature-related mandatory header is
// present.
func (e *Executor) validatePresence(headers *utils.HeaderMap) *errors.Error {
	if !headers.Has(headerCert) {
		return errors.New(errors.CodeCertificateMissing, "TPP-Signature-Certificate header is missing in the request")
	}
	if !headers.Has(headerSignature) {
		return errors.New(errors.CodeSignatureMissing, "Signature header is missing in the request")
	}
	if !headers.Has(headerDigest) {
		return errors.New(errors.CodeSignatureMissing, "Digest header is missing in the request")
	}
	if !headers.Has(headerXRequestID) {
		return errors.FormatError("X-Request-ID header is missing in the request")
	}
	if !headers.Has(headerDate) {
		return errors.FormatError("Date header is missing in the request")
	}
	return nil
}

// ParseCertificateHeader decodes the TPP-Signature-Certificate header, which
// arrives either as PEM or as bare base64 DER.
func ParseCertificateHeader(value string) (*x509.Certificate, *errors.Error) {
	value = strings.TrimSpace(value)

	if strings.Contains(value, "BEGIN CERTIFICATE") {
		block, _ := pem.Decode([]byte(value))
		if block == nil {
			return nil, errors.New(errors.CodeCertificateInvalid, "TPP-Signature-Certificate is not a parsable certificate")
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.New(errors.CodeCertificateInvalid, "TPP-Signature-Certificate is not a parsable certificate")
		}
		return cert, nil
	}

	der, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(value, " ", ""))
	if err != nil {
		return nil, errors.New(errors.CodeCertificateInvalid, "TPP-Signature-Certificate is not a parsable certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errors.New(errors.CodeCertificateInvalid, "TPP-Signature-Certificate is not a parsable certificate")
	}
	return cert, nil
}

// validateCertificateExpiry checks the certificate validity window against
// the current time.
func (e *Executor) validateCertificateExpiry(cert *x509.Certificate) *errors.Error {
	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return errors.New(errors.CodeCertificateExpired, "Certificate with the serial number " +
			cert.SerialNumber.String() + " is expired")
	}
	return nil
}

// validateCertificateRevocation runs the revocation decision: self-signed
// certificates and excluded issuers are skipped; everything else is verified
// against the trust-store-resolved issuer, with the boolean result cached by
// certificate thumbprint.
func (e *Executor) validateCertificateRevocation(cert *x509.Certificate) *errors.Error {
	if !e.cfg.RevocationEnabled {
		return nil
	}
	if cert.Subject.String() == cert.Issuer.String() {
		e.logger.Debug("Skipping revocation check for self-signed certificate")
		return nil
	}
	if e.cfg.IsIssuerExcludedFromRevocation(cert.Issuer.String()) {
		e.logger.WithField("issuer", cert.Issuer.String()).Debug("Issuer excluded from revocation checks")
		return nil
	}

	thumbprint := Thumbprint(cert)
	if revoked, found := e.cache.Get(thumbprint); found {
		if revoked {
			return errors.New(errors.CodeCertificateRevoked, "Certificate is revoked")
		}
		return nil
	}

	if e.trustStore == nil {
		return errors.New(errors.CodeCertificateInvalid, "Certificate issuer could not be resolved")
	}
	issuer := e.trustStore.FindIssuer(cert)
	if issuer == nil {
		return errors.New(errors.CodeCertificateInvalid, "Certificate issuer could not be resolved")
	}

	revoked, err := e.checker.IsRevoked(cert, issuer)
	if err != nil {
		// Fail closed: an undeterminable status counts as a failed check.
		e.logger.WithError(err).Error("Certificate revocation status could not be determined")
		return errors.New(errors.CodeCertificateRevoked, "Certificate revocation status could not be determined")
	}

	e.cache.Put(thumbprint, revoked)
	if revoked {
		return errors.New(errors.CodeCertificateRevoked, "Certificate is revoked")
	}
	return nil
}

// validateDigest recomputes the message digest of the raw body and compares
// it with the Digest header.
func (e *Executor) validateDigest(digestHeader string, body []byte) *errors.Error {
	parts := strings.SplitN(digestHeader, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return errors.FormatError("Invalid Digest header. Needs to be in <algorithm>=<Base64 encoded value> format")
	}

	algorithm := strings.TrimSpace(parts[0])
	if !e.cfg.IsHashAlgorithmSupported(algorithm) {
		return errors.FormatError(fmt.Sprintf("Digest algorithm %s is not supported", algorithm))
	}

	computed, ok := computeDigest(algorithm, body)
	if !ok {
		return errors.FormatError(fmt.Sprintf("Digest algorithm %s is not supported", algorithm))
	}
	if computed != parts[1] {
		return errors.New(errors.CodeSignatureInvalid, "Digest validation failed for the request payload")
	}
	return nil
}

// computeDigest hashes the body (or "{}" when blank) and Base64-encodes the
// result.
func computeDigest(algorithm string, body []byte) (string, bool) {
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	switch strings.ToUpper(algorithm) {
	case "SHA-256":
		sum := sha256.Sum256(body)
		return base64.StdEncoding.EncodeToString(sum[:]), true
	case "SHA-512":
		sum := sha512.Sum512(body)
		return base64.StdEncoding.EncodeToString(sum[:]), true
	}
	return "", false
}

// validateSignature parses the Signature header, checks the keyId against
// the certificate, validates the signed-headers list, reconstructs the
// signing string and verifies it against the certificate's public key.
func (e *Executor) validateSignature(headers *utils.HeaderMap, cert *x509.Certificate) *errors.Error {
	elements, err := parseSignatureHeader(headers.Get(headerSignature))
	if err != nil {
		return err
	}

	if err := validateKeyID(elements.keyID, cert); err != nil {
		return err
	}
	if err := validateSignedHeaders(elements.headers, headers); err != nil {
		return err
	}

	certAlgorithm := cert.SignatureAlgorithm.String()
	if !e.cfg.IsSignatureAlgorithmSupported(certAlgorithm) {
		return errors.New(errors.CodeSignatureInvalid,
			fmt.Sprintf("Signature algorithm %s is not supported", certAlgorithm))
	}

	signingString := buildSigningString(elements.headers, headers)
	signatureBytes, decodeErr := base64.StdEncoding.DecodeString(elements.signature)
	if decodeErr != nil {
		return errors.New(errors.CodeSignatureInvalid, "Signature is not valid Base64")
	}

	if verifyErr := cert.CheckSignature(cert.SignatureAlgorithm, []byte(signingString), signatureBytes); verifyErr != nil {
		return errors.New(errors.CodeSignatureInvalid, "Signature verification failed")
	}
	return nil
}

// parseSignatureHeader extracts keyId, headers and signature from the
// comma-separated key="value" elements of the Signature header.
func parseSignatureHeader(value string) (*signatureElements, *errors.Error) {
	matches := signatureElementPattern.FindAllStringSubmatch(value, -1)
	elements := &signatureElements{}
	for _, match := range matches {
		switch strings.ToLower(match[1]) {
		case "keyid":
			elements.keyID = match[2]
		case "headers":
			elements.headers = strings.Fields(match[2])
		case "signature":
			elements.signature = match[2]
		}
	}

	if elements.keyID == "" {
		return nil, errors.New(errors.CodeSignatureInvalid, "keyId is missing in the Signature header")
	}
	if len(elements.headers) == 0 {
		return nil, errors.New(errors.CodeSignatureInvalid, "headers element is missing in the Signature header")
	}
	if elements.signature == "" {
		return nil, errors.New(errors.CodeSignatureInvalid, "signature element is missing in the Signature header")
	}
	return elements, nil
}

// validateKeyID checks that the keyId encodes the certificate's serial
// number and issuer DN: "SN=<hex serial>,CA=<issuer DN>".
func validateKeyID(keyID string, cert *x509.Certificate) *errors.Error {
	if !strings.HasPrefix(keyID, "SN=") {
		return errors.New(errors.CodeSignatureInvalid, "keyId must be in SN=<serial>,CA=<issuer> format")
	}
	separator := strings.Index(keyID, ",CA=")
	if separator < 0 {
		return errors.New(errors.CodeSignatureInvalid, "keyId must be in SN=<serial>,CA=<issuer> format")
	}

	serialHex := keyID[len("SN="):separator]
	issuerDN := keyID[separator+len(",CA="):]

	serial := new(big.Int)
	if _, ok := serial.SetString(serialHex, 16); !ok {
		return errors.New(errors.CodeSignatureInvalid, "Serial number in keyId is not a valid hex number")
	}
	if serial.Cmp(cert.SerialNumber) != 0 {
		return errors.New(errors.CodeSignatureInvalid, "Serial number in keyId does not match the certificate")
	}
	if issuerDN != cert.Issuer.String() {
		return errors.New(errors.CodeSignatureInvalid, "CA in keyId does not match the certificate issuer")
	}
	return nil
}

// validateSignedHeaders enforces the rules over the headers list: lowercase
// tokens, every listed header present on the request, mandatory members, and
// conditional members for request headers that are actually present.
func validateSignedHeaders(signedHeaders []string, headers *utils.HeaderMap) *errors.Error {
	listed := make(map[string]bool, len(signedHeaders))
	for _, name := range signedHeaders {
		if name != strings.ToLower(name) {
			return errors.New(errors.CodeSignatureInvalid,
				fmt.Sprintf("Signed header name %s must be lowercase", name))
		}
		if !headers.Has(name) {
			return errors.New(errors.CodeSignatureInvalid,
				fmt.Sprintf("Signed header %s is not present in the request", name))
		}
		listed[name] = true
	}

	for _, name := range mandatorySignedHeaders {
		if !listed[name] {
			return errors.New(errors.CodeSignatureInvalid,
				fmt.Sprintf("Mandatory header %s is not covered by the signature", name))
		}
	}
	for _, name := range conditionalSignedHeaders {
		if headers.Has(name) && !listed[name] {
			return errors.New(errors.CodeSignatureInvalid,
				fmt.Sprintf("Header %s is present in the request but not covered by the signature", name))
		}
	}
	return nil
}

// buildSigningString reconstructs the canonical signing string: one
// "<lowercased-header>: <value>" line per listed header, in listed order,
// joined by newlines with no trailing newline.
func buildSigningString(signedHeaders []string, headers *utils.HeaderMap) string {
	lines := make([]string, 0, len(signedHeaders))
	for _, name := range signedHeaders {
		lines = append(lines, name+": "+headers.Get(name))
	}
	return strings.Join(lines, "\n")
}
