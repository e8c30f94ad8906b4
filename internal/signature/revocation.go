package signature

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// TrustStore holds the issuer certificates this deployment trusts for
// revocation verification.
type TrustStore struct {
	certificates []*x509.Certificate
}

// LoadTrustStore reads a PEM bundle of issuer certificates from disk.
func LoadTrustStore(path string) (*TrustStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust store: %w", err)
	}

	store := &TrustStore{}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse trust store certificate: %w", err)
		}
		store.certificates = append(store.certificates, cert)
	}

	if len(store.certificates) == 0 {
		return nil, fmt.Errorf("trust store contains no certificates")
	}
	return store, nil
}

// FindIssuer resolves the issuer certificate of the given certificate, or nil
// when the trust store holds no matching issuer.
func (s *TrustStore) FindIssuer(cert *x509.Certificate) *x509.Certificate {
	for _, candidate := range s.certificates {
		if candidate.Subject.String() != cert.Issuer.String() {
			continue
		}
		if err := cert.CheckSignatureFrom(candidate); err == nil {
			return candidate
		}
	}
	return nil
}

// RevocationChecker verifies certificate revocation against the CRL
// distribution points of the certificate, with bounded retries. Exhausted
// retries are treated as verification failure (fail closed).
type RevocationChecker struct {
	httpClient *http.Client
	retryCount int
	logger     *logrus.Logger
}

// NewRevocationChecker creates a revocation checker with the configured retry
// bound.
func NewRevocationChecker(retryCount int, logger *logrus.Logger) *RevocationChecker {
	if retryCount < 1 {
		retryCount = 1
	}
	return &RevocationChecker{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryCount: retryCount,
		logger:     logger,
	}
}

// IsRevoked checks the certificate against its issuer's CRL. It returns an
// error when revocation status could not be determined within the retry
// bound.
func (r *RevocationChecker) IsRevoked(cert, issuer *x509.Certificate) (bool, error) {
	if len(cert.CRLDistributionPoints) == 0 {
		return false, fmt.Errorf("certificate carries no CRL distribution points")
	}

	var lastErr error
	for attempt := 0; attempt < r.retryCount; attempt++ {
		for _, crlURL := range cert.CRLDistributionPoints {
			revoked, err := r.checkCRL(cert, issuer, crlURL)
			if err != nil {
				lastErr = err
				r.logger.WithError(err).WithFields(logrus.Fields{
					"crlURL":  crlURL,
					"attempt": attempt + 1,
				}).Warn("CRL revocation check failed")
				continue
			}
			return revoked, nil
		}
	}
	return false, fmt.Errorf("revocation check exhausted %d attempts: %w", r.retryCount, lastErr)
}

// checkCRL downloads and verifies a single CRL and looks the certificate's
// serial number up in it.
func (r *RevocationChecker) checkCRL(cert, issuer *x509.Certificate, crlURL string) (bool, error) {
	resp, err := r.httpClient.Get(crlURL)
	if err != nil {
		return false, fmt.Errorf("failed to fetch CRL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("CRL endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read CRL: %w", err)
	}

	// CRLs may arrive PEM wrapped.
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}

	crl, err := x509.ParseRevocationList(data)
	if err != nil {
		return false, fmt.Errorf("failed to parse CRL: %w", err)
	}
	if err := crl.CheckSignatureFrom(issuer); err != nil {
		return false, fmt.Errorf("CRL signature verification failed: %w", err)
	}

	for _, entry := range crl.RevokedCertificateEntries {
		if entry.SerialNumber.Cmp(cert.SerialNumber) == 0 {
			return true, nil
		}
	}
	return false, nil
}
