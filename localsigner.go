// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/crate-spec/scrate/internal/pkcs7"
)

// ErrInvalidPrivateKey is returned when a local signer's private key PEM
// does not decode to an RSA or ECDSA key.
var ErrInvalidPrivateKey = errors.New("scrate: invalid private key")

// ErrInvalidCertificate is returned when a local signer's certificate PEM
// does not decode to a valid X.509 certificate.
var ErrInvalidCertificate = errors.New("scrate: invalid certificate")

// LocalSigner produces and checks detached PKCS#7/CMS S/MIME signatures over
// raw digests. Certificates and keys are supplied as PEM bytes and are
// parsed lazily on Sign/Verify, not at construction time, so a LocalSigner
// with no keying material configured can still be passed around freely.
type LocalSigner struct {
	CertPEM         []byte
	KeyPEM          []byte
	IntermediatePEM []byte
	RootPEMs        [][]byte
}

// NewLocalSigner returns a LocalSigner wrapping the given PEM bytes.
// IntermediatePEM may be nil.
func NewLocalSigner(certPEM, keyPEM []byte, rootPEMs ...[]byte) *LocalSigner {
	return &LocalSigner{CertPEM: certPEM, KeyPEM: keyPEM, RootPEMs: rootPEMs}
}

// Sign produces a detached CMS signature over digest.
func (s *LocalSigner) Sign(digest []byte) ([]byte, error) {
	cert, key, err := s.parseCertAndKey()
	if err != nil {
		return nil, err
	}

	signedData, err := pkcs7.NewSignedData(digest)
	if err != nil || signedData == nil {
		return nil, newErr(KindSignatureError, "could not initialize signed data", err)
	}
	if err := signedData.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, newErr(KindSignatureError, "could not add signer", err)
	}
	if len(s.IntermediatePEM) > 0 {
		intermediate, err := parseCertPEM(s.IntermediatePEM)
		if err != nil {
			return nil, err
		}
		signedData.AddCertificate(intermediate)
	}
	signedData.Detach()

	cms, err := signedData.Finish()
	if err != nil {
		return nil, newErr(KindSignatureError, "could not finish signing", err)
	}
	return cms, nil
}

// Verify checks a detached CMS signature cms against digest, validating the
// signer's certificate chain against the configured root CAs.
func (s *LocalSigner) Verify(cms, digest []byte) error {
	p7, err := pkcs7.Parse(cms)
	if err != nil {
		return newErr(KindSignatureError, "could not parse signature", err)
	}
	p7.Content = digest

	roots, err := s.rootPool()
	if err != nil {
		return err
	}
	if err := p7.VerifyWithChain(roots); err != nil {
		return newErr(KindSignatureError, "signature verification failed", err)
	}
	return nil
}

// Digest256 returns the SHA-256 digest of data.
func Digest256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func (s *LocalSigner) parseCertAndKey() (*x509.Certificate, crypto.Signer, error) {
	cert, err := parseCertPEM(s.CertPEM)
	if err != nil {
		return nil, nil, err
	}
	key, err := parseKeyPEM(s.KeyPEM)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func (s *LocalSigner) rootPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, rootPEM := range s.RootPEMs {
		cert, err := parseCertPEM(rootPEM)
		if err != nil {
			return nil, err
		}
		pool.AddCert(cert)
	}
	return pool, nil
}

func parseCertPEM(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, newErr(KindParseError, "invalid certificate PEM", ErrInvalidCertificate)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, newErr(KindParseError, "invalid certificate", err)
	}
	return cert, nil
}

func parseKeyPEM(keyPEM []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, newErr(KindParseError, "invalid private key PEM", ErrInvalidPrivateKey)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, newErr(KindParseError, "invalid private key", ErrInvalidPrivateKey)
	}
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidPrivateKey, key)
	}
}
