// SPDX-FileCopyrightText: Copyright (c) 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package pkcs7

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	_ "crypto/sha256" // for crypto.SHA256
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
)

// ErrNoSigners is returned when a parsed PKCS7 structure carries no signers.
var ErrNoSigners = errors.New("pkcs7: no signers")

// ErrNoMatchingCert is returned when a signerInfo's issuer/serial does not
// match any certificate embedded in the structure.
var ErrNoMatchingCert = errors.New("pkcs7: no certificate matching signer")

// Parse decodes a DER (or PEM-stripped S/MIME) encoded PKCS7 SignedData
// structure. For a detached signature, Content is left nil; callers must set
// it to the externally supplied plaintext before calling Verify.
func Parse(data []byte) (*PKCS7, error) {
	var ci contentInfo
	if _, err := asn1.Unmarshal(data, &ci); err != nil {
		return nil, fmt.Errorf("pkcs7: could not parse content info: %w", err)
	}
	if !ci.ContentType.Equal(OIDSignedData) {
		return nil, fmt.Errorf("pkcs7: unsupported content type %s", ci.ContentType)
	}

	var sd signedData
	if _, err := asn1.Unmarshal(ci.Content.Bytes, &sd); err != nil {
		return nil, fmt.Errorf("pkcs7: could not parse signed data: %w", err)
	}

	certs, err := sd.Certificates.Parse()
	if err != nil {
		return nil, fmt.Errorf("pkcs7: could not parse certificates: %w", err)
	}

	var content []byte
	if len(sd.ContentInfo.Content.Bytes) > 0 {
		if _, err := asn1.Unmarshal(sd.ContentInfo.Content.FullBytes, &content); err != nil {
			content = sd.ContentInfo.Content.Bytes
		}
	}

	return &PKCS7{
		Content:      content,
		Certificates: certs,
		CRLs:         sd.CRLs,
		Signers:      sd.SignerInfos,
	}, nil
}

// getCertFromIssuerAndSerial returns the certificate in p7.Certificates whose
// issuer/serial matches ias, or nil if none does.
func (p7 *PKCS7) getCertFromIssuerAndSerial(ias issuerAndSerial) *x509.Certificate {
	for _, cert := range p7.Certificates {
		if cert.SerialNumber.Cmp(ias.SerialNumber) == 0 && bytes.Equal(cert.RawIssuer, ias.IssuerName.FullBytes) {
			return cert
		}
	}
	return nil
}

// Verify checks every signerInfo's message digest and signature against
// p7.Content and the embedded certificates. It does not validate the
// certificate chain; use VerifyWithChain for that.
func (p7 *PKCS7) Verify() error {
	if len(p7.Signers) == 0 {
		return ErrNoSigners
	}
	for _, signer := range p7.Signers {
		cert := p7.getCertFromIssuerAndSerial(signer.IssuerAndSerialNumber)
		if cert == nil {
			return ErrNoMatchingCert
		}
		if err := verifySignerInfo(p7.Content, signer, cert); err != nil {
			return err
		}
	}
	return nil
}

// VerifyWithChain performs Verify and additionally validates each signer's
// certificate against roots, using any other embedded certificates as
// intermediates. A certificate chain embedded in the CMS structure, such as
// one added with SignedData.AddCertificate, is accepted.
func (p7 *PKCS7) VerifyWithChain(roots *x509.CertPool) error {
	if err := p7.Verify(); err != nil {
		return err
	}
	for _, signer := range p7.Signers {
		cert := p7.getCertFromIssuerAndSerial(signer.IssuerAndSerialNumber)
		if cert == nil {
			return ErrNoMatchingCert
		}
		intermediates := x509.NewCertPool()
		for _, c := range p7.Certificates {
			if c.Equal(cert) {
				continue
			}
			intermediates.AddCert(c)
		}
		if _, err := cert.Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}); err != nil {
			return fmt.Errorf("pkcs7: certificate chain verification failed: %w", err)
		}
	}
	return nil
}

// verifySignerInfo checks the message-digest attribute against content, then
// verifies the signature over the authenticated attributes using cert.
func verifySignerInfo(content []byte, signer signerInfo, cert *x509.Certificate) error {
	var digest []byte
	found := false
	for _, attr := range signer.AuthenticatedAttributes {
		if attr.Type.Equal(OIDAttributeMessageDigest) {
			if _, err := asn1.Unmarshal(attr.Value.Bytes, &digest); err != nil {
				return fmt.Errorf("pkcs7: could not parse message digest attribute: %w", err)
			}
			found = true
			break
		}
	}
	if !found {
		return errors.New("pkcs7: missing message digest attribute")
	}

	h := crypto.SHA256.New()
	h.Write(content)
	actual := h.Sum(nil)
	if !bytes.Equal(digest, actual) {
		return &MessageDigestMismatchError{ExpectedDigest: digest, ActualDigest: actual}
	}

	attrBytes, err := marshalAttributes(signer.AuthenticatedAttributes)
	if err != nil {
		return fmt.Errorf("pkcs7: could not marshal authenticated attributes: %w", err)
	}
	ah := crypto.SHA256.New()
	ah.Write(attrBytes)
	hashed := ah.Sum(nil)

	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed, signer.EncryptedDigest); err != nil {
			return fmt.Errorf("pkcs7: signature verification failed: %w", err)
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, hashed, signer.EncryptedDigest) {
			return errors.New("pkcs7: signature verification failed")
		}
	default:
		return fmt.Errorf("pkcs7: unsupported public key type %T", cert.PublicKey)
	}
	return nil
}
