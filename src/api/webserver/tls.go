package webserver

import (
	"crypto/tls"
	"log"
	"os"
	"sync"
	"time"
)

// TLSReloader serves the certificate pair from disk and picks up rotated
// files without a restart. Deployments that terminate TLS at a proxy can
// skip it entirely.
type TLSReloader struct {
	certFile string
	keyFile  string

	mu      sync.RWMutex
	cert    *tls.Certificate
	modCert time.Time
	modKey  time.Time
}

func NewTLSReloader(certFile, keyFile string) (*TLSReloader, error) {
	r := &TLSReloader{certFile: certFile, keyFile: keyFile}
	if err := r.reload(); err != nil {
		return nil, err
	}
	go r.watch()
	return r, nil
}

func (r *TLSReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	if info, err := os.Stat(r.certFile); err == nil {
		r.modCert = info.ModTime()
	}
	if info, err := os.Stat(r.keyFile); err == nil {
		r.modKey = info.ModTime()
	}

	log.Printf("TLS certificates loaded from %s", r.certFile)
	return nil
}

func (r *TLSReloader) watch() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		certInfo, err := os.Stat(r.certFile)
		if err != nil {
			log.Printf("stat %s: %v", r.certFile, err)
			continue
		}
		keyInfo, err := os.Stat(r.keyFile)
		if err != nil {
			log.Printf("stat %s: %v", r.keyFile, err)
			continue
		}

		if certInfo.ModTime().After(r.modCert) || keyInfo.ModTime().After(r.modKey) {
			log.Printf("certificate files changed, reloading")
			if err := r.reload(); err != nil {
				log.Printf("reload certificates: %v", err)
			}
		}
	}
}

func (r *TLSReloader) Config() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			return r.cert, nil
		},
	}
}
