package webserver

import (
	"crypto/tls"
	"log"
	"os"
	"sync"
	"time"
)

// TLSReloader serves the current cert pair and picks up rotated files
// without a restart.
type TLSReloader struct {
	certFile    string
	keyFile     string
	cert        *tls.Certificate
	mu          sync.RWMutex
	lastModCert time.Time
	lastModKey  time.Time
}

func NewTLSReloader(certFile, keyFile string) (*TLSReloader, error) {
	reloader := &TLSReloader{
		certFile: certFile,
		keyFile:  keyFile,
	}

	if err := reloader.reload(); err != nil {
		return nil, err
	}

	go reloader.watchFiles()

	return reloader, nil
}

func (r *TLSReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	if certInfo, err := os.Stat(r.certFile); err == nil {
		r.lastModCert = certInfo.ModTime()
	}
	if keyInfo, err := os.Stat(r.keyFile); err == nil {
		r.lastModKey = keyInfo.ModTime()
	}

	log.Printf("TLS certificates reloaded")
	return nil
}

func (r *TLSReloader) watchFiles() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		certInfo, err := os.Stat(r.certFile)
		if err != nil {
			log.Printf("Failed to stat cert file: %v", err)
			continue
		}
		keyInfo, err := os.Stat(r.keyFile)
		if err != nil {
			log.Printf("Failed to stat key file: %v", err)
			continue
		}

		if certInfo.ModTime().After(r.lastModCert) || keyInfo.ModTime().After(r.lastModKey) {
			log.Printf("Certificate files changed, reloading...")
			if err := r.reload(); err != nil {
				log.Printf("Failed to reload certificates: %v", err)
			}
		}
	}
}

func (r *TLSReloader) GetConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			return r.cert, nil
		},
		MinVersion: tls.VersionTLS12,
	}
}
