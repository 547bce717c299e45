package tlsconfig

import (
    "crypto/tls"
    "crypto/x509"
    "errors"
    "fmt"
    "os"
    "sync"
    "time"
)

// reloadTTL bounds how long a loaded key pair is reused before the files are
// read again, so certificates can be rotated without a restart.
const reloadTTL = 10 * time.Second

// ErrMissingKeyPair is returned when a server config is requested without a
// certificate and key.
var ErrMissingKeyPair = errors.New("tls: server cert/key required when TLS enabled")

// Options defines mTLS inputs for the management endpoint.
type Options struct {
    Enable             bool
    CAFile             string
    CertFile           string
    KeyFile            string
    InsecureSkipVerify bool
    ServerName         string
}

// Server returns a tls.Config for the management listener, or nil when TLS
// is disabled. A CA file turns on client certificate verification.
func (o Options) Server() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    if o.CertFile == "" || o.KeyFile == "" { return nil, ErrMissingKeyPair }
    kp := &keyPair{cert: o.CertFile, key: o.KeyFile}
    if _, err := kp.load(); err != nil { return nil, err }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12}
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.ClientCAs = pool
        cfg.ClientAuth = tls.RequireAndVerifyClientCert
    }
    cfg.GetCertificate = func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return kp.load() }
    return cfg, nil
}

// Client returns a tls.Config for management API clients, or nil when TLS is
// disabled. The client certificate is optional.
func (o Options) Client() (*tls.Config, error) {
    if !o.Enable { return nil, nil }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: o.InsecureSkipVerify} //nolint:gosec
    if o.ServerName != "" { cfg.ServerName = o.ServerName }
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.RootCAs = pool
    }
    if o.CertFile != "" && o.KeyFile != "" {
        kp := &keyPair{cert: o.CertFile, key: o.KeyFile}
        if _, err := kp.load(); err != nil { return nil, err }
        cfg.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) { return kp.load() }
    }
    return cfg, nil
}

func loadPool(path string) (*x509.CertPool, error) {
    ca, err := os.ReadFile(path)
    if err != nil { return nil, err }
    pool := x509.NewCertPool()
    if !pool.AppendCertsFromPEM(ca) {
        return nil, fmt.Errorf("tls: no certificates found in %s", path)
    }
    return pool, nil
}

// keyPair caches a certificate loaded from disk for reloadTTL.
type keyPair struct {
    cert, key string

    mu       sync.RWMutex
    cached   *tls.Certificate
    lastLoad time.Time
}

func (k *keyPair) load() (*tls.Certificate, error) {
    k.mu.RLock()
    if k.cached != nil && time.Since(k.lastLoad) < reloadTTL {
        c := k.cached
        k.mu.RUnlock()
        return c, nil
    }
    k.mu.RUnlock()
    cert, err := tls.LoadX509KeyPair(k.cert, k.key)
    if err != nil { return nil, err }
    k.mu.Lock()
    k.cached = &cert
    k.lastLoad = time.Now()
    k.mu.Unlock()
    return &cert, nil
}
