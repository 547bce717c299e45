package tlsconfig

import (
    "crypto/rand"
    "crypto/rsa"
    "crypto/tls"
    "crypto/x509"
    "crypto/x509/pkix"
    "encoding/pem"
    "errors"
    "math/big"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestDisabledReturnsNil(t *testing.T) {
    s, err := Options{}.Server()
    if err != nil || s != nil { t.Fatalf("expected nil server config, got %v %v", s, err) }
    c, err := Options{}.Client()
    if err != nil || c != nil { t.Fatalf("expected nil client config, got %v %v", c, err) }
}

func TestServerRequiresKeyPair(t *testing.T) {
    if _, err := (Options{Enable: true}).Server(); !errors.Is(err, ErrMissingKeyPair) {
        t.Fatalf("expected ErrMissingKeyPair, got %v", err)
    }
}

func TestServerAndClientFromFiles(t *testing.T) {
    dir := t.TempDir()
    ca, crt, key := writeSelfSigned(t, dir)

    srv, err := Options{Enable: true, CAFile: ca, CertFile: crt, KeyFile: key}.Server()
    if err != nil { t.Fatalf("server: %v", err) }
    if srv.ClientAuth != tls.RequireAndVerifyClientCert || srv.ClientCAs == nil {
        t.Fatalf("CA file must enable client verification")
    }
    c1, err := srv.GetCertificate(nil)
    if err != nil { t.Fatalf("get certificate: %v", err) }
    c2, _ := srv.GetCertificate(nil)
    if c1 != c2 { t.Fatalf("key pair should be cached within the reload window") }

    cli, err := Options{Enable: true, CAFile: ca, CertFile: crt, KeyFile: key, ServerName: "localhost"}.Client()
    if err != nil { t.Fatalf("client: %v", err) }
    if cli.RootCAs == nil || cli.ServerName != "localhost" || cli.GetClientCertificate == nil {
        t.Fatalf("unexpected client config: %+v", cli)
    }
}

func TestBadCAFile(t *testing.T) {
    dir := t.TempDir()
    bad := filepath.Join(dir, "ca.crt")
    if err := os.WriteFile(bad, []byte("not pem"), 0o600); err != nil { t.Fatal(err) }
    if _, err := (Options{Enable: true, CAFile: bad}).Client(); err == nil {
        t.Fatalf("expected error for CA file without certificates")
    }
}

func writeSelfSigned(t *testing.T, dir string) (ca, crt, key string) {
    t.Helper()
    priv, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil { t.Fatal(err) }
    tpl := &x509.Certificate{
        SerialNumber:          big.NewInt(1),
        Subject:               pkix.Name{CommonName: "localhost"},
        DNSNames:              []string{"localhost"},
        NotBefore:             time.Now().Add(-time.Hour),
        NotAfter:              time.Now().Add(time.Hour),
        KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
        ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
        IsCA:                  true,
        BasicConstraintsValid: true,
    }
    der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &priv.PublicKey, priv)
    if err != nil { t.Fatal(err) }
    crt = filepath.Join(dir, "node.crt")
    key = filepath.Join(dir, "node.key")
    writePEM(t, crt, "CERTIFICATE", der)
    writePEM(t, key, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(priv))
    return crt, crt, key
}

func writePEM(t *testing.T, path, typ string, der []byte) {
    t.Helper()
    b := pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
    if err := os.WriteFile(path, b, 0o600); err != nil { t.Fatalf("write %s: %v", path, err) }
}
