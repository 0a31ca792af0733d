package directory

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
)

// Config holds the settings for one directory session.
type Config struct {
	// ServerURI is the LDAP server address. The default lets the client
	// library look for the local UNIX domain socket in its usual location.
	ServerURI string `default:"ldapi:///"`

	// StartTLS upgrades a plain connection to TLS before any bind.
	StartTLS bool

	// BindDN selects the bind method. nil attempts a SASL EXTERNAL bind
	// (peer-credential trust over ldapi://); the empty string is an anonymous
	// bind; anything else is a simple bind with BindPW.
	BindDN *string

	// BindPW is the password for a simple bind.
	BindPW string

	// Timeout applies to every operation on the underlying connection.
	Timeout time.Duration `default:"30s"`

	// TLS trust settings, used for ldaps:// and StartTLS.
	TLSCACertFile         string
	TLSInsecureSkipVerify bool

	// Kerberos settings. Setting Realm selects a GSSAPI bind instead of the
	// methods derived from BindDN.
	KerberosRealm     string
	KerberosPrincipal string
	KerberosKeytab    string
	KerberosCCache    string
	KerberosConfig    string `default:"/etc/krb5.conf"`
	KerberosSPN       string
}

// AuthMethod identifies how the session binds to the server.
type AuthMethod int

const (
	AuthMethodExternal AuthMethod = iota // SASL EXTERNAL (no credentials)
	AuthMethodAnonymous
	AuthMethodSimpleBind
	AuthMethodKerberos
)

func (a AuthMethod) String() string {
	switch a {
	case AuthMethodExternal:
		return "external"
	case AuthMethodAnonymous:
		return "anonymous"
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	default:
		return "unknown"
	}
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Only reachable with a malformed struct tag.
		panic(err)
	}
	return cfg
}

// ApplyDefaults fills zero-valued fields from the struct tags.
func (c *Config) ApplyDefaults() error {
	return defaults.Set(c)
}

// AuthMethod determines the bind method from the configuration. Kerberos
// takes precedence when a realm is configured; otherwise the method follows
// the three-way bind DN semantics of the module parameters.
func (c *Config) AuthMethod() AuthMethod {
	if c.KerberosRealm != "" {
		return AuthMethodKerberos
	}

	if c.BindDN == nil {
		return AuthMethodExternal
	}

	if *c.BindDN == "" && c.BindPW == "" {
		return AuthMethodAnonymous
	}

	return AuthMethodSimpleBind
}

// TLSConfig builds the TLS configuration for ldaps:// and StartTLS.
func (c *Config) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.TLSInsecureSkipVerify,
	}

	if c.TLSCACertFile != "" {
		pem, err := os.ReadFile(c.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.TLSCACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
