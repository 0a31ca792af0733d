package directory

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// kerberosBind performs a GSSAPI bind on conn using the configured
// credentials.
func kerberosBind(conn *ldap.Conn, cfg *Config) error {
	if err := prepareKerberosConfig(cfg); err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, err := newGSSAPIClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := servicePrincipal(cfg)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// newGSSAPIClient creates a GSSAPI client from the configured credentials.
// Priority order: credential cache, keytab, password.
func newGSSAPIClient(cfg *Config) (ldap.GSSAPIClient, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = "/etc/krb5.conf"
	}

	if !fileExists(krb5conf) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s", krb5conf)
	}

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if ccache := defaultCCachePath(); fileExists(ccache) {
		return gssapi.NewClientFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		return gssapi.NewClientWithKeytab(cfg.KerberosPrincipal, cfg.KerberosRealm, cfg.KerberosKeytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosPrincipal != "" {
		if keytab := defaultKeytabPath(); fileExists(keytab) {
			return gssapi.NewClientWithKeytab(cfg.KerberosPrincipal, cfg.KerberosRealm, keytab, krb5conf, krb5client.DisablePAFXFAST(true))
		}
	}

	if cfg.KerberosPrincipal != "" && cfg.BindPW != "" {
		return gssapi.NewClientWithPassword(cfg.KerberosPrincipal, cfg.KerberosRealm, cfg.BindPW, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// servicePrincipal constructs the ldap/<host> SPN from the server URI, unless
// an explicit SPN override is configured.
func servicePrincipal(cfg *Config) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	parsed, err := url.Parse(cfg.ServerURI)
	if err != nil {
		return "", fmt.Errorf("invalid server URI: %w", err)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("no hostname in server URI %q (set an explicit SPN for socket connections)", cfg.ServerURI)
	}

	return fmt.Sprintf("ldap/%s", hostname), nil
}

// prepareKerberosConfig validates the Kerberos settings, extracting the realm
// from a principal@REALM form when needed.
func prepareKerberosConfig(cfg *Config) error {
	if cfg.KerberosConfig == "" {
		cfg.KerberosConfig = "/etc/krb5.conf"
	}

	if cfg.KerberosRealm == "" && strings.Contains(cfg.KerberosPrincipal, "@") {
		parts := strings.SplitN(cfg.KerberosPrincipal, "@", 2)
		cfg.KerberosPrincipal = parts[0]
		cfg.KerberosRealm = parts[1]
	}

	if cfg.KerberosRealm == "" {
		return fmt.Errorf("kerberos realm is required (set the realm or include it in the principal)")
	}

	hasCCache := (cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache)) || fileExists(defaultCCachePath())
	hasKeytab := (cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab)) ||
		(cfg.KerberosPrincipal != "" && fileExists(defaultKeytabPath()))
	hasPassword := cfg.KerberosPrincipal != "" && cfg.BindPW != ""

	if !hasCCache && !hasKeytab && !hasPassword {
		return fmt.Errorf("no suitable Kerberos credentials found: provide a credential cache, keytab or password")
	}

	return nil
}

// defaultCCachePath returns the default credential cache location.
func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// defaultKeytabPath returns the default keytab location.
func defaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

// fileExists checks that a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}
