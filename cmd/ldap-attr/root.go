// Command ldap-attr adds, removes or fixes the values of a single attribute
// on an existing directory entry, issuing the minimal modify operation needed.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/isometry/ldap-attr/internal/directory"
	"github.com/isometry/ldap-attr/internal/reconcile"
)

const envPrefix = "LDAP_ATTR"

// failure is the JSON document written for a failed invocation.
type failure struct {
	Failed bool   `json:"failed"`
	Msg    string `json:"msg"`
	Detail string `json:"exc,omitempty"`
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ldap-attr",
		Short: "Reconcile the values of one LDAP attribute",
		Long: `ldap-attr reconciles the values of a single attribute on an existing
directory entry against a desired set, issuing the minimal modify operation
needed. It only deals with attributes on existing entries; it never creates
or deletes entries.

With no bind DN the tool attempts a SASL EXTERNAL bind over the local
socket, which matches the default OpenLDAP cn=config trust for root. Pass
--bind-dn and --bind-pw for a simple bind; an empty --bind-dn is an
anonymous bind.

For state=present and state=absent all value comparisons are performed on
the server for maximum accuracy. For state=exact, values are compared
client-side, which ignores LDAP matching rules; spurious changes are
possible when target and actual values are semantically identical but
lexically distinct.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runReconcile,
	}

	flags := cmd.Flags()
	flags.String("dn", "", "DN of the entry to modify (required)")
	flags.String("name", "", "name of the attribute to modify (required)")
	flags.StringArray("values", nil, "desired value(s); repeatable")
	flags.String("state", "present", "desired state of the values: present, absent or exact")
	flags.String("server-uri", "", "URI of the LDAP server (default ldapi:///)")
	flags.Bool("start-tls", false, "negotiate TLS before binding")
	flags.String("bind-dn", "", "DN to bind with; omit for SASL EXTERNAL, empty for anonymous")
	flags.String("bind-pw", "", "password for --bind-dn")
	flags.Bool("check", false, "compute the modification but do not apply it")
	flags.Duration("timeout", 30*time.Second, "directory operation timeout")
	flags.String("tls-ca-cert", "", "CA certificate file for server verification")
	flags.Bool("tls-insecure", false, "skip server certificate verification")
	flags.String("krb-realm", "", "Kerberos realm; set to bind via GSSAPI")
	flags.String("krb-principal", "", "Kerberos principal")
	flags.String("krb-keytab", "", "Kerberos keytab file")
	flags.String("krb-ccache", "", "Kerberos credential cache file")
	flags.String("krb-config", "", "krb5.conf path (default /etc/krb5.conf)")
	flags.String("krb-spn", "", "explicit service principal name override")
	flags.String("log-level", "off", "log verbosity on stderr: trace, debug, info, warn, error, off")

	_ = cmd.MarkFlagRequired("dn")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func run() int {
	cmd := newRootCmd()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := cmd.Execute(); err != nil {
		code := 1
		if errors.Is(err, reconcile.ErrInvalidValues) {
			code = 2
		}
		report(failure{Failed: true, Msg: err.Error(), Detail: errorDetail(err)})
		return code
	}

	return 0
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "ldap-attr",
		Level:  hclog.LevelFromString(viper.GetString("log-level")),
		Output: os.Stderr,
	})

	mode, err := reconcile.ParseMode(viper.GetString("state"))
	if err != nil {
		return err
	}

	values, err := desiredValues(cmd)
	if err != nil {
		return err
	}

	config := directory.DefaultConfig()
	if uri := viper.GetString("server-uri"); uri != "" {
		config.ServerURI = uri
	}
	config.StartTLS = viper.GetBool("start-tls")
	config.BindPW = viper.GetString("bind-pw")
	config.Timeout = viper.GetDuration("timeout")
	config.TLSCACertFile = viper.GetString("tls-ca-cert")
	config.TLSInsecureSkipVerify = viper.GetBool("tls-insecure")
	config.KerberosRealm = viper.GetString("krb-realm")
	config.KerberosPrincipal = viper.GetString("krb-principal")
	config.KerberosKeytab = viper.GetString("krb-keytab")
	config.KerberosCCache = viper.GetString("krb-ccache")
	if krb5conf := viper.GetString("krb-config"); krb5conf != "" {
		config.KerberosConfig = krb5conf
	}
	config.KerberosSPN = viper.GetString("krb-spn")
	config.BindDN = bindDN(cmd)

	session := directory.NewSession(config, logger)
	defer session.Close()

	reconciler := reconcile.New(session, logger)

	result, err := reconciler.Run(cmd.Context(), reconcile.Options{
		Target: reconcile.Target{
			DN:        viper.GetString("dn"),
			Attribute: viper.GetString("name"),
		},
		Values:    values,
		Mode:      mode,
		CheckMode: viper.GetBool("check"),
	})
	if err != nil {
		return err
	}

	report(result)
	return nil
}

// desiredValues normalizes the values parameter. A single occurrence is
// treated as a scalar so that the empty string collapses to the empty set;
// multiple occurrences form a list.
func desiredValues(cmd *cobra.Command) (reconcile.ValueSet, error) {
	raw, err := cmd.Flags().GetStringArray("values")
	if err != nil {
		return reconcile.ValueSet{}, err
	}

	if !cmd.Flags().Changed("values") {
		if env, ok := os.LookupEnv(envPrefix + "_VALUES"); ok {
			return reconcile.NormalizeValues(env)
		}
		return reconcile.ValueSet{}, fmt.Errorf("%w: no values given", reconcile.ErrInvalidValues)
	}

	if len(raw) == 1 {
		return reconcile.NormalizeValues(raw[0])
	}
	return reconcile.NormalizeValues(raw)
}

// bindDN distinguishes an omitted bind DN (SASL EXTERNAL) from an empty one
// (anonymous bind).
func bindDN(cmd *cobra.Command) *string {
	if cmd.Flags().Changed("bind-dn") {
		v, _ := cmd.Flags().GetString("bind-dn")
		return &v
	}
	if v, ok := os.LookupEnv(envPrefix + "_BIND_DN"); ok {
		return &v
	}
	return nil
}

// report writes a single JSON document to stdout.
func report(v any) {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

// errorDetail extracts the diagnostic trace of a directory failure.
func errorDetail(err error) string {
	var dirErr *directory.DirectoryError
	if errors.As(err, &dirErr) && dirErr.Cause != nil {
		return dirErr.Cause.Error()
	}
	return ""
}
