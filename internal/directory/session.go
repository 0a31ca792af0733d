package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
)

// ModifyOp identifies a modification operation type.
type ModifyOp int

const (
	OpAdd ModifyOp = iota // add values to the attribute
	OpDelete
	OpDeleteAll // remove the attribute and all of its values
	OpReplace
)

func (op ModifyOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpDeleteAll:
		return "delete_all"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the operation as its string name.
func (op ModifyOp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + op.String() + `"`), nil
}

// Modification is a single operation on one attribute of an entry. A list of
// Modifications sent through ApplyModification forms one atomic modify
// request.
type Modification struct {
	Op        ModifyOp `json:"op"`
	Attribute string   `json:"attribute"`
	Values    []string `json:"values,omitempty"`
}

// Session is an authenticated channel to the directory server.
type Session interface {
	// ValuePresent asks the server whether value is currently among the
	// attribute's values on the entry, using a protocol Compare so the
	// server's matching rules decide equality. A missing attribute is
	// reported as absent, not as an error.
	ValuePresent(ctx context.Context, dn, attribute, value string) (bool, error)

	// CurrentValues fetches all current values of the attribute on the entry.
	// A present entry with no such attribute yields an empty slice.
	CurrentValues(ctx context.Context, dn, attribute string) ([]string, error)

	// ApplyModification sends the modifications as a single atomic modify
	// request.
	ApplyModification(ctx context.Context, dn string, mods []Modification) error

	// Close releases the underlying connection, if one was established.
	Close() error
}

// session implements Session over one lazily-established connection.
type session struct {
	config *Config
	logger hclog.Logger
	conn   *ldap.Conn
}

// NewSession creates a session for the given configuration. No connection is
// made until the first operation.
func NewSession(config *Config, logger hclog.Logger) Session {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &session{
		config: config,
		logger: logger.Named("directory"),
	}
}

// connection returns the authenticated connection, establishing it on first
// use.
func (s *session) connection(ctx context.Context) (*ldap.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}

	if err := s.bind(conn); err != nil {
		conn.Close()
		return nil, err
	}

	s.conn = conn
	return s.conn, nil
}

// connect dials the server and negotiates TLS as configured.
func (s *session) connect() (*ldap.Conn, error) {
	uri := s.config.ServerURI

	fields := map[string]any{
		"server_uri": uri,
		"start_tls":  s.config.StartTLS,
	}

	start := time.Now()

	var conn *ldap.Conn
	var err error

	if strings.HasPrefix(uri, "ldaps://") {
		tlsConfig, tlsErr := s.config.TLSConfig()
		if tlsErr != nil {
			return nil, NewDirectoryError("connect", "", tlsErr)
		}
		conn, err = ldap.DialURL(uri, ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL(uri)
		if err == nil && s.config.StartTLS {
			tlsConfig, tlsErr := s.config.TLSConfig()
			if tlsErr != nil {
				conn.Close()
				return nil, NewDirectoryError("connect", "", tlsErr)
			}
			if err = conn.StartTLS(tlsConfig); err != nil {
				conn.Close()
				conn = nil
			}
		}
	}

	if err != nil {
		LogDirectoryError(s.logger, "connect", err, fields)
		return nil, NewDirectoryError("connect", "", fmt.Errorf("failed to connect to %s: %w", uri, err))
	}

	conn.SetTimeout(s.config.Timeout)

	fields["duration_ms"] = time.Since(start).Milliseconds()
	s.logger.Debug("connection established", fieldArgs(fields)...)

	return conn, nil
}

// bind authenticates the connection using the configured method.
func (s *session) bind(conn *ldap.Conn) error {
	method := s.config.AuthMethod()

	fields := map[string]any{
		"auth_method": method.String(),
	}

	err := LogOperation(s.logger, "bind", fields, func() error {
		switch method {
		case AuthMethodExternal:
			return conn.ExternalBind()
		case AuthMethodAnonymous:
			return conn.UnauthenticatedBind("")
		case AuthMethodSimpleBind:
			// The library rejects simple binds with empty passwords, so an
			// unauthenticated bind carries the DN-without-password case.
			if s.config.BindPW == "" {
				return conn.UnauthenticatedBind(*s.config.BindDN)
			}
			return conn.Bind(*s.config.BindDN, s.config.BindPW)
		case AuthMethodKerberos:
			return kerberosBind(conn, s.config)
		default:
			return fmt.Errorf("unsupported authentication method: %s", method.String())
		}
	})

	if err != nil {
		return NewDirectoryError("bind", "", err)
	}

	return nil
}

// ValuePresent performs a server-side Compare of value against the attribute.
func (s *session) ValuePresent(ctx context.Context, dn, attribute, value string) (bool, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return false, err
	}

	present, err := conn.Compare(dn, attribute, value)
	if err != nil {
		if IsNoSuchAttribute(err) {
			return false, nil
		}
		LogDirectoryError(s.logger, "compare", err, map[string]any{
			"dn":        dn,
			"attribute": attribute,
		})
		return false, NewDirectoryError("compare", dn, err)
	}

	return present, nil
}

// CurrentValues fetches all values of the attribute with a base-scope search
// restricted to that attribute.
func (s *session) CurrentValues(ctx context.Context, dn, attribute string) ([]string, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{attribute},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		LogDirectoryError(s.logger, "search", err, map[string]any{
			"dn":        dn,
			"attribute": attribute,
		})
		return nil, NewDirectoryError("search", dn, err)
	}

	if len(result.Entries) == 0 {
		return nil, NewDirectoryError("search", dn,
			ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no entry returned for base-scope search")))
	}

	values := result.Entries[0].GetAttributeValues(attribute)

	s.logger.Debug("fetched current values",
		"dn", dn,
		"attribute", attribute,
		"value_count", len(values),
	)

	return values, nil
}

// ApplyModification sends the modifications as one atomic modify request.
func (s *session) ApplyModification(ctx context.Context, dn string, mods []Modification) error {
	if len(mods) == 0 {
		return nil
	}

	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}

	req := buildModifyRequest(dn, mods)

	fields := map[string]any{
		"dn":        dn,
		"op_count":  len(mods),
		"first_op":  mods[0].Op.String(),
		"attribute": mods[0].Attribute,
	}

	err = LogOperation(s.logger, "modify", fields, func() error {
		return conn.Modify(req)
	})
	if err != nil {
		return NewDirectoryError("modify", dn, err)
	}

	return nil
}

// buildModifyRequest converts an ordered modification list into a single
// go-ldap modify request.
func buildModifyRequest(dn string, mods []Modification) *ldap.ModifyRequest {
	req := ldap.NewModifyRequest(dn, nil)

	for _, mod := range mods {
		switch mod.Op {
		case OpAdd:
			req.Add(mod.Attribute, mod.Values)
		case OpDelete:
			req.Delete(mod.Attribute, mod.Values)
		case OpDeleteAll:
			// Deleting with no values removes the attribute entirely.
			req.Delete(mod.Attribute, []string{})
		case OpReplace:
			req.Replace(mod.Attribute, mod.Values)
		}
	}

	return req
}

// Close releases the connection, if one was established.
func (s *session) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil

	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}
