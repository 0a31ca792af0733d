/*
Package directory provides the authenticated LDAP session used by the
attribute reconciler.

The package exposes a small Session interface over a single lazily-established
connection:

  - ValuePresent: server-side Compare of one value against an attribute
  - CurrentValues: base-scope fetch of all values of one attribute
  - ApplyModification: a single atomic modify request built from an ordered
    list of Modification operations

Value comparisons for ValuePresent happen on the server so that the
directory's own matching rules (case folding, whitespace normalization,
binary syntaxes) remain authoritative. Only callers that need the complete
current value set fall back to client-side equality.

# Connection Management

One invocation owns one session. The connection is dialled on first use,
reused for every subsequent operation, and released by Close. There is no
pooling, no reconnection, and no retry: every directory failure is fatal and
surfaces to the caller unmodified.

# Authentication

The bind method is chosen from the configuration:

  - no bind DN configured: SASL EXTERNAL, the local-trust path over ldapi://
  - bind DN with password: simple bind
  - bind DN without password (including the empty DN): anonymous
    unauthenticated bind
  - Kerberos realm configured: GSSAPI bind via gokrb5

# Error Handling

Failures are wrapped into DirectoryError with a category derived from the
LDAP result code (connection, authentication, not_found, ...). The helpers
IsNoSuchEntry and IsNoSuchAttribute distinguish "the entry is missing"
(fatal) from "the attribute has no such value" (a normal planning signal).
*/
package directory
