package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesiredValues(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "single value",
			args: []string{"--values", "dc=example,dc=com"},
			want: []string{"dc=example,dc=com"},
		},
		{
			name: "single empty value normalizes to empty set",
			args: []string{"--values", ""},
			want: nil,
		},
		{
			name: "repeated values form a list",
			args: []string{"--values", "a", "--values", "b"},
			want: []string{"a", "b"},
		},
		{
			name: "repeated empty values stay members",
			args: []string{"--values", "", "--values", "a"},
			want: []string{"", "a"},
		},
		{
			name:    "missing values",
			args:    []string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			got, err := desiredValues(cmd)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got.Values())
			} else {
				assert.Equal(t, tt.want, got.Values())
			}
		})
	}
}

func TestBindDN(t *testing.T) {
	t.Run("omitted means external bind", func(t *testing.T) {
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		assert.Nil(t, bindDN(cmd))
	})

	t.Run("empty means anonymous bind", func(t *testing.T) {
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--bind-dn", ""}))

		dn := bindDN(cmd)
		require.NotNil(t, dn)
		assert.Equal(t, "", *dn)
	})

	t.Run("explicit DN", func(t *testing.T) {
		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--bind-dn", "cn=admin,dc=example,dc=com"}))

		dn := bindDN(cmd)
		require.NotNil(t, dn)
		assert.Equal(t, "cn=admin,dc=example,dc=com", *dn)
	})

	t.Run("environment supplies DN when flag omitted", func(t *testing.T) {
		t.Setenv("LDAP_ATTR_BIND_DN", "cn=reader,dc=example,dc=com")

		cmd := newRootCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		dn := bindDN(cmd)
		require.NotNil(t, dn)
		assert.Equal(t, "cn=reader,dc=example,dc=com", *dn)
	})
}
