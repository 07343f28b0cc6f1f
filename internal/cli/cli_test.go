package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/domain"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := NewRootCmd()

	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"seed-admin"},
		{"create-user"},
		{"token"},
		{"purge-jobs"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestCreateUserFlags(t *testing.T) {
	base := createUserFlags{name: "Ravi", email: "ravi@city.gov", password: "Str0ng!pass"}

	tests := []struct {
		name    string
		mutate  func(*createUserFlags)
		wantErr string
		check   func(*testing.T, domain.CreateUserParams)
	}{
		{
			name:   "citizen keeps ward",
			mutate: func(f *createUserFlags) { f.role = "citizen"; f.ward = "12"; f.department = "Roads" },
			check: func(t *testing.T, p domain.CreateUserParams) {
				assert.Equal(t, domain.RoleCitizen, p.Role)
				assert.Equal(t, "12", p.WardNumber)
				assert.Empty(t, p.Department)
				assert.True(t, p.Enabled)
			},
		},
		{
			name:   "officer keeps department",
			mutate: func(f *createUserFlags) { f.role = "OFFICER"; f.department = "Roads"; f.ward = "12"; f.disabled = true },
			check: func(t *testing.T, p domain.CreateUserParams) {
				assert.Equal(t, domain.RoleOfficer, p.Role)
				assert.Equal(t, "Roads", p.Department)
				assert.Empty(t, p.WardNumber)
				assert.False(t, p.Enabled)
			},
		},
		{
			name:   "admin",
			mutate: func(f *createUserFlags) { f.role = "ROLE_ADMIN" },
			check: func(t *testing.T, p domain.CreateUserParams) {
				assert.Equal(t, domain.RoleAdmin, p.Role)
			},
		},
		{
			name:    "officer needs department",
			mutate:  func(f *createUserFlags) { f.role = "OFFICER" },
			wantErr: "--department",
		},
		{
			name:    "unknown role",
			mutate:  func(f *createUserFlags) { f.role = "MAYOR" },
			wantErr: "unknown role",
		},
		{
			name:    "missing password",
			mutate:  func(f *createUserFlags) { f.role = "CITIZEN"; f.password = "" },
			wantErr: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)

			p, err := f.params()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestCommands_ValidateBeforeConnecting(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "token without email", args: []string{"token"}, wantErr: "--email"},
		{name: "purge with zero window", args: []string{"purge-jobs", "--older-than", "0s"}, wantErr: "--older-than"},
		{name: "create-user without fields", args: []string{"create-user", "--role", "CITIZEN"}, wantErr: "required"},
		{name: "migrate takes no args", args: []string{"migrate", "up", "extra"}, wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			root := NewRootCmd()
			var out, errOut bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&errOut)
			root.SetArgs(tt.args)

			err := root.Execute()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, out.String())
		})
	}
}
