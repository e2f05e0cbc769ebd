package bridge

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/ameistad/eydeploy/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func writePrivateKey(t *testing.T, dir, name string) string {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(key, "")
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func isolateSSH(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SSH_AUTH_SOCK", "")
	return home
}

func TestAuthMethods_NoCredentials(t *testing.T) {
	isolateSSH(t)

	_, _, err := authMethods("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), constants.EnvVarSSHIdentity)
}

func TestAuthMethods_IdentityFile(t *testing.T) {
	isolateSSH(t)
	keyFile := writePrivateKey(t, t.TempDir(), "deploy_key")

	methods, cleanup, err := authMethods(keyFile)
	require.NoError(t, err)
	defer cleanup()
	assert.Len(t, methods, 1)

	_, _, err = authMethods(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestAuthMethods_DefaultKeys(t *testing.T) {
	home := isolateSSH(t)
	sshDir := filepath.Join(home, ".ssh")
	require.NoError(t, os.MkdirAll(sshDir, 0o700))
	writePrivateKey(t, sshDir, "id_ed25519")
	require.NoError(t, os.WriteFile(filepath.Join(sshDir, "id_rsa"), []byte("not a key"), 0o600))

	methods, cleanup, err := authMethods("")
	require.NoError(t, err)
	defer cleanup()
	assert.Len(t, methods, 1, "unparseable default keys are skipped")
}

func TestBuildSSHConfig(t *testing.T) {
	isolateSSH(t)
	keyFile := writePrivateKey(t, t.TempDir(), "deploy_key")

	config, cleanup, err := buildSSHConfig("deploy", keyFile)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "deploy", config.User)
	assert.NotNil(t, config.HostKeyCallback)
	assert.NotZero(t, config.Timeout)
}
