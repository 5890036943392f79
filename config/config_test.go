package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"xdao.co/zkverify/model"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	v := viper.New()
	require.NoError(t, Bind(v, fs))
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	require.Equal(t, "mychannel", cfg.Channel)
	require.Equal(t, "gnarkverify", cfg.Chaincode)
	require.Equal(t, "Org1MSP", cfg.MSPID)
	require.Equal(t, "localhost:7051", cfg.PeerEndpoint)
	require.Equal(t, "peer0.org1.example.com", cfg.PeerHostAlias)
	require.Equal(t, ModeAbort, cfg.Mode)
	require.Equal(t, SelectionFirst, cfg.ArtifactSelection)
	require.Equal(t, HashSHA256, cfg.Hash)
	require.Equal(t, []string{"generate"}, cfg.GeneratorArgs)

	user := filepath.Join(DefaultCryptoPath, "users", "User1@org1.example.com", "msp")
	require.Equal(t, filepath.Join(user, "keystore"), cfg.KeyDir)
	require.Equal(t, filepath.Join(user, "signcerts"), cfg.CertDir)
	require.Equal(t, filepath.Join(DefaultCryptoPath, "peers", "peer0.org1.example.com", "tls", "ca.crt"), cfg.TLSCertPath)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("CHANNEL_NAME", "zkchannel")
	t.Setenv("CRYPTO_PATH", "/crypto")
	t.Setenv("PEER_ENDPOINT", "peer.example:9051")
	t.Setenv("MODE", "Collect")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	require.Equal(t, "zkchannel", cfg.Channel)
	require.Equal(t, "peer.example:9051", cfg.PeerEndpoint)
	require.Equal(t, ModeCollect, cfg.Mode)
	require.Equal(t, "/crypto/users/User1@org1.example.com/msp/keystore", cfg.KeyDir)
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("CHAINCODE_NAME", "from-env")
	t.Setenv("KEY_DIRECTORY_PATH", "/env/keystore")

	cfg, err := Load(newViper(t, "--chaincode", "from-flag", "--generator-args", "generate --fast"))
	require.NoError(t, err)
	require.Equal(t, "from-flag", cfg.Chaincode)
	require.Equal(t, "/env/keystore", cfg.KeyDir)
	require.Equal(t, []string{"generate", "--fast"}, cfg.GeneratorArgs)
}

func TestValidate_Rejects(t *testing.T) {
	base, err := Load(newViper(t))
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"mode":       func(c *Config) { c.Mode = "retry" },
		"selection":  func(c *Config) { c.ArtifactSelection = "random" },
		"hash":       func(c *Config) { c.Hash = "md5" },
		"endpoint":   func(c *Config) { c.PeerEndpoint = " " },
		"client tls": func(c *Config) { c.ClientTLSCert = "/client.crt" },
		"log level":  func(c *Config) { c.LogLevel = "loud" },
		"generator":  func(c *Config) { c.GeneratorCommand = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			require.True(t, model.IsKind(err, model.KindConfig), "got %v", err)
		})
	}

	c := base
	c.GeneratorCommand = ""
	c.SkipGenerate = true
	require.NoError(t, c.Validate())
}

func TestRegisterFlags_RelativePathsDocumented(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	for _, key := range []string{KeyCryptoPath, KeyArtifactDir, KeyGeneratorDir} {
		f := fs.Lookup(key)
		require.NotNil(t, f, key)
		require.Contains(t, f.Usage, "relative to the current directory", key)
	}
}
