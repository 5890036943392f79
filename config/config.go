// Package config builds the immutable client configuration from environment
// variables and command-line flags.
//
// A Config is constructed once at startup and passed by value into every
// component constructor; nothing reads the environment after Load returns.
package config

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"xdao.co/zkverify/model"
)

// Config keys. Each key is bound to the environment variable in envNames and
// to the command-line flag of the same name.
const (
	KeyChannel           = "channel"
	KeyChaincode         = "chaincode"
	KeyMSPID             = "msp-id"
	KeyCryptoPath        = "crypto-path"
	KeyKeyDir            = "key-dir"
	KeyCertDir           = "cert-dir"
	KeyTLSCert           = "tls-cert"
	KeyClientTLSCert     = "client-tls-cert"
	KeyClientTLSKey      = "client-tls-key"
	KeyPeerEndpoint      = "peer-endpoint"
	KeyPeerHostAlias     = "peer-host-alias"
	KeyArtifactDir       = "artifact-dir"
	KeyArtifactSelection = "artifact-selection"
	KeyGeneratorCommand  = "generator-command"
	KeyGeneratorArgs     = "generator-args"
	KeyGeneratorDir      = "generator-dir"
	KeySkipGenerate      = "skip-generate"
	KeyMode              = "mode"
	KeyPrecheck          = "precheck"
	KeyHash              = "hash"
	KeyMetricsFile       = "metrics-file"
	KeyLogLevel          = "log-level"
)

var envNames = map[string]string{
	KeyChannel:           "CHANNEL_NAME",
	KeyChaincode:         "CHAINCODE_NAME",
	KeyMSPID:             "MSP_ID",
	KeyCryptoPath:        "CRYPTO_PATH",
	KeyKeyDir:            "KEY_DIRECTORY_PATH",
	KeyCertDir:           "CERT_DIRECTORY_PATH",
	KeyTLSCert:           "TLS_CERT_PATH",
	KeyClientTLSCert:     "CLIENT_TLS_CERT_PATH",
	KeyClientTLSKey:      "CLIENT_TLS_KEY_PATH",
	KeyPeerEndpoint:      "PEER_ENDPOINT",
	KeyPeerHostAlias:     "PEER_HOST_ALIAS",
	KeyArtifactDir:       "ARTIFACT_DIR",
	KeyArtifactSelection: "ARTIFACT_SELECTION",
	KeyGeneratorCommand:  "GENERATOR_COMMAND",
	KeyGeneratorArgs:     "GENERATOR_ARGS",
	KeyGeneratorDir:      "GENERATOR_DIR",
	KeySkipGenerate:      "SKIP_GENERATE",
	KeyMode:              "MODE",
	KeyPrecheck:          "PRECHECK",
	KeyHash:              "HASH",
	KeyMetricsFile:       "METRICS_FILE",
	KeyLogLevel:          "LOG_LEVEL",
}

// Defaults match the Fabric test-network layout when the client is started
// from its own directory. Relative paths resolve against the working
// directory.
const (
	DefaultChannel       = "mychannel"
	DefaultChaincode     = "gnarkverify"
	DefaultMSPID         = "Org1MSP"
	DefaultPeerEndpoint  = "localhost:7051"
	DefaultPeerHostAlias = "peer0.org1.example.com"
	DefaultGenerator     = "./run.sh"
	DefaultGeneratorArgs = "generate"
)

var (
	DefaultCryptoPath   = filepath.Join("..", "..", "test-network", "organizations", "peerOrganizations", "org1.example.com")
	DefaultArtifactDir  = filepath.Join("..", "..", "chaincode-go", "gnarkverify", "output")
	DefaultGeneratorDir = filepath.Join("..", "..", "verify-on-chain")
)

// Config is the full client configuration.
type Config struct {
	Channel   string
	Chaincode string
	MSPID     string

	CryptoPath    string
	KeyDir        string
	CertDir       string
	TLSCertPath   string
	ClientTLSCert string
	ClientTLSKey  string

	PeerEndpoint  string
	PeerHostAlias string

	ArtifactDir       string
	ArtifactSelection string

	GeneratorCommand string
	GeneratorArgs    []string
	GeneratorDir     string
	SkipGenerate     bool

	// Mode is "abort" (stop at the first failed cell) or "collect".
	Mode     string
	Precheck bool
	Hash     string

	MetricsFile string
	LogLevel    string
}

// RegisterFlags adds one flag per config key to fs. Flags left unset fall
// back to the environment and then to the defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyChannel, DefaultChannel, "channel name ($CHANNEL_NAME)")
	fs.String(KeyChaincode, DefaultChaincode, "chaincode name ($CHAINCODE_NAME)")
	fs.String(KeyMSPID, DefaultMSPID, "organization MSP id ($MSP_ID)")
	fs.String(KeyCryptoPath, DefaultCryptoPath, "crypto material root, relative to the current directory ($CRYPTO_PATH)")
	fs.String(KeyKeyDir, "", "private key directory, defaults under crypto-path ($KEY_DIRECTORY_PATH)")
	fs.String(KeyCertDir, "", "signing certificate directory, defaults under crypto-path ($CERT_DIRECTORY_PATH)")
	fs.String(KeyTLSCert, "", "peer TLS root certificate, defaults under crypto-path ($TLS_CERT_PATH)")
	fs.String(KeyClientTLSCert, "", "client TLS certificate for mutual TLS ($CLIENT_TLS_CERT_PATH)")
	fs.String(KeyClientTLSKey, "", "client TLS private key for mutual TLS ($CLIENT_TLS_KEY_PATH)")
	fs.String(KeyPeerEndpoint, DefaultPeerEndpoint, "gateway peer host:port ($PEER_ENDPOINT)")
	fs.String(KeyPeerHostAlias, DefaultPeerHostAlias, "TLS host name override ($PEER_HOST_ALIAS)")
	fs.String(KeyArtifactDir, DefaultArtifactDir, "proof artifact directory, relative to the current directory ($ARTIFACT_DIR)")
	fs.String(KeyArtifactSelection, "first", "artifact selection when several files match: first|latest ($ARTIFACT_SELECTION)")
	fs.String(KeyGeneratorCommand, DefaultGenerator, "artifact generation command ($GENERATOR_COMMAND)")
	fs.String(KeyGeneratorArgs, DefaultGeneratorArgs, "space separated generator arguments ($GENERATOR_ARGS)")
	fs.String(KeyGeneratorDir, DefaultGeneratorDir, "generator working directory, relative to the current directory ($GENERATOR_DIR)")
	fs.Bool(KeySkipGenerate, false, "do not run the generator ($SKIP_GENERATE)")
	fs.String(KeyMode, ModeAbort, "failure mode: abort|collect ($MODE)")
	fs.Bool(KeyPrecheck, false, "verify proofs locally before submitting ($PRECHECK)")
	fs.String(KeyHash, HashSHA256, "transaction hash: sha256|sha3-256 ($HASH)")
	fs.String(KeyMetricsFile, "", "write prometheus metrics to this file ($METRICS_FILE)")
	fs.String(KeyLogLevel, "info", "log level ($LOG_LEVEL)")
}

// Bind wires every key of v to its environment variable and, when fs is not
// nil, to the flag registered by RegisterFlags.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return model.ConfigError("bind env", env, err)
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return model.ConfigError("bind flag", key, err)
			}
		}
	}
	return nil
}

// Load reads a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Channel:           getString(v, KeyChannel, DefaultChannel),
		Chaincode:         getString(v, KeyChaincode, DefaultChaincode),
		MSPID:             getString(v, KeyMSPID, DefaultMSPID),
		CryptoPath:        getString(v, KeyCryptoPath, DefaultCryptoPath),
		ClientTLSCert:     v.GetString(KeyClientTLSCert),
		ClientTLSKey:      v.GetString(KeyClientTLSKey),
		PeerEndpoint:      getString(v, KeyPeerEndpoint, DefaultPeerEndpoint),
		PeerHostAlias:     getString(v, KeyPeerHostAlias, DefaultPeerHostAlias),
		ArtifactDir:       getString(v, KeyArtifactDir, DefaultArtifactDir),
		ArtifactSelection: strings.ToLower(getString(v, KeyArtifactSelection, SelectionFirst)),
		GeneratorCommand:  getString(v, KeyGeneratorCommand, DefaultGenerator),
		GeneratorArgs:     strings.Fields(getString(v, KeyGeneratorArgs, DefaultGeneratorArgs)),
		GeneratorDir:      getString(v, KeyGeneratorDir, DefaultGeneratorDir),
		SkipGenerate:      v.GetBool(KeySkipGenerate),
		Mode:              strings.ToLower(getString(v, KeyMode, ModeAbort)),
		Precheck:          v.GetBool(KeyPrecheck),
		Hash:              strings.ToLower(getString(v, KeyHash, HashSHA256)),
		MetricsFile:       v.GetString(KeyMetricsFile),
		LogLevel:          getString(v, KeyLogLevel, "info"),
	}

	user := filepath.Join(cfg.CryptoPath, "users", "User1@org1.example.com", "msp")
	cfg.KeyDir = getString(v, KeyKeyDir, filepath.Join(user, "keystore"))
	cfg.CertDir = getString(v, KeyCertDir, filepath.Join(user, "signcerts"))
	cfg.TLSCertPath = getString(v, KeyTLSCert,
		filepath.Join(cfg.CryptoPath, "peers", "peer0.org1.example.com", "tls", "ca.crt"))

	return cfg, cfg.Validate()
}

// Enumerated values.
const (
	ModeAbort   = "abort"
	ModeCollect = "collect"

	SelectionFirst  = "first"
	SelectionLatest = "latest"

	HashSHA256  = "sha256"
	HashSHA3256 = "sha3-256"
)

func (c Config) Validate() error {
	required := []struct{ key, val string }{
		{KeyChannel, c.Channel},
		{KeyChaincode, c.Chaincode},
		{KeyMSPID, c.MSPID},
		{KeyKeyDir, c.KeyDir},
		{KeyCertDir, c.CertDir},
		{KeyTLSCert, c.TLSCertPath},
		{KeyPeerEndpoint, c.PeerEndpoint},
		{KeyArtifactDir, c.ArtifactDir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return model.ConfigError("validate", r.key+" is required", nil)
		}
	}
	if (c.ClientTLSCert == "") != (c.ClientTLSKey == "") {
		return model.ConfigError("validate", "client-tls-cert and client-tls-key must be set together", nil)
	}
	if !c.SkipGenerate && c.GeneratorCommand == "" {
		return model.ConfigError("validate", "generator-command is required unless skip-generate is set", nil)
	}
	switch c.Mode {
	case ModeAbort, ModeCollect:
	default:
		return model.ConfigError("validate", "invalid mode "+strconv.Quote(c.Mode), nil)
	}
	switch c.ArtifactSelection {
	case SelectionFirst, SelectionLatest:
	default:
		return model.ConfigError("validate", "invalid artifact-selection "+strconv.Quote(c.ArtifactSelection), nil)
	}
	switch c.Hash {
	case HashSHA256, HashSHA3256:
	default:
		return model.ConfigError("validate", "invalid hash "+strconv.Quote(c.Hash), nil)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return model.ConfigError("validate", "invalid log-level "+strconv.Quote(c.LogLevel), err)
	}
	return nil
}

// MarshalZerologObject logs the input parameters at startup.
func (c Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("channel", c.Channel).
		Str("chaincode", c.Chaincode).
		Str("msp_id", c.MSPID).
		Str("crypto_path", c.CryptoPath).
		Str("key_dir", c.KeyDir).
		Str("cert_dir", c.CertDir).
		Str("tls_cert", c.TLSCertPath).
		Str("peer_endpoint", c.PeerEndpoint).
		Str("peer_host_alias", c.PeerHostAlias).
		Str("artifact_dir", c.ArtifactDir).
		Str("mode", c.Mode)
}

func getString(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return def
}

