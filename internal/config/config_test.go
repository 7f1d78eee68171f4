package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/cardsession/pkg/device"
	"github.com/gregLibert/cardsession/pkg/reader"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFullConfig(t *testing.T) {
	cfgPath := writeConfig(t, `
session:
  share_mode: exclusive
  disposition: reset
  protocols: [t1]
  auto_connect: false
  max_chain_length: 4
  predicates: inuse
readers:
  ignore: ["Yubico"]
log:
  level: debug
  format: json
journal:
  path: "journal.db"
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "exclusive", cfg.Session.ShareMode)
	assert.False(t, cfg.Session.AutoConnect)
	assert.True(t, cfg.Session.AutoDisconnect, "absent keys keep their default")
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "journal.db"), cfg.Journal.Path)
	assert.True(t, cfg.Ignored("Yubico YubiKey OTP+FIDO+CCID 00 00"))
	assert.False(t, cfg.Ignored("ACS ACR122U PICC Interface 00 00"))

	opts, err := cfg.DeviceOptions(logrus.New())
	require.NoError(t, err)

	o := device.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, reader.ShareExclusive, o.ShareMode)
	assert.Equal(t, reader.ResetCard, o.Disposition)
	assert.Equal(t, reader.ProtocolT1, o.Protocols)
	assert.Equal(t, 4, o.MaxChainLength)
	assert.Equal(t, reader.InUsePredicates{}, o.Predicates)
	assert.False(t, o.AutoConnect)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"Unknown key", "session:\n  shared: true\n", "field shared not found"},
		{"Share mode", "session:\n  share_mode: open\n", "config.session.share_mode"},
		{"Disposition", "session:\n  disposition: burn\n", "config.session.disposition"},
		{"Protocol", "session:\n  protocols: [t2]\n", "config.session.protocols"},
		{"Predicates", "session:\n  predicates: magic\n", "config.session.predicates"},
		{"Chain length", "session:\n  max_chain_length: 0\n", "config.session.max_chain_length"},
		{"Log level", "log:\n  level: loud\n", "config.log.level"},
		{"Log format", "log:\n  format: xml\n", "config.log.format"},
		{"Empty ignore", "readers:\n  ignore: [\"\"]\n", "config.readers.ignore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJournalPathKeptWhenAbsoluteOrMemory(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "j.db")
	cfg, err := Load(writeConfig(t, "journal:\n  path: "+abs+"\n"))
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Journal.Path)

	cfg, err = Load(writeConfig(t, "journal:\n  path: \":memory:\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Journal.Path)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}
