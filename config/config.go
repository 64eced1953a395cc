package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the presale client. Chain and token
// tables live in the registry; this only selects among them and wires
// the ambient pieces.
type Config struct {
	ChainID         uint64
	RPCURL          string // overrides the registry RPC when set
	DashboardAddr   string
	TLSDomains      []string
	CertCacheDir    string
	JournalDir      string
	RefreshInterval time.Duration
	Interactive     bool
}

type configTmp struct {
	ChainID         uint64        `yaml:"chain_id"`
	RPCURL          string        `yaml:"rpc_url,omitempty"`
	DashboardAddr   string        `yaml:"dashboard_addr,omitempty"`
	TLSDomains      []string      `yaml:"tls_domains,omitempty"`
	CertCacheDir    string        `yaml:"cert_cache_dir,omitempty"`
	JournalDir      string        `yaml:"journal_dir,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
	Interactive     bool          `yaml:"interactive,omitempty"`
}

// Get loads configuration from a yaml file when --config is given,
// otherwise from CLI flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	chainID := flag.Uint64("chain", 0, "chain id to operate on (0 uses the registry default)")
	rpcURL := flag.String("rpc", "", "rpc url override")
	dashboardAddr := flag.String("dashboard", ":8080", "dashboard listen address (empty disables)")
	journalDir := flag.String("journal", "", "purchase journal directory")
	refreshInterval := flag.Duration("refreshinterval", 30*time.Second, "periodic snapshot refresh interval")
	interactive := flag.Bool("interactive", true, "run the terminal purchase wizard")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	return Config{
		ChainID:         *chainID,
		RPCURL:          *rpcURL,
		DashboardAddr:   *dashboardAddr,
		JournalDir:      *journalDir,
		RefreshInterval: *refreshInterval,
		Interactive:     *interactive,
	}, nil
}

func getYaml(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "parse yaml config")
	}

	conf := Config{
		ChainID:         tmp.ChainID,
		RPCURL:          tmp.RPCURL,
		DashboardAddr:   tmp.DashboardAddr,
		TLSDomains:      tmp.TLSDomains,
		CertCacheDir:    tmp.CertCacheDir,
		JournalDir:      tmp.JournalDir,
		RefreshInterval: tmp.RefreshInterval,
		Interactive:     tmp.Interactive,
	}
	if conf.DashboardAddr == "" {
		conf.DashboardAddr = ":8080"
	}
	if conf.RefreshInterval <= 0 {
		conf.RefreshInterval = 30 * time.Second
	}
	return conf, nil
}
