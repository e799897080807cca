package config

import (
	"flag"
	"fmt"
	"net"
	"strings"
)

type Cli struct {
	HTTPAddress    string
	MetricsAddress string
	APIURL         string
	APIKeys        []string
	CachePath      string
	MetadataPath   string
}

// FirstAPIKey returns the key sent as X-API-KEY when resolving paths.
func (cli *Cli) FirstAPIKey() (string, error) {
	if len(cli.APIKeys) == 0 || cli.APIKeys[0] == "" {
		return "", fmt.Errorf("no api keys configured, set KYOO_APIKEYS")
	}
	return cli.APIKeys[0], nil
}

// AddrFlag registers a bind-address flag, validated as a host:port pair.
func AddrFlag(fs *flag.FlagSet, dest *string, name, value, usage string) {
	*dest = value
	fs.Func(name, usage, func(s string) error {
		if _, _, err := net.SplitHostPort(s); err != nil {
			return err
		}
		*dest = s
		return nil
	})
}

// CommaSliceFlag registers a comma-separated list flag.
func CommaSliceFlag(fs *flag.FlagSet, dest *[]string, name string, value []string, usage string) {
	*dest = value
	fs.Func(name, usage, func(s string) error {
		if s == "" {
			*dest = []string{}
			return nil
		}
		*dest = strings.Split(s, ",")
		return nil
	})
}
