package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/tc-dc/ec2dns"
)

// fileConfig mirrors the on-disk configuration table in spec.md section 6:
// a flat struct with toml tags, generalized from cmd/routedns/config.go's
// "config" type -- that one nests listeners/resolvers/groups/routers,
// this one is flat because the engine has no sub-graph of its own to
// configure.
type fileConfig struct {
	Provider string `toml:"provider"`

	AwsAccessKey     string `toml:"aws_access_key"`
	AwsSecretKey     string `toml:"aws_secret_key"`
	CredentialsFile  string `toml:"credentials_file"`
	Region           string `toml:"region"`
	RegionCode       string `toml:"region_code"`
	InstanceRegex    string `toml:"instance_regex"`
	AccountName      string `toml:"account_name"`
	ProfileName      string `toml:"profile_name"`
	RefreshInterval  int    `toml:"refresh_interval"`
	InstanceTimeout  int    `toml:"instance_timeout"`
	RequestBatchSize int    `toml:"request_batch_size"`
	RequestTimeoutMs int    `toml:"request_timeout_ms"`
	ConnectTimeoutMs int    `toml:"connect_timeout_ms"`
	NumAsgRecords    int    `toml:"num_asg_records"`
	AsgDnsTag        string `toml:"asg_dns_tag"`
	LogLevel         int    `toml:"log_level"`
	LogPath          string `toml:"log_path"`

	ZoneName string `toml:"zone_name"`
	VpcCidr  string `toml:"vpc_cidr"`
}

// loadConfig reads and merges one or more TOML files, the same
// multi-file-merge convention cmd/routedns/config.go uses for
// loadConfig(name ...string).
func loadConfig(names ...string) (fileConfig, error) {
	var cfg fileConfig
	for _, name := range names {
		b, err := os.ReadFile(name)
		if err != nil {
			return cfg, fmt.Errorf("reading config %q: %w", name, err)
		}
		if _, err := toml.NewDecoder(bytes.NewReader(b)).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %q: %w", name, err)
		}
	}
	return cfg, nil
}

// toEngineConfig converts the file config's subset of recognized options
// into ec2dns.Config, per SPEC_FULL.md section 2's "Configuration" note:
// the engine never reads this file itself, it only ever sees the
// resulting typed struct.
func (c fileConfig) toEngineConfig() ec2dns.Config {
	return ec2dns.Config{
		RefreshInterval: time.Duration(c.RefreshInterval) * time.Second,
		InstanceTimeout: time.Duration(c.InstanceTimeout) * time.Second,
		ZoneName:        c.ZoneName,
		RegionCode:      c.RegionCode,
		AccountName:     c.AccountName,
		AsgDnsTag:       c.AsgDnsTag,
		NumAsgRecords:   c.NumAsgRecords,
		InstanceRegex:   c.InstanceRegex,
	}
}

// watchConfig logs a warning on every fsnotify write or remove event for
// path; it does not re-read the file -- the engine has no hot-swap path for its own Config (only the
// provider/caches are live), so a change here just tells an operator a
// restart is needed, mirroring blocklistloader-http.go's CacheDir-driven
// out-of-band refresh idea without actually reloading anything in place.
func watchConfig(path string) (io.Closer, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove) != 0 {
					ec2dns.Log.Warn("config file changed on disk, restart to apply", "path", path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				ec2dns.Log.Error("config watcher error", "error", err)
			}
		}
	}()
	return w, nil
}
