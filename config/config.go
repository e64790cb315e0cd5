// Package config loads the router's interface, routing, and tunable
// configuration from a TOML file.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/BurntSushi/toml"

	router "ipv4router"
)

type tomlConfig struct {
	Interface []tomlInterface `toml:"interface"`
	Route     []tomlRoute     `toml:"route"`
	Tunables  tomlTunables    `toml:"tunables"`
}

type tomlInterface struct {
	Name     string `toml:"name"`
	LinkAddr string `toml:"link_addr"`
	NetAddr  string `toml:"net_addr"`
}

type tomlRoute struct {
	Destination string `toml:"destination"`
	Mask        string `toml:"mask"`
	Gateway     string `toml:"gateway"`
	Interface   string `toml:"interface"`
}

type tomlTunables struct {
	BindingTimeoutSeconds int `toml:"binding_timeout_seconds"`
	CacheCapacity         int `toml:"cache_capacity"`
	ResolutionAttempts    int `toml:"resolution_attempts"`
	RetryIntervalSeconds  int `toml:"retry_interval_seconds"`
}

// Config is the router's fully-parsed, validated configuration.
type Config struct {
	Interfaces    []router.InterfaceRecord
	Routes        []router.RouteRecord
	BindingTTL    time.Duration
	CacheCapacity int
	MaxAttempts   int
	RetryInterval time.Duration
}

// Load reads and validates the TOML configuration file at path.
func Load(path string) (*Config, error) {
	var raw tomlConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return fromTOML(&raw)
}

func fromTOML(raw *tomlConfig) (*Config, error) {
	cfg := &Config{
		BindingTTL:    time.Duration(raw.Tunables.BindingTimeoutSeconds) * time.Second,
		CacheCapacity: raw.Tunables.CacheCapacity,
		MaxAttempts:   raw.Tunables.ResolutionAttempts,
		RetryInterval: time.Duration(raw.Tunables.RetryIntervalSeconds) * time.Second,
	}
	if cfg.CacheCapacity <= 0 {
		return nil, fmt.Errorf("config: tunables.cache_capacity must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("config: tunables.resolution_attempts must be positive")
	}

	for _, i := range raw.Interface {
		hw, err := net.ParseMAC(i.LinkAddr)
		if err != nil {
			return nil, fmt.Errorf("config: interface %q: bad link_addr %q: %w", i.Name, i.LinkAddr, err)
		}
		addr := net.ParseIP(i.NetAddr)
		if addr == nil || addr.To4() == nil {
			return nil, fmt.Errorf("config: interface %q: bad net_addr %q", i.Name, i.NetAddr)
		}
		cfg.Interfaces = append(cfg.Interfaces, router.InterfaceRecord{
			Name:     i.Name,
			LinkAddr: hw,
			NetAddr:  addr.To4(),
		})
	}

	for _, r := range raw.Route {
		dst := net.ParseIP(r.Destination)
		if dst == nil || dst.To4() == nil {
			return nil, fmt.Errorf("config: route %q: bad destination", r.Destination)
		}
		maskIP := net.ParseIP(r.Mask)
		if maskIP == nil || maskIP.To4() == nil {
			return nil, fmt.Errorf("config: route %q: bad mask %q", r.Destination, r.Mask)
		}
		mask := net.IPMask(maskIP.To4())
		var gw net.IP
		if r.Gateway != "" {
			gw = net.ParseIP(r.Gateway)
			if gw == nil || gw.To4() == nil {
				return nil, fmt.Errorf("config: route %q: bad gateway %q", r.Destination, r.Gateway)
			}
			gw = gw.To4()
		}
		if r.Interface == "" {
			return nil, fmt.Errorf("config: route %q: missing interface", r.Destination)
		}
		cfg.Routes = append(cfg.Routes, router.RouteRecord{
			Destination: dst.To4(),
			Mask:        mask,
			Gateway:     gw,
			Interface:   r.Interface,
		})
	}

	return cfg, nil
}
