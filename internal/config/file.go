package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML layout. Durations are strings such as "5m".
type fileConfig struct {
	Server struct {
		Port int `toml:"port"`
	} `toml:"server"`
	Data struct {
		Backend    string `toml:"backend"`
		SQLitePath string `toml:"sqlite_path"`
		SeedDemo   *bool  `toml:"seed_demo"`
	} `toml:"data"`
	AMQP struct {
		URL      string `toml:"url"`
		Exchange string `toml:"exchange"`
		Queue    string `toml:"queue"`
	} `toml:"amqp"`
	Google struct {
		SpreadsheetID string   `toml:"spreadsheet_id"`
		MirrorTenants []string `toml:"mirror_tenants"`
		MirrorEvery   string   `toml:"mirror_interval"`
	} `toml:"google"`
	Cache struct {
		DashboardTTL    string `toml:"dashboard_ttl"`
		ExportTTL       string `toml:"export_ttl"`
		MaxEntries      int    `toml:"max_entries"`
		CleanupInterval string `toml:"cleanup_interval"`
	} `toml:"cache"`
	Reports struct {
		Currency        string `toml:"currency"`
		ExportRateLimit int    `toml:"export_rate_limit"`
	} `toml:"reports"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// applyFile overlays the values present in the TOML file onto c.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Server.Port != 0 {
		c.Port = strconv.Itoa(fc.Server.Port)
	}
	setString(&c.DataBackend, fc.Data.Backend)
	setString(&c.SQLiteDBPath, fc.Data.SQLitePath)
	if fc.Data.SeedDemo != nil {
		c.SeedDemoData = *fc.Data.SeedDemo
	}

	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)

	setString(&c.GoogleSpreadsheetID, fc.Google.SpreadsheetID)
	if len(fc.Google.MirrorTenants) > 0 {
		c.MirrorTenants = fc.Google.MirrorTenants
	}

	durations := []struct {
		dst  *time.Duration
		raw  string
		name string
	}{
		{&c.MirrorInterval, fc.Google.MirrorEvery, "google.mirror_interval"},
		{&c.DashboardCacheTTL, fc.Cache.DashboardTTL, "cache.dashboard_ttl"},
		{&c.ExportTTL, fc.Cache.ExportTTL, "cache.export_ttl"},
		{&c.CacheCleanupInterval, fc.Cache.CleanupInterval, "cache.cleanup_interval"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: invalid %s %q: %w", path, d.name, d.raw, err)
		}
		*d.dst = v
	}

	if fc.Cache.MaxEntries != 0 {
		c.CacheMaxEntries = fc.Cache.MaxEntries
	}
	setString(&c.ReportCurrency, fc.Reports.Currency)
	if fc.Reports.ExportRateLimit != 0 {
		c.ExportRateLimit = fc.Reports.ExportRateLimit
	}
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
