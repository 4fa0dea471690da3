package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Target pairs a trend keyword with the ticker its price is compared against.
type Target struct {
	Keyword string `yaml:"keyword"`
	Ticker  string `yaml:"ticker"`
}

// Catalog lists the batch queries and the keyword/ticker targets.
type Catalog struct {
	Queries []string `yaml:"queries"`
	Targets []Target `yaml:"targets"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Queries: []string{
			"bitcoin price prediction",
			"ethereum upgrade",
			"Bitcoin and crypto rally",
			"crypto regulation",
			"blockchain security",
			"NFT Sales",
			"altcoin market",
			"US Fed rate cut could prove perfect catalyst for Bitcoin and crypto rally",
			"btc price",
			"bitcoin price",
		},
		Targets: []Target{
			{Keyword: "bitcoin", Ticker: "BTC-USD.CC"},
			{Keyword: "ethereum", Ticker: "ETH-USD.CC"},
		},
	}
}

// LoadCatalog reads a YAML catalog from path. An empty path returns the
// defaults; sections missing from the file fall back to the defaults too.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	defaults := DefaultCatalog()
	if len(c.Queries) == 0 {
		c.Queries = defaults.Queries
	}
	if len(c.Targets) == 0 {
		c.Targets = defaults.Targets
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for i, q := range c.Queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("query at index %d is empty", i)
		}
	}
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Keyword) == "" {
			return fmt.Errorf("target at index %d has no keyword", i)
		}
	}
	return nil
}

// TickerFor returns the ticker configured for keyword, ignoring case.
func (c *Catalog) TickerFor(keyword string) (string, bool) {
	for _, t := range c.Targets {
		if strings.EqualFold(t.Keyword, keyword) && t.Ticker != "" {
			return t.Ticker, true
		}
	}
	return "", false
}
