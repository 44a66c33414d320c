package registry

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

// File is the broker registry format:
//
//	brokers:
//	  - name: Acme People Search
//	    url: https://acme.example/optout
type File struct {
	Brokers []Broker `yaml:"brokers"`
}

type Broker struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	for i, b := range f.Brokers {
		if strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("broker %d: name is empty", i+1)
		}
		u, err := url.Parse(b.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("broker %q: invalid url %q", b.Name, b.URL)
		}
	}
	return &f, nil
}

// Seed inserts every broker whose URL is not already in the ledger and
// returns the new entries.
func Seed(ctx context.Context, ledger output.LedgerPort, f *File) ([]entity.BrokerLedgerEntry, error) {
	existing, err := ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e.URL] = true
	}

	var added []entity.BrokerLedgerEntry
	for _, b := range f.Brokers {
		if known[b.URL] {
			continue
		}
		entry, err := ledger.Insert(ctx, b.Name, b.URL)
		if err != nil {
			return added, fmt.Errorf("insert %q: %w", b.Name, err)
		}
		known[b.URL] = true
		added = append(added, *entry)
	}
	return added, nil
}
