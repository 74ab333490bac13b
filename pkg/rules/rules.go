// Package rules loads split rule files: the payees with their shares
// plus optional counterparty filters and period defaults.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mvankampen/bunqsplit/pkg/split"
)

// Payee is one destination/share pair as written in the rule file.
type Payee struct {
	Destination string `yaml:"destination"`
	Share       string `yaml:"share"`
}

// Period holds optional period-scan defaults.
type Period struct {
	Start  string `yaml:"start"`
	Days   int    `yaml:"days"`
	Format string `yaml:"format"`
}

// RuleFile is the parsed rule file.
//
//	payees:
//	  - destination: alice@example.com
//	    share: 50%
//	  - destination: "NL91ABNA0417164300,Jane Doe"
//	    share: "10.00"
//	includes:
//	  - NL21BUNQ9900274229
//	excludes:
//	  - NL65BUNQ9900000188
//	period:
//	  start: 2024-01-01
//	  days: 31
type RuleFile struct {
	Payees   []Payee  `yaml:"payees"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Period   *Period  `yaml:"period"`
}

// Load reads and parses a rule file.
func Load(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}

	return &file, nil
}

// Entries resolves the payee list into allocator rule entries.
func (f *RuleFile) Entries() ([]split.RuleEntry, error) {
	entries := make([]split.RuleEntry, 0, len(f.Payees))

	for _, payee := range f.Payees {
		pointer, err := split.ParsePointer(payee.Destination)
		if err != nil {
			return nil, fmt.Errorf("payee %q: %w", payee.Destination, err)
		}

		share, err := split.ParseShare(payee.Share)
		if err != nil {
			return nil, fmt.Errorf("payee %q: %w", payee.Destination, err)
		}

		entries = append(entries, split.RuleEntry{
			Destination: pointer,
			Share:       share,
		})
	}

	return entries, nil
}
