// Package roster loads the employee list sent with each upload.
package roster

import (
	"fmt"
	"os"
	"strings"

	"github.com/septivank/attendance-sync-worker/internal/erp"
	"gopkg.in/yaml.v3"
)

type file struct {
	Employees []erp.Employee `yaml:"employees"`
}

// Load reads a YAML roster:
//
//	employees:
//	  - first_name: Ada
//	    last_name: Lovelace
//	    card: "0012345678"
//
// An empty path yields an empty roster.
func Load(path string) ([]erp.Employee, error) {
	if path == "" {
		return []erp.Employee{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read employee roster: %w", err)
	}
	return Parse(data)
}

// Parse decodes roster YAML. Every employee needs a card.
func Parse(data []byte) ([]erp.Employee, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse employee roster: %w", err)
	}

	employees := make([]erp.Employee, 0, len(f.Employees))
	seen := make(map[string]int, len(f.Employees))
	for i, e := range f.Employees {
		e.FirstName = strings.TrimSpace(e.FirstName)
		e.LastName = strings.TrimSpace(e.LastName)
		e.Card = strings.TrimSpace(e.Card)
		if e.Card == "" {
			return nil, fmt.Errorf("employee %d (%s %s) has no card", i+1, e.FirstName, e.LastName)
		}
		if prev, ok := seen[e.Card]; ok {
			return nil, fmt.Errorf("card %s is assigned to employees %d and %d", e.Card, prev, i+1)
		}
		seen[e.Card] = i + 1
		employees = append(employees, e)
	}

	return employees, nil
}
