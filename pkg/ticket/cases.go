package ticket

import (
	"encoding/json"
	"fmt"
	"os"
)

// GrammaticalCases holds the Russian case forms of a city name. Ro is the
// genitive ("Москвы"), Vi the accusative with preposition ("в Москву").
type GrammaticalCases struct {
	Ro string `json:"ro"`
	Vi string `json:"vi"`
	Da string `json:"da"`
	Tv string `json:"tv"`
	Pr string `json:"pr"`
}

type caseEntry struct {
	Cases GrammaticalCases `json:"cases"`
}

// CaseTable maps city codes to their grammatical case forms. Loaded once at
// startup; read-only afterwards.
type CaseTable map[string]GrammaticalCases

// LoadCases reads the case table from a JSON file keyed by city code.
func LoadCases(path string) (CaseTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file: %w", err)
	}

	raw := make(map[string]caseEntry)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cases file: %w", err)
	}

	table := make(CaseTable, len(raw))
	for code, entry := range raw {
		table[code] = entry.Cases
	}

	return table, nil
}
