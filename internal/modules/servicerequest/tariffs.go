package servicerequest

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tariffs.yaml
var defaultTariffsYAML []byte

type Tariff struct {
	Code  string          `json:"code"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`

	aliases []string
}

// TariffTable keeps tariffs in file order and resolves codes and aliases
// case-insensitively.
type TariffTable struct {
	tariffs []Tariff
	byKey   map[string]int
}

type tariffFile struct {
	Tariffs []struct {
		Code    string   `yaml:"code"`
		Title   string   `yaml:"title"`
		Price   string   `yaml:"price"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"tariffs"`
}

func ParseTariffs(data []byte) (*TariffTable, error) {
	var f tariffFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tariffs: %w", err)
	}
	if len(f.Tariffs) == 0 {
		return nil, fmt.Errorf("parse tariffs: no tariffs defined")
	}
	t := &TariffTable{byKey: make(map[string]int)}
	for _, raw := range f.Tariffs {
		code := strings.ToLower(strings.TrimSpace(raw.Code))
		if code == "" {
			return nil, fmt.Errorf("parse tariffs: tariff without code")
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw.Price))
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("parse tariffs: %s: bad price %q", code, raw.Price)
		}
		if _, dup := t.byKey[code]; dup {
			return nil, fmt.Errorf("parse tariffs: duplicate code %s", code)
		}
		idx := len(t.tariffs)
		t.tariffs = append(t.tariffs, Tariff{Code: code, Title: raw.Title, Price: price, aliases: raw.Aliases})
		t.byKey[code] = idx
		for _, a := range raw.Aliases {
			t.byKey[strings.ToLower(strings.TrimSpace(a))] = idx
		}
	}
	return t, nil
}

// LoadTariffs reads TARIFFS_YAML when set, else the embedded table.
func LoadTariffs(path string) (*TariffTable, error) {
	if strings.TrimSpace(path) == "" {
		return ParseTariffs(defaultTariffsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tariffs: %w", err)
	}
	return ParseTariffs(data)
}

func DefaultTariffs() *TariffTable {
	t, err := ParseTariffs(defaultTariffsYAML)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *TariffTable) Lookup(code string) (Tariff, bool) {
	idx, ok := t.byKey[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Tariff{}, false
	}
	return t.tariffs[idx], true
}

func (t *TariffTable) All() []Tariff {
	return append([]Tariff(nil), t.tariffs...)
}
