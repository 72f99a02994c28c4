package reports

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// OtherItemsGroup collects items that match no rule.
const OtherItemsGroup = "Other Items"

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// GroupRule names a reporting group and the keywords that select it.
type GroupRule struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Rules is the ordered keyword table for both balance sheet sides.
type Rules struct {
	Liabilities []GroupRule `yaml:"liabilities" json:"liabilities"`
	Assets      []GroupRule `yaml:"assets" json:"assets"`
}

// DefaultRules returns the embedded rule table.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("reports: embedded rules: %v", err))
	}
	return rules
}

// LoadRules reads a YAML rule file. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reports: read rules: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules decodes and normalises a YAML rule table.
func ParseRules(raw []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("%w: rules: %v", shared.ErrValidation, err)
	}
	return rules.Normalize()
}

// Normalize trims and case-folds keywords and rejects malformed groups.
func (r Rules) Normalize() (Rules, error) {
	liabilities, err := normalizeSide("liabilities", r.Liabilities)
	if err != nil {
		return Rules{}, err
	}
	assets, err := normalizeSide("assets", r.Assets)
	if err != nil {
		return Rules{}, err
	}
	return Rules{Liabilities: liabilities, Assets: assets}, nil
}

func normalizeSide(side string, groups []GroupRule) ([]GroupRule, error) {
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(groups))
	out := make([]GroupRule, 0, len(groups))
	for idx, g := range groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: %s group %d has no name", shared.ErrValidation, side, idx+1)
		}
		key := fold.String(name)
		if key == fold.String(OtherItemsGroup) {
			return nil, fmt.Errorf("%w: %q is reserved", shared.ErrValidation, OtherItemsGroup)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %s group %q", shared.ErrValidation, side, name)
		}
		seen[key] = struct{}{}
		keywords := make([]string, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			kw = fold.String(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("%w: %s group %q has no keywords", shared.ErrValidation, side, name)
		}
		out = append(out, GroupRule{Name: name, Keywords: keywords})
	}
	return out, nil
}

// Fingerprint identifies the rule table in cache keys.
func (r Rules) Fingerprint() string {
	raw, _ := json.Marshal(r)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:6])
}
