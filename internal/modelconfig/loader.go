package modelconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/macrofactor/internal/regression"
)

// Load reads and validates a model file
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML strictly, fills defaults and validates
func Parse(data []byte) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}

	applyDefaults(&m)
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func applyDefaults(m *Model) {
	if m.Target.Transform == "" {
		m.Target.Transform = TransformNone
	}
	for i := range m.Factors {
		if m.Factors[i].Transform == "" {
			m.Factors[i].Transform = TransformNone
		}
		if a := m.Factors[i].Alignment; a != nil && a.ReleaseLag == "" {
			a.ReleaseLag = "none"
		}
	}
	if m.Regression.ResetPower == 0 {
		m.Regression.ResetPower = regression.DefaultResetPower
	}
}

// Hash is the SHA256 of the model's canonical JSON, printed with every run
// so a report can be tied to the exact model that produced it
func Hash(m *Model) (string, error) {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
