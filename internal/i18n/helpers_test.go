package i18n

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func loadKeys(t *testing.T, name string) map[string]string {
	t.Helper()
	data, err := localeFS.ReadFile(name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return out
}
