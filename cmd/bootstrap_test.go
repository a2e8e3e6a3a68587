package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strandcli/strand/internal/providers"
)

func TestMergeModelConfig_InlineJSON(t *testing.T) {
	base := map[string]interface{}{"model_id": "m1", "temperature": 0.2}
	merged, err := mergeModelConfig(base, `{"temperature": 0.7, "max_tokens": 2048}`)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged["model_id"] != "m1" {
		t.Errorf("base keys should survive: %v", merged["model_id"])
	}
	if merged["temperature"] != 0.7 {
		t.Errorf("flag should win over config: %v", merged["temperature"])
	}
	if merged["max_tokens"] != 2048.0 {
		t.Errorf("new keys should merge in: %v", merged["max_tokens"])
	}
}

func TestMergeModelConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(`{"model_id": "file-model"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	merged, err := mergeModelConfig(nil, path)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged["model_id"] != "file-model" {
		t.Errorf("file config not applied: %v", merged["model_id"])
	}
}

func TestMergeModelConfig_BadJSON(t *testing.T) {
	if _, err := mergeModelConfig(nil, `{"temperature": `); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOptRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	if got := optRegion(map[string]interface{}{"region_name": "eu-west-1"}); got != "eu-west-1" {
		t.Errorf("model config region: %q", got)
	}

	t.Setenv("AWS_REGION", "ap-south-1")
	if got := optRegion(nil); got != "ap-south-1" {
		t.Errorf("env region: %q", got)
	}

	t.Setenv("AWS_REGION", "")
	if got := optRegion(nil); got != providers.DefaultBedrockRegion {
		t.Errorf("default region: %q", got)
	}
}
