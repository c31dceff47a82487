package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	Methods []*Method `yaml:"methods"`
}

type inventoryFile struct {
	Assets []*Asset `yaml:"assets"`
}

// Parse decodes a YAML method catalog.
func Parse(data []byte) (*Schema, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return New(f.Methods...)
}

// ParseAssets decodes a YAML asset list into a pool.
func ParseAssets(data []byte) (*AssetPool, error) {
	var f inventoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inventory: %w", err)
	}
	return NewAssetPool(f.Assets...)
}

// LoadFile reads and parses a YAML schema file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read schema: %w", err)
	}
	return Parse(data)
}

// LoadAssetsFile reads and parses a YAML inventory file.
func LoadAssetsFile(path string) (*AssetPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read inventory: %w", err)
	}
	return ParseAssets(data)
}
