package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToneConfig shapes the signal a generated source produces.
type ToneConfig struct {
	FrequencyHz float64 `yaml:"frequency_hz"`
	Amplitude   float64 `yaml:"amplitude"`
}

// SourceProfile describes one capture source to create at startup.
type SourceProfile struct {
	Name     string     `yaml:"name"`
	Format   string     `yaml:"format"`
	Rate     int        `yaml:"rate"`
	Channels int        `yaml:"channels"`
	Tone     ToneConfig `yaml:"tone"`
}

// ScanSourceProfiles reads every *.yaml profile under dir, skipping files
// that fail to parse. A missing directory yields no profiles and no error.
func ScanSourceProfiles(dir string) ([]SourceProfile, error) {
	profiles := []SourceProfile{}
	if dir == "" {
		return profiles, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return profiles, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d == nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".yaml") && !strings.HasSuffix(d.Name(), ".yml") {
			return nil
		}
		profile, err := ReadSourceProfile(path)
		if err != nil {
			return nil
		}
		profiles = append(profiles, profile)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// ReadSourceProfile parses one profile file. Missing fields get usable
// defaults; the file name stands in for a missing source name.
func ReadSourceProfile(path string) (SourceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceProfile{}, err
	}

	var profile SourceProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return SourceProfile{}, fmt.Errorf("parse source profile %s: %w", path, err)
	}

	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if profile.Format == "" {
		profile.Format = "s16le"
	}
	if profile.Rate == 0 {
		profile.Rate = 48000
	}
	if profile.Channels == 0 {
		profile.Channels = 2
	}
	if profile.Tone.FrequencyHz == 0 {
		profile.Tone.FrequencyHz = 440
	}
	if profile.Tone.Amplitude == 0 {
		profile.Tone.Amplitude = 0.3
	}

	return profile, nil
}
