package main

import (
	"fmt"
	"os"
	"strconv"

	"pastquestions-backend/internal/scrapers/aloc"
	"pastquestions-backend/internal/scrapers/myschool"
	"pastquestions-backend/pkg/configutil"
	"pastquestions-backend/pkg/migrations"
)

type MySchoolConfig struct {
	BaseUrl       string                `json:"base_url"`
	SubjectsCache string                `json:"subjects_cache"`
	Pacing        myschool.PacingConfig `json:"pacing"`
}

type AlocConfig struct {
	BaseUrl string `json:"base_url"`
	// Token is overridden by the ALOC_TOKEN environment variable.
	Token string `json:"token"`
}

type Config struct {
	Port      int                 `json:"port"`
	StaticDir string              `json:"static_dir"`
	Database  migrations.Database `json:"database"`
	MySchool  MySchoolConfig      `json:"myschool"`
	Aloc      AlocConfig          `json:"aloc"`
}

var defaultConfig = Config{
	Port:     8000,
	Database: migrations.Database{File: "data/questions.db"},
	MySchool: MySchoolConfig{
		BaseUrl:       myschool.DefaultBaseURL,
		SubjectsCache: "data/subjects.json",
	},
	Aloc: AlocConfig{BaseUrl: aloc.DefaultBaseURL},
}

// LoadConfig reads `path` over the defaults and applies environment overrides.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadOrDefault(path, defaultConfig)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if token := os.Getenv("ALOC_TOKEN"); token != "" {
		config.Aloc.Token = token
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Port, err = strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT: %w", err)
		}
	}
	return config, nil
}
