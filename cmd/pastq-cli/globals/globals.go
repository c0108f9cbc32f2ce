package globals

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pastquestions-backend/internal/apiclient"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/partitions"
	"pastquestions-backend/internal/scrapers/myschool"
	"pastquestions-backend/pkg/configutil"

	"github.com/adrg/xdg"
)

const AppName = "pastq"

type Config struct {
	// Server is the past questions server synced into, PASTQ_SERVER overrides it.
	Server string `json:"server"`
	// DataDir holds the partition cache and the subject index.
	DataDir  string                `json:"data_dir"`
	MySchool string                `json:"myschool"`
	Pacing   myschool.PacingConfig `json:"pacing"`
}

func DefaultConfig() Config {
	return Config{
		Server:   "http://localhost:8000",
		DataDir:  filepath.Join(xdg.DataHome, AppName),
		MySchool: myschool.DefaultBaseURL,
	}
}

func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadOrDefault(path, DefaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if server := os.Getenv("PASTQ_SERVER"); server != "" {
		config.Server = server
	}
	return config, nil
}

type key struct{}

type Value struct {
	Config  Config
	Tel     telemetry.API
	Scraper *myschool.Scraper
	Client  *apiclient.Client
	Cache   partitions.Cache
}

// New builds the clients every command shares, nothing is fetched yet.
func New(config Config, verbose bool) (*Value, error) {
	tel := telemetry.SlogAPI{}

	var scraperDump, clientDump telemetry.HttpDump
	if verbose {
		scraperDump = telemetry.NewDirDump(filepath.Join(config.DataDir, "resty", "myschool"), tel)
		clientDump = telemetry.NewDirDump(filepath.Join(config.DataDir, "resty", "server"), tel)
	}

	scraper, err := myschool.NewScraper(myschool.Options{
		BaseURL: config.MySchool,
		Fetcher: myschool.FetcherOptions{
			Pacing: config.Pacing.Pacing(),
			Dump:   scraperDump,
		},
		SubjectsCache: filepath.Join(config.DataDir, "subjects.json"),
	}, chrono.StandardTime{}, tel)
	if err != nil {
		return nil, err
	}

	return &Value{
		Config:  config,
		Tel:     tel,
		Scraper: scraper,
		Client:  apiclient.New(apiclient.Options{BaseURL: config.Server, Dump: clientDump}, tel),
		Cache:   partitions.NewCache(filepath.Join(config.DataDir, "partitions"), tel),
	}, nil
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
