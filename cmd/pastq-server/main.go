package main

import (
	"flag"

	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/db"
	"pastquestions-backend/internal/questionstore"
	"pastquestions-backend/internal/scrapers/aloc"
	"pastquestions-backend/internal/scrapers/myschool"
	"pastquestions-backend/internal/service"
	"pastquestions-backend/pkg/migrations"
	"pastquestions-backend/pkg/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the config file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	tel := InitTelemetry(ctx, *verbose)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("load config", err)
	}

	sqlite, err := migrations.OpenAndMigrateDB(ctx, db.Schema, cfg.Database)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	defer sqlite.Close()

	var dump telemetry.HttpDump
	if *verbose {
		dump = telemetry.NewDirDump(".dev/resty/myschool", tel)
	}
	scraper, err := myschool.NewScraper(myschool.Options{
		BaseURL: cfg.MySchool.BaseUrl,
		Fetcher: myschool.FetcherOptions{
			Pacing: cfg.MySchool.Pacing.Pacing(),
			Dump:   dump,
		},
		SubjectsCache: cfg.MySchool.SubjectsCache,
	}, chrono.StandardTime{}, tel)
	if err != nil {
		serviceutil.Fatal("init myschool scraper", err)
	}

	var alocAPI service.AlocAPI
	if cfg.Aloc.Token != "" {
		client, err := aloc.NewClient(aloc.Options{
			BaseURL: cfg.Aloc.BaseUrl,
			Token:   cfg.Aloc.Token,
		}, tel)
		if err != nil {
			serviceutil.Fatal("init aloc client", err)
		}
		alocAPI = client
	}

	core := service.NewCoreAPIs(
		questionstore.NewStore(sqlite),
		service.WithCustomTelemetryAPI(tel),
	)
	svc := service.NewService(core, scraper, alocAPI)

	serviceutil.StartHttpServer(ctx, cfg.Port, "pastq-server", svc.Handler(cfg.StaticDir))
}
