package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	devenv "pastquestions-backend/dev/env"
	"pastquestions-backend/internal/db"
	"pastquestions-backend/pkg/migrations"
)

func writeTemplate(name, contents string) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", name))
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("config already exists at", path)
		return nil
	}
	err = os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		return err
	}
	fmt.Println("writing config template to", path)
	return os.WriteFile(path, []byte(contents), 0644)
}

func createDb(ctx context.Context, filename string) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}
	fmt.Println("migrating database at", path)
	sqlite, err := migrations.OpenAndMigrateDB(ctx, db.Schema, migrations.Database{File: path})
	if err != nil {
		return err
	}
	return sqlite.Close()
}

func create(ctx context.Context, recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll("dev/.state", 0777)
	if err != nil && !os.IsExist(err) {
		return err
	}

	err = createDb(ctx, "questions.db")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(devenv.Templates))
	for name := range devenv.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		err = writeTemplate(name, devenv.Templates[name])
		if err != nil {
			return err
		}
	}

	slog.Info("live tests read their config from dev/.state/..., fill in the templates and run `go test -v` to see which ones were skipped.")
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(context.Background(), *recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
