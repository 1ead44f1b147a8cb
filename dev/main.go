package main

import (
	devenv "coursewatch-backend/dev/env"
	"coursewatch-backend/internal/config"
	"coursewatch-backend/internal/db"
	"coursewatch-backend/lib/sqliteutil"
	"flag"
	"fmt"
	"log/slog"
	"os"
)

const exampleConfig = `{
  database: { file: "<dev_state>/coursewatch.db" },
  banner: {
    // base_url: "https://oasis.farmingdale.edu/pls/prod",
    // dump_dir: "<dev_state>/http_dumps",
  },
  http: { port: 8000 },
  watch: { schedule: "@every 5m" },
  refresh: { schedule: "0 * * * *" },
}
`

func create(recreate bool) error {
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
	dir, err := devenv.StateDir()
	if err != nil {
		return err
	}
	slog.Info("dev state directory", "path", dir)

	database, err := sqliteutil.OpenDB(db.Schema, config.Default().Database)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database initialized", "path", config.Default().Database.String())

	_, err = os.Stat("config.json5")
	if os.IsNotExist(err) {
		err = os.WriteFile("config.json5", []byte(exampleConfig), 0644)
		if err != nil {
			return err
		}
		slog.Info("wrote an example config.json5")
	}
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
