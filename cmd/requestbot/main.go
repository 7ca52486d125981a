package main

import (
	"log"

	"github.com/m3rciful/requestbot/core/bootstrap"
	corecmd "github.com/m3rciful/requestbot/core/cmd"
	"github.com/m3rciful/requestbot/internal/bot"
	"github.com/m3rciful/requestbot/internal/config"
	"github.com/m3rciful/requestbot/migrations"
)

func main() {
	err := corecmd.Run(corecmd.Options[*config.Config]{
		DefaultConfigPath: "config.yaml",
		Load:              config.Load,
		Bootstrap: func(cfg *config.Config) (corecmd.App, error) {
			res, err := bootstrap.Run(bootstrap.Options{
				Config:     cfg.CoreConfig(),
				Database:   cfg.Database,
				Migrations: migrations.FS,
			})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res.DB), nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
