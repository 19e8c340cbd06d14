package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rush86999/atomic-scheduler/internal/app"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func init() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load .env: %v", err)
	}
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "./config/application.yaml",
		Usage:   "path of the YAML configuration file",
		EnvVars: []string{"ATOMIC_CONFIG"},
	}

	cliApp := &cli.App{
		Name:  "atomic-scheduler",
		Usage: "feeds calendar changes to the schedule planner",
		Commands: []*cli.Command{
			{
				Name:   "worker",
				Usage:  "consume queued events and submit planning problems",
				Flags:  []cli.Flag{configFlag},
				Action: run(app.ModeWorker),
			},
			{
				Name:   "producer",
				Usage:  "accept events over HTTP and queue them",
				Flags:  []cli.Flag{configFlag},
				Action: run(app.ModeProducer),
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(mode app.Mode) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.NewApplication(ctx, c.String("config"), mode)
		if err != nil {
			log.Errorf("failed to initialize application: %v", err)
			return err
		}
		return application.Run(ctx)
	}
}

