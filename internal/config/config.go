package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "ATOMIC_"

type Application struct {
	Database      Database      `koanf:"db"`
	Redis         Redis         `koanf:"redis"`
	Queue         Queue         `koanf:"queue"`
	Planner       Planner       `koanf:"planner"`
	Window        Window        `koanf:"window"`
	Training      Training      `koanf:"training"`
	MeetingAssist MeetingAssist `koanf:"meetingassist"`
	Http          Http          `koanf:"http"`
	Tracing       Tracing       `koanf:"tracing"`
}

type Database struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Pass     string `koanf:"pass"`
	Name     string `koanf:"name"`
	Schema   string `koanf:"schema"`
	SslMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"maxconns"`
	MinConns int32  `koanf:"minconns"`
	// Migrations is the migrations directory. Empty means the nearest "migrations" directory
	// above the working directory.
	Migrations string `koanf:"migrations"`
}

type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type Queue struct {
	Stream         string        `koanf:"stream"`
	Group          string        `koanf:"group"`
	Consumer       string        `koanf:"consumer"`
	Block          time.Duration `koanf:"block"`
	MessageTimeout time.Duration `koanf:"messagetimeout"`
	MinIdle        time.Duration `koanf:"minidle"`
	MaxDeliveries  int64         `koanf:"maxdeliveries"`
	// IdempotencyTTL is how long the producer remembers a published key.
	IdempotencyTTL time.Duration `koanf:"idempotencyttl"`
}

type Planner struct {
	Url      string        `koanf:"url"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	OAuth2   OAuth2        `koanf:"oauth2"`
	Timeout  time.Duration `koanf:"timeout"`
}

type OAuth2 struct {
	TokenUrl     string `koanf:"tokenurl"`
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

func (o OAuth2) Enabled() bool {
	return o.TokenUrl != "" && o.ClientId != ""
}

const (
	WindowSameDay  = "same_day"
	WindowMultiDay = "multi_day"
)

type Window struct {
	Variant string `koanf:"variant"`
	Days    int    `koanf:"days"`
}

type Training struct {
	MaxDistance float64 `koanf:"maxdistance"`
}

type MeetingAssist struct {
	Concurrency int `koanf:"concurrency"`
}

type Http struct {
	Addr string `koanf:"addr"`
}

type Tracing struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter"` // stdout | otlp
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sampleratio"`
	Insecure    bool    `koanf:"insecure"`
}

func Defaults() Application {
	return Application{
		Database: Database{
			Host:     "localhost",
			Port:     5432,
			User:     "atomic",
			Pass:     "",
			Name:     "atomic",
			Schema:   "atomic",
			SslMode:  "disable",
			MaxConns: 10,
			MinConns: 2,
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Queue: Queue{
			Stream:         "atomic:events",
			Group:          "atomic-planner",
			Consumer:       "worker-1",
			Block:          5 * time.Second,
			MessageTimeout: 2 * time.Minute,
			MinIdle:        5 * time.Minute,
			MaxDeliveries:  5,
			IdempotencyTTL: 24 * time.Hour,
		},
		Planner: Planner{
			Url:     "http://localhost:8081",
			Timeout: 30 * time.Second,
		},
		Window: Window{
			Variant: WindowSameDay,
			Days:    6,
		},
		Training: Training{
			MaxDistance: 0.1,
		},
		MeetingAssist: MeetingAssist{
			Concurrency: 4,
		},
		Http: Http{
			Addr: ":8181",
		},
		Tracing: Tracing{
			Enabled:     false,
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	if err := app.Validate(); err != nil {
		return Application{}, err
	}

	return app, nil
}

func (a Application) Validate() error {
	switch a.Window.Variant {
	case WindowSameDay:
	case WindowMultiDay:
		if a.Window.Days < 1 {
			return fmt.Errorf("window.days must be positive for the %s window, got %d", WindowMultiDay, a.Window.Days)
		}
	default:
		return fmt.Errorf("unknown window variant %q", a.Window.Variant)
	}
	if a.MeetingAssist.Concurrency < 1 {
		return fmt.Errorf("meetingassist.concurrency must be positive, got %d", a.MeetingAssist.Concurrency)
	}
	if a.Training.MaxDistance < 0 {
		return fmt.Errorf("training.maxdistance must not be negative, got %v", a.Training.MaxDistance)
	}
	if a.Database.MinConns > a.Database.MaxConns {
		return fmt.Errorf("db.minconns (%d) must not exceed db.maxconns (%d)", a.Database.MinConns, a.Database.MaxConns)
	}
	if a.Queue.MaxDeliveries < 1 {
		return fmt.Errorf("queue.maxdeliveries must be positive, got %d", a.Queue.MaxDeliveries)
	}
	return nil
}
