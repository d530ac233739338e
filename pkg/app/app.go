package app

import (
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/virot/tamemycerts/pkg/config"
	"github.com/virot/tamemycerts/pkg/export"
	"github.com/virot/tamemycerts/pkg/logging"
	"github.com/virot/tamemycerts/pkg/validator"
	"github.com/virot/tamemycerts/pkg/webservice"
)

var (
	Name       = "tamemycerts"
	Version    string
	GitBranch  string
	GitHash    string
	GitTag     string
	BuildUser  string
	BuildDate  string
	Repository = "github.com/virot/tamemycerts"
)

type App struct {
	DebugFlag  bool                `yaml:"debug" json:"debug" mapstructure:"debug"`
	ConfigDir  string              `yaml:"config-dir" json:"config_dir" mapstructure:"config-dir"`
	LogDir     string              `yaml:"log-dir" json:"log_dir" mapstructure:"log-dir"`
	PolicyDir  string              `yaml:"policy-dir" json:"policy_dir" mapstructure:"policy-dir"`
	ExportDir  string              `yaml:"export-dir" json:"export_dir" mapstructure:"export-dir"`
	WebService webservice.Config   `yaml:"webservice" json:"webservice" mapstructure:"webservice"`
	Logger     *logging.Logger     `yaml:"-" json:"-" mapstructure:"-"`
	FS         afero.Fs            `yaml:"-" json:"-" mapstructure:"-"`
	Pipeline   *validator.Pipeline `yaml:"-" json:"-" mapstructure:"-"`

	Documents map[string]*config.PolicyDocument `yaml:"-" json:"-" mapstructure:"-"`
}

func NewApp() *App {
	return &App{
		FS: afero.NewOsFs(),
	}
}

type AppInitParams struct {
	Debug     bool
	ConfigDir string
	LogDir    string
	PolicyDir string
	ExportDir string
}

// Init loads the configuration file, opens the log file and loads every
// policy document beneath the policy directory, then wires the
// validation pipeline.
func (app *App) Init(params *AppInitParams) *App {
	if params != nil {
		app.DebugFlag = params.Debug
		app.ConfigDir = params.ConfigDir
		app.LogDir = params.LogDir
		app.PolicyDir = params.PolicyDir
		app.ExportDir = params.ExportDir
	}
	app.initConfig()
	app.initLogger()
	app.loadPolicyDocuments()
	app.initPipeline()
	return app
}

func (app *App) initConfig() {

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(app.ConfigDir)
	viper.AddConfigPath(fmt.Sprintf("/etc/%s/", Name))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.%s/", Name))
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; flags and defaults carry the
		// required settings.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatal(err)
		}
	}

	if err := viper.Unmarshal(app); err != nil {
		log.Fatal(err)
	}

	if app.LogDir == "" {
		app.LogDir = "log"
	}
	if app.PolicyDir == "" {
		app.PolicyDir = "policies"
	}
}

func (app *App) initLogger() {
	level := slog.LevelInfo
	if app.DebugFlag {
		level = slog.LevelDebug
	}
	logger, err := logging.NewFileLogger(level, app.FS, app.LogDir, Name)
	if err != nil {
		log.Fatal(err)
	}
	app.Logger = logger
	if app.DebugFlag {
		app.Logger.Debug("starting logger in debug mode")
		for k, v := range viper.AllSettings() {
			app.Logger.Debugf("%s: %+v", k, v)
		}
	}
}

// loadPolicyDocuments reads every YAML document beneath the policy
// directory and indexes it by document name. The document name is the
// certificate template it applies to.
func (app *App) loadPolicyDocuments() {
	app.Documents = make(map[string]*config.PolicyDocument)

	exists, err := afero.DirExists(app.FS, app.PolicyDir)
	if err != nil {
		app.Logger.FatalError(err)
	}
	if !exists {
		app.Logger.Warnf("app: policy directory %s does not exist", app.PolicyDir)
		return
	}

	entries, err := afero.ReadDir(app.FS, app.PolicyDir)
	if err != nil {
		app.Logger.FatalError(err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(app.PolicyDir, entry.Name())
		document, err := config.LoadPolicyDocument(app.FS, path)
		if err != nil {
			app.Logger.Error(err)
			continue
		}
		name := document.Name
		if name == "" {
			name = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		app.Documents[name] = document
		app.Logger.Infof("app: loaded policy document %s (%d rules)",
			name, len(document.Rules))
	}
}

func (app *App) initPipeline() {
	opts := []validator.PipelineOption{
		validator.WithMetrics(validator.NewMetrics()),
	}
	if app.ExportDir != "" {
		opts = append(opts, validator.WithExportStorer(
			export.NewStorer(app.Logger, app.FS, app.ExportDir)))
	}
	app.Pipeline = validator.NewPipeline(app.Logger, opts...)
}
