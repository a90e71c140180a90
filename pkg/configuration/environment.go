package configuration

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/agrotomo/bdagro-sync/pkg/logging"
)

var DefaultEnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the env files that exist in the working directory. When none
// does, it retries from the nearest parent holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := moduleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		p := f
		if dir != "" && !filepath.IsAbs(f) {
			p = filepath.Join(dir, f)
		}
		if fs.FileExists(p) {
			out = append(out, p)
		}
	}
	return out
}

func moduleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Name     string `env:"DB_NAME" envDefault:"postgis_34_sample" validate:"required"`
	Host     string `env:"DB_HOST" envDefault:"localhost" validate:"required"`
	Port     string `env:"DB_PORT" envDefault:"5432" validate:"required,numeric"`
	User     string `env:"DB_USER" envDefault:"postgres" validate:"required"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

type BDAgroOptions struct {
	ClientsFolder   string   `env:"BDAGRO_CLIENTS_FOLDER"`
	ClientIDs       string   `env:"BDAGRO_CLIENT_IDS"`
	ExcludedClients []string `env:"BDAGRO_EXCLUDED_CLIENTS" envSeparator:"," envDefault:"98,99,126,127,133,134,137,139,140,141,148,149,150,151,152,154,155,999"`

	OutputFile string `env:"BDAGRO_OUTPUT_FILE" envDefault:"merge_bd_agro.json"`
	ExportJSON bool   `env:"BDAGRO_EXPORT_JSON" envDefault:"false"`
	JSONFormat string `env:"BDAGRO_JSON_FORMAT" envDefault:"lines" validate:"oneof=lines array"`

	TargetSchema    string `env:"BDAGRO_TARGET_SCHEMA" envDefault:"public"`
	TargetTable     string `env:"BDAGRO_TARGET_TABLE" envDefault:"bd_tomografia" validate:"required"`
	SyncMode        string `env:"BDAGRO_SYNC_MODE" envDefault:"transactional" validate:"oneof=transactional split"`
	HarvestEstimate bool   `env:"BDAGRO_HARVEST_ESTIMATE" envDefault:"false"`
	InsertPageSize  int    `env:"BDAGRO_INSERT_PAGE_SIZE" envDefault:"500" validate:"gte=1"`

	// MetricsFile receives a prometheus textfile dump after each run.
	MetricsFile string `env:"BDAGRO_METRICS_FILE"`
}

type Configuration struct {
	Database DatabaseOptions
	BDAgro   BDAgroOptions

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=silent error warn info debug"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	LogPath   string `env:"LOG_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

// Load reads env files, then the environment, validates the result and
// builds the logger. Call Unload when done.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	if _, err := LoadEnv(envFiles); err != nil {
		return err
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if c.LogPath == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel(), c.LogFormat)
		return nil
	}
	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogFormat, c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

var ErrInvalidConfiguration = errors.New("invalid configuration")

func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			errs := make([]error, 0, len(verrs))
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.Join(errs...))
		}
		return err
	}
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
