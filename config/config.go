package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"catvton-prep/internal/domain/entity"
)

const EnvPrefix = "CATVTON"

const (
	BackendWorker = "worker"
	BackendHTTP   = "http"

	ColorizerLUT  = "lut"
	ColorizerGoCV = "gocv"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	CkptPath   string `mapstructure:"catvton_ckpt_path"`
	FilePath   string `mapstructure:"file_path"`
	InputImage string `mapstructure:"input_image"`
	InputCloth string `mapstructure:"input_cloth"`
	OutputMask string `mapstructure:"output_mask"`
	OutputPose string `mapstructure:"output_pose"`
	Debug      bool   `mapstructure:"debug"`
	LogFile    string `mapstructure:"log_file"`

	Backend          string        `mapstructure:"backend"`
	WorkerCmd        string        `mapstructure:"worker_cmd"`
	WorkerReady      time.Duration `mapstructure:"worker_ready_timeout"`
	Device           string        `mapstructure:"device"`
	InferenceURL     string        `mapstructure:"inference_url"`
	InferenceTimeout time.Duration `mapstructure:"inference_timeout"`

	PoseSize  int    `mapstructure:"pose_size"`
	Colormap  string `mapstructure:"colormap"`
	Colorizer string `mapstructure:"colorizer"`

	KeepGoing   bool          `mapstructure:"keep_going"`
	SkipDone    bool          `mapstructure:"skip_done"`
	Ledger      string        `mapstructure:"ledger"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	MetricsFile string        `mapstructure:"metrics_file"`

	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
}

// RegisterFlags описывает флаги командной строки
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file")
	fs.String("catvton_ckpt_path", "zhengchong/CatVTON", "The path to the checkpoint of CatVTON or a Hugging Face repo id")
	fs.String("file_path", "", "Path to the paired file")
	fs.String("input_image", "", "Path to the person image directory")
	fs.String("input_cloth", "", "Path to the garment image directory")
	fs.String("output_mask", "", "Path to the mask output directory")
	fs.String("output_pose", "", "Path to the DensePose output directory")
	fs.Bool("debug", false, "Debugging logging activated")
	fs.String("log_file", "", "Log file (default <binary name>.log)")

	fs.String("backend", BackendWorker, "Predictor backend: worker or http")
	fs.String("worker_cmd", "python scripts/automasker_worker.py", "Predictor worker command")
	fs.Duration("worker_ready_timeout", 10*time.Minute, "How long to wait for the worker to load models")
	fs.String("device", "cuda", "Device passed to the predictor worker")
	fs.String("inference_url", "", "Base URL of the HTTP inference server")
	fs.Duration("inference_timeout", 2*time.Minute, "HTTP inference request timeout")

	fs.Int("pose_size", 1024, "Side of the square DensePose image")
	fs.String("colormap", string(entity.ColormapParula), "DensePose palette: parula, jet or bone")
	fs.String("colorizer", ColorizerLUT, "DensePose colorizer: lut or gocv")

	fs.Bool("keep_going", false, "Record failed pairs and continue")
	fs.Bool("skip_done", false, "Skip pairs already completed according to --ledger")
	fs.String("ledger", "", "SQLite run ledger path (in-memory when empty)")
	fs.String("redis_addr", "", "Redis address for the result cache")
	fs.Duration("cache_ttl", 7*24*time.Hour, "Result cache TTL")
	fs.String("metrics_file", "", "Write Prometheus metrics textfile at the end of the run")
}

// Load собирает конфиг: флаги, переменные CATVTON_*, .env и YAML файл
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", 0)

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read config file: %w", ErrInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные поля и допустимые значения
func (c *Config) Validate() error {
	var problems []string

	required := []struct{ name, value string }{
		{"file_path", c.FilePath},
		{"input_image", c.InputImage},
		{"input_cloth", c.InputCloth},
		{"output_mask", c.OutputMask},
		{"output_pose", c.OutputPose},
		{"catvton_ckpt_path", c.CkptPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.name+" is required")
		}
	}

	switch c.Backend {
	case BackendWorker:
		if len(c.WorkerCommand()) == 0 {
			problems = append(problems, "worker_cmd is required for the worker backend")
		}
	case BackendHTTP:
		if c.InferenceURL == "" {
			problems = append(problems, "inference_url is required for the http backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown backend %q", c.Backend))
	}

	switch c.Colorizer {
	case ColorizerLUT, ColorizerGoCV:
	default:
		problems = append(problems, fmt.Sprintf("unknown colorizer %q", c.Colorizer))
	}

	if _, err := entity.ParseColormap(c.Colormap); err != nil {
		problems = append(problems, err.Error())
	}
	if c.PoseSize <= 0 {
		problems = append(problems, fmt.Sprintf("pose_size must be positive, got %d", c.PoseSize))
	}
	if c.SkipDone && c.Ledger == "" {
		// журнал в памяти пуст на старте, пропускать нечего
		problems = append(problems, "skip_done requires --ledger")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		problems = append(problems, "telegram_chat_id is required when telegram_token is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// WorkerCommand команда воркера, разбитая на аргументы
func (c *Config) WorkerCommand() []string {
	return strings.Fields(c.WorkerCmd)
}

// PoseColormap палитра DensePose после проверки
func (c *Config) PoseColormap() entity.Colormap {
	cmap, err := entity.ParseColormap(c.Colormap)
	if err != nil {
		return entity.ColormapParula
	}
	return cmap
}

// NotifyEnabled сообщает, что настроены уведомления в Telegram
func (c *Config) NotifyEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
