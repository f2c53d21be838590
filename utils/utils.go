package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sithukyaw666/redeployer/model"
	"github.com/spf13/viper"
)

const EnvPrefix = "REDEPLOY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", "github")
	v.SetDefault("apiURL", "https://api.github.com")
	v.SetDefault("repoOwner", "Mercantec-GHC")
	v.SetDefault("repoName", "h4-projekt-gruppe-0-sm")
	v.SetDefault("targetBranch", "main")
	v.SetDefault("repoURL", "")
	v.SetDefault("sshKeyPath", "")

	v.SetDefault("deployer", "script")
	v.SetDefault("deployScript", "./deploy/redeploy_as_root.sh")
	v.SetDefault("shell", "sh")
	v.SetDefault("workDir", "")
	v.SetDefault("deploymentDir", "")
	v.SetDefault("composeFile", "docker-compose.yml")
	v.SetDefault("dockerAPIVersion", "")

	v.SetDefault("checkInterval", 300)
	v.SetDefault("errorDelay", 60)
	v.SetDefault("fetchTimeout", 10)
	v.SetDefault("dryRun", false)
	v.SetDefault("statusAddr", "")
	v.SetDefault("logLevel", "info")
}

// LoadConfig reads the configuration from path, or from config.yaml in the
// current directory when path is empty. A missing default file is not an
// error: defaults and REDEPLOY_* environment variables still apply.
func LoadConfig(path string) (model.Config, error) {
	config := new(model.Config)
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return *config, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return *config, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return *config, err
	}
	return *config, nil
}

func ValidateConfig(config *model.Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Seconds converts one of the integer second settings into a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
