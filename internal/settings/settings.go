package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/logger"
	"github.com/bigcalc/bigcalc/internal/validation"
)

// sensitive information (never read from the project file)
const (
	GitHubTokenEnvVar         = "BIGCALC_GITHUB_TOKEN"
	FallbackGitHubTokenEnvVar = "GITHUB_TOKEN"
	S3AccessKeyIDEnvVar       = "BIGCALC_S3_ACCESS_KEY_ID"
	S3SecretAccessKeyEnvVar   = "BIGCALC_S3_SECRET_ACCESS_KEY"
)

const loadEnvErrorMessage = "Not able to load configuration from .env file, skipping this optional step.\n" +
	"bigcalc will read individual environment variables instead (they MUST be exported)."

// Settings is the resolved configuration of one invocation.
type Settings struct {
	ProjectRoot string             `json:"projectRoot"`
	ConfigFile  string             `json:"configFile,omitempty"`
	Site        SiteSettings       `mapstructure:"site" json:"site"`
	Deploy      DeploySettings     `mapstructure:"deploy" json:"deploy"`
	Server      ServerSettings     `mapstructure:"server" json:"server"`
	Calculator  CalculatorSettings `mapstructure:"calculator" json:"calculator"`
	GitHubToken logger.Secret      `json:"-"`

	// Static S3 credentials; the AWS default chain is used when unset.
	S3AccessKeyID     string        `json:"-"`
	S3SecretAccessKey logger.Secret `json:"-"`
}

type SiteSettings struct {
	// Project is the web sub-project, relative to the project root.
	Project    string `mapstructure:"project" json:"project" validate:"required" cli:"site.project"`
	ReleaseDir string `mapstructure:"release-dir" json:"releaseDir" validate:"required" cli:"site.release-dir"`
}

type DeploySettings struct {
	PublishDir       string     `mapstructure:"publish-dir" json:"publishDir" validate:"required" cli:"deploy.publish-dir"`
	ProductionBranch string     `mapstructure:"production-branch" json:"productionBranch" validate:"branch" cli:"deploy.production-branch"`
	Target           string     `mapstructure:"target" json:"target" validate:"oneof=branch s3 dir" cli:"deploy.target"`
	Branch           string     `mapstructure:"branch" json:"branch" validate:"branch" cli:"deploy.branch"`
	Repository       string     `mapstructure:"repository" json:"repository,omitempty" validate:"omitempty,repository" cli:"deploy.repository"`
	Dir              string     `mapstructure:"dir" json:"dir,omitempty" cli:"deploy.dir"`
	S3               S3Settings `mapstructure:"s3" json:"s3"`
}

type S3Settings struct {
	Bucket    string `mapstructure:"bucket" json:"bucket,omitempty" cli:"deploy.s3.bucket"`
	Prefix    string `mapstructure:"prefix" json:"prefix,omitempty" cli:"deploy.s3.prefix"`
	Region    string `mapstructure:"region" json:"region,omitempty" cli:"deploy.s3.region"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint,omitempty" validate:"omitempty,http_url" cli:"deploy.s3.endpoint"`
	PathStyle bool   `mapstructure:"path-style" json:"pathStyle,omitempty" cli:"deploy.s3.path-style"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr" json:"addr" validate:"hostname_port" cli:"server.addr"`
}

type CalculatorSettings struct {
	// MaxResultBits caps the bit length of products and powers.
	MaxResultBits uint64 `mapstructure:"max-result-bits" json:"maxResultBits" validate:"min=64" cli:"calculator.max-result-bits"`
}

// New loads the optional `.env` file, the optional project file and the
// environment into v and returns the validated result.
func New(log *zerolog.Logger, v *viper.Viper) (*Settings, error) {
	if err := LoadEnv(v.GetString(Flags.CliEnvFile.Name)); err != nil {
		// .env file is optional
		log.Debug().Err(err).Msg(loadEnvErrorMessage)
	}

	if err := BindEnv(v); err != nil {
		return nil, err
	}
	SetDefaults(v)

	root, configFile, err := LoadSettingsIntoViper(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if configFile != "" {
		log.Debug().Str("file", configFile).Msg("Loaded project settings")
	}

	s := &Settings{ProjectRoot: root, ConfigFile: configFile}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.GitHubToken = logger.Secret(GitHubToken(v))
	s.S3AccessKeyID = v.GetString(S3AccessKeyIDEnvVar)
	s.S3SecretAccessKey = logger.Secret(v.GetString(S3SecretAccessKeyEnvVar))

	validator, err := validation.NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Struct(s); err != nil {
		return nil, err
	}

	log.Debug().
		Str("project", s.Site.Project).
		Str("target", s.Deploy.Target).
		Object("token", s.GitHubToken).
		Msg("Settings resolved")
	return s, nil
}

// Abs resolves a path from the settings against the project root.
func (s *Settings) Abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.ProjectRoot, path)
}

// SiteDir is the absolute path of the web sub-project.
func (s *Settings) SiteDir() string {
	return s.Abs(s.Site.Project)
}

// ReleaseDir is the absolute path of the build output; it is relative to the
// web sub-project.
func (s *Settings) ReleaseDir() string {
	if filepath.IsAbs(s.Site.ReleaseDir) {
		return s.Site.ReleaseDir
	}
	return filepath.Join(s.SiteDir(), s.Site.ReleaseDir)
}

// MaxResultBits is the calculator budget; zero (the calculator default) when
// no settings are loaded.
func (s *Settings) MaxResultBits() uint64 {
	if s == nil {
		return 0
	}
	return s.Calculator.MaxResultBits
}

func (s *Settings) PublishDir() string {
	return s.Abs(s.Deploy.PublishDir)
}

func BindEnv(v *viper.Viper) error {
	for _, variable := range []string{GitHubTokenEnvVar, FallbackGitHubTokenEnvVar, S3AccessKeyIDEnvVar, S3SecretAccessKeyEnvVar} {
		if err := v.BindEnv(variable); err != nil {
			return fmt.Errorf("failed to bind environment variable: %s", variable)
		}
	}
	return nil
}

// GitHubToken prefers the bigcalc specific variable over the one CI runners set.
func GitHubToken(v *viper.Viper) string {
	if token := v.GetString(GitHubTokenEnvVar); token != "" {
		return token
	}
	return v.GetString(FallbackGitHubTokenEnvVar)
}

func LoadEnv(envPath string) error {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return fmt.Errorf("error loading file from %s: %w", envPath, err)
			}
			return nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("error getting working directory: %w", err)
	}

	foundEnvPath, err := findFileUpwards(cwd, constants.DefaultEnvFileName)
	if err != nil {
		return fmt.Errorf("error loading environment: %w", err)
	}

	if err := godotenv.Load(foundEnvPath); err != nil {
		return fmt.Errorf("error loading file from %s: %w", foundEnvPath, err)
	}
	return nil
}

func findFileUpwards(startDir, fileName string) (string, error) {
	dir := startDir

	for {
		filePath := filepath.Join(dir, fileName)

		if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
			return filePath, nil
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			break // Reached the root directory.
		}
		dir = parentDir
	}
	return "", fmt.Errorf("file %s not found in any parent directory starting from %s", fileName, startDir)
}
