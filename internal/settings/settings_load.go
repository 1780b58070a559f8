package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/internal/calculator"
	"github.com/bigcalc/bigcalc/internal/constants"
)

// Config names (YAML field paths)
const (
	SiteProjectSettingName      = "site.project"
	SiteReleaseDirSettingName   = "site.release-dir"
	PublishDirSettingName       = "deploy.publish-dir"
	ProductionBranchSettingName = "deploy.production-branch"
	DeployTargetSettingName     = "deploy.target"
	DeployBranchSettingName     = "deploy.branch"
	DeployRepositorySettingName = "deploy.repository"
	DeployDirSettingName        = "deploy.dir"
	S3BucketSettingName         = "deploy.s3.bucket"
	S3PrefixSettingName         = "deploy.s3.prefix"
	S3RegionSettingName         = "deploy.s3.region"
	S3EndpointSettingName       = "deploy.s3.endpoint"
	S3PathStyleSettingName      = "deploy.s3.path-style"
	ServerAddrSettingName       = "server.addr"
	MaxResultBitsSettingName    = "calculator.max-result-bits"
)

type Flag struct {
	Name  string
	Short string
}

type flagNames struct {
	ProjectRoot      Flag
	CliEnvFile       Flag
	Verbose          Flag
	NonInteractive   Flag
	SkipConfirmation Flag
}

var Flags = flagNames{
	ProjectRoot:      Flag{"project-root", "R"},
	CliEnvFile:       Flag{"env", "e"},
	Verbose:          Flag{"verbose", "v"},
	NonInteractive:   Flag{"non-interactive", ""},
	SkipConfirmation: Flag{"yes", "y"},
}

func AddSkipConfirmation(cmd *cobra.Command) {
	cmd.Flags().BoolP(Flags.SkipConfirmation.Name, Flags.SkipConfirmation.Short, false, "If set, the command will skip the confirmation prompt and proceed with the operation")
}

// SetDefaults installs the values used when neither a flag nor the project
// file sets a key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(SiteProjectSettingName, constants.DefaultSiteProject)
	v.SetDefault(SiteReleaseDirSettingName, constants.DefaultReleaseDir)
	v.SetDefault(PublishDirSettingName, constants.DefaultPublishDir)
	v.SetDefault(ProductionBranchSettingName, constants.DefaultProductionBranch)
	v.SetDefault(DeployTargetSettingName, constants.DeployTargetBranch)
	v.SetDefault(DeployBranchSettingName, constants.DefaultHostingBranch)
	v.SetDefault(ServerAddrSettingName, constants.DefaultServerAddr)
	v.SetDefault(MaxResultBitsSettingName, calculator.DefaultMaxResultBits)
}

func mergeConfigToViper(v *viper.Viper, filePath string) error {
	v.SetConfigFile(filePath)
	err := v.MergeInConfig()
	if err != nil {
		return fmt.Errorf("error loading config file %s: %w", filePath, err)
	}
	return nil
}

// LoadSettingsIntoViper merges the project file (if found) into v and returns
// the project root together with the file that was loaded. Without a project
// file the root is the --project-root flag or the working directory.
func LoadSettingsIntoViper(v *viper.Viper) (root string, configFile string, err error) {
	start := v.GetString(Flags.ProjectRoot.Name)
	if start == "" {
		if start, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}
	start, err = filepath.Abs(start)
	if err != nil {
		return "", "", err
	}

	configFile, err = FindProjectSettingsPath(start)
	if errors.Is(err, os.ErrNotExist) {
		return start, "", nil
	}
	if err != nil {
		return "", "", err
	}

	v.SetConfigType("yaml")
	if err := mergeConfigToViper(v, configFile); err != nil {
		return "", "", fmt.Errorf("failed to load project settings: %w", err)
	}
	return filepath.Dir(configFile), configFile, nil
}

// FindProjectSettingsPath walks up from startDir looking for the project file.
func FindProjectSettingsPath(startDir string) (string, error) {
	path, err := findFileUpwards(startDir, constants.DefaultProjectSettingsFileName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", os.ErrNotExist, err)
	}
	return path, nil
}
