package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcalc/bigcalc/internal/calculator"
	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/testutil"
)

const validProjectSettingsFile = `
site:
  project: web
  release-dir: out
deploy:
  publish-dir: site
  target: s3
  repository: bigcalc/bigcalc
  s3:
    bucket: calc-site
    prefix: preview
    endpoint: http://localhost:9000
    path-style: true
server:
  addr: 127.0.0.1:9090
calculator:
  max-result-bits: 4096
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, constants.DefaultProjectSettingsFileName), []byte(content), 0600))
	return root
}

func TestNewWithoutProjectFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv(settings.GitHubTokenEnvVar, "")
	t.Setenv(settings.FallbackGitHubTokenEnvVar, "")

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, root)

	s, err := settings.New(testutil.NewTestLogger(), v)
	require.NoError(t, err)

	assert.Equal(t, root, s.ProjectRoot)
	assert.Empty(t, s.ConfigFile)
	assert.Equal(t, constants.DefaultSiteProject, s.Site.Project)
	assert.Equal(t, filepath.Join(root, "cmd", "bigcalc-web", "dist"), s.ReleaseDir())
	assert.Equal(t, filepath.Join(root, "public"), s.PublishDir())
	assert.Equal(t, "main", s.Deploy.ProductionBranch)
	assert.Equal(t, "branch", s.Deploy.Target)
	assert.Equal(t, "gh-pages", s.Deploy.Branch)
	assert.Equal(t, "localhost:8080", s.Server.Addr)
	assert.Equal(t, uint64(calculator.DefaultMaxResultBits), s.MaxResultBits())
}

func TestNewLoadsProjectFileFromParent(t *testing.T) {
	root := writeProject(t, validProjectSettingsFile)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, nested)

	s, err := settings.New(testutil.NewTestLogger(), v)
	require.NoError(t, err)

	assert.Equal(t, root, s.ProjectRoot)
	assert.Equal(t, filepath.Join(root, constants.DefaultProjectSettingsFileName), s.ConfigFile)
	assert.Equal(t, filepath.Join(root, "web"), s.SiteDir())
	assert.Equal(t, filepath.Join(root, "web", "out"), s.ReleaseDir())
	assert.Equal(t, filepath.Join(root, "site"), s.PublishDir())
	assert.Equal(t, "s3", s.Deploy.Target)
	assert.Equal(t, "bigcalc/bigcalc", s.Deploy.Repository)
	assert.Equal(t, settings.S3Settings{
		Bucket:    "calc-site",
		Prefix:    "preview",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
	}, s.Deploy.S3)
	assert.Equal(t, "127.0.0.1:9090", s.Server.Addr)
	assert.Equal(t, uint64(4096), s.MaxResultBits())
}

func TestFlagsOverrideProjectFile(t *testing.T) {
	root := writeProject(t, validProjectSettingsFile)

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, root)
	v.Set(settings.DeployTargetSettingName, "dir")

	s, err := settings.New(testutil.NewTestLogger(), v)
	require.NoError(t, err)
	assert.Equal(t, "dir", s.Deploy.Target)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	root := writeProject(t, `
deploy:
  target: ftp
  repository: not-a-slug
`)

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, root)

	_, err := settings.New(testutil.NewTestLogger(), v)
	require.Error(t, err)
	assert.ErrorContains(t, err, "deploy.target is ftp, must be one of [branch s3 dir]")
	assert.ErrorContains(t, err, "deploy.repository must be a GitHub repository in owner/name form: not-a-slug")
}

func TestNewRejectsTinyResultBudget(t *testing.T) {
	root := writeProject(t, `
calculator:
  max-result-bits: 8
`)

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, root)

	_, err := settings.New(testutil.NewTestLogger(), v)
	assert.ErrorContains(t, err, "calculator.max-result-bits must be 64 or greater")
}

func TestMaxResultBitsWithoutSettings(t *testing.T) {
	var s *settings.Settings
	assert.Zero(t, s.MaxResultBits())
}

func TestGitHubTokenPrecedence(t *testing.T) {
	t.Setenv(settings.FallbackGitHubTokenEnvVar, "runner-token")
	t.Setenv(settings.GitHubTokenEnvVar, "")

	v := viper.New()
	require.NoError(t, settings.BindEnv(v))
	assert.Equal(t, "runner-token", settings.GitHubToken(v))

	t.Setenv(settings.GitHubTokenEnvVar, "bigcalc-token")
	assert.Equal(t, "bigcalc-token", settings.GitHubToken(v))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BIGCALC_TEST_VALUE=from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("BIGCALC_TEST_VALUE") })

	require.NoError(t, settings.LoadEnv(envFile))
	assert.Equal(t, "from-dotenv", os.Getenv("BIGCALC_TEST_VALUE"))
}

func TestSettingsJSONHidesToken(t *testing.T) {
	root := t.TempDir()
	t.Setenv(settings.GitHubTokenEnvVar, "ghp_secretsecretsecret")

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, root)

	s, err := settings.New(testutil.NewTestLogger(), v)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secretsecretsecret", s.GitHubToken.Reveal())
	assert.Equal(t, "ghp_****", s.GitHubToken.String())
}

func TestS3CredentialsFromEnvironment(t *testing.T) {
	t.Setenv(settings.S3AccessKeyIDEnvVar, "AKIDEXAMPLE")
	t.Setenv(settings.S3SecretAccessKeyEnvVar, "wJalrXUtnFEMI")

	v := viper.New()
	v.Set(settings.Flags.ProjectRoot.Name, t.TempDir())

	s, err := settings.New(testutil.NewTestLogger(), v)
	require.NoError(t, err)
	assert.Equal(t, "AKIDEXAMPLE", s.S3AccessKeyID)
	assert.Equal(t, "wJalrXUtnFEMI", s.S3SecretAccessKey.Reveal())
	assert.NotContains(t, s.S3SecretAccessKey.String(), "wJalrXUtnFEMI")
}

func TestDiscoveryFromWorkingDirectory(t *testing.T) {
	root := writeProject(t, validProjectSettingsFile)
	require.NoError(t, os.WriteFile(filepath.Join(root, constants.DefaultEnvFileName), []byte("BIGCALC_TEST_DISCOVERED=yes\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("BIGCALC_TEST_DISCOVERED") })

	nested := filepath.Join(root, "cmd", "deep")
	require.NoError(t, os.MkdirAll(nested, 0755))
	testutil.ChangeWorkingDirectory(t, nested)

	s, err := settings.New(testutil.NewTestLogger(), viper.New())
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(s.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
	assert.Equal(t, "yes", os.Getenv("BIGCALC_TEST_DISCOVERED"))
}
