package constants

import "time"

const (
	AppName = "bigcalc"

	DefaultProjectSettingsFileName = "bigcalc.yaml"
	DefaultSiteSettingsFileName    = "site.toml"
	DefaultEnvFileName             = ".env"

	// Layout defaults, relative to the project root.
	DefaultSiteProject = "cmd/bigcalc-web"
	DefaultReleaseDir  = "dist"
	DefaultPublishDir  = "public"

	DefaultProductionBranch = "main"
	DefaultHostingBranch    = "gh-pages"
	DefaultServerAddr       = "localhost:8080"
	DefaultWorkflowPath     = ".github/workflows/deploy.yml"

	DeployTargetBranch = "branch"
	DeployTargetS3     = "s3"
	DeployTargetDir    = "dir"

	// Release artifacts.
	WasmFileName     = "bigcalc.wasm"
	WasmExecFileName = "wasm_exec.js"
	IndexFileName    = "index.html"
	StyleFileName    = "style.css"
	ManifestFileName = "manifest.json"
	BrotliSuffix     = ".br"
	NoJekyllFileName = ".nojekyll"

	DefaultGitHubAPIURL = "https://api.github.com"

	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultRequestTimeout     = 30 * time.Second
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultSweepSchedule      = "@every 1m"
	MaxRequestBodySize        = 64 * 1024
	MaxInputLength            = 16 * 1024
)
