package ladle

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ConfigFile is looked up relative to the work root.
const ConfigFile = "ladle.conf"

// Config carries every path and setting the pipeline needs. Values holds the
// raw key=value pairs from the config file plus LADLE_* environment
// overrides; the typed fields are filled in by initConfig and are the only
// thing the rest of the code reads.
type Config struct {
	Values map[string]string

	WorkDir     string // root everything else hangs off (default: cwd)
	CheckoutDir string // the upstream source checkout
	BuildDir    string // <checkout>/Build
	ReleaseDir  string // <build>/release
	OutputDir   string // final artifacts land here
	StagingDir  string // relocatable install root, wiped every packaging run
	PatchesDir  string // local *.diff overlay

	SourceURL string // upstream repository
	Branch    string

	VcpkgDir string // vendored package manager checkout
	VcpkgURL string

	CC     string
	CXX    string
	Preset string
	Jobs   int

	AppImageToolURL string
	AppImageTool    string // cached download location
}

// loadConfig reads an optional key=value config file and merges LADLE_*
// environment overrides on top.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)

	return cfg, nil
}

// mergeEnvOverrides copies LADLE_* environment variables into cfg.Values,
// taking precedence over the config file.
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "LADLE_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func (cfg *Config) value(key, fallback string) string {
	if v := cfg.Values[key]; v != "" {
		return v
	}
	return fallback
}

// initConfig resolves the typed fields from cfg.Values and applies defaults.
// Every derived path hangs off WorkDir so the whole tree is relocatable.
func initConfig(cfg *Config) error {
	workDir := cfg.Values["LADLE_WORKDIR"]
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		workDir = cwd
	}
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return err
	}
	cfg.WorkDir = abs

	cfg.CheckoutDir = filepath.Join(cfg.WorkDir, "ladybird")
	cfg.BuildDir = filepath.Join(cfg.CheckoutDir, "Build")
	cfg.ReleaseDir = filepath.Join(cfg.BuildDir, "release")
	cfg.OutputDir = filepath.Join(cfg.WorkDir, "output")
	cfg.StagingDir = filepath.Join(cfg.OutputDir, "ladybird")
	cfg.PatchesDir = cfg.value("LADLE_PATCHES_DIR", filepath.Join(cfg.WorkDir, "patches"))

	cfg.SourceURL = cfg.value("LADLE_SOURCE_URL", "https://github.com/LadybirdBrowser/ladybird.git")
	cfg.Branch = cfg.value("LADLE_BRANCH", "master")

	cfg.VcpkgDir = filepath.Join(cfg.BuildDir, "vcpkg")
	cfg.VcpkgURL = cfg.value("LADLE_VCPKG_URL", "https://github.com/microsoft/vcpkg.git")

	cfg.CC = cfg.value("LADLE_CC", os.Getenv("CC"))
	if cfg.CC == "" {
		cfg.CC = "clang"
	}
	cfg.CXX = cfg.value("LADLE_CXX", os.Getenv("CXX"))
	if cfg.CXX == "" {
		cfg.CXX = "clang++"
	}
	cfg.Preset = cfg.value("LADLE_PRESET", "Release")

	cfg.Jobs = runtime.NumCPU()
	if j := cfg.Values["LADLE_JOBS"]; j != "" {
		n, err := strconv.Atoi(j)
		if err == nil && n > 0 {
			cfg.Jobs = n
		}
	}

	cfg.AppImageToolURL = cfg.value("LADLE_APPIMAGETOOL_URL",
		"https://github.com/AppImage/appimagetool/releases/download/continuous/appimagetool-x86_64.AppImage")
	cfg.AppImageTool = filepath.Join(cfg.WorkDir, "appimagetool-x86_64.AppImage")

	Debug = cfg.Values["LADLE_DEBUG"] == "1"

	return nil
}
