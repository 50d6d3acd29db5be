package config

import "path/filepath"

const (
	defaultLogDir                  = "~/.local/share/sphered/logs"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultIntervalSeconds         = 60
	defaultCollectionWindowSeconds = 5
	defaultGraceSeconds            = 10
	defaultHelperCommand           = "sphere-helper"
	defaultHookShell               = "bash"
	defaultProjectEnv              = "CLAUDE_PROJECT_DIR"
	helperEnvOverride              = "SPHERED_HELPER"
)

// DefaultPIDFile is the well-known daemon record location shared by every
// start, stop and status invocation on the machine. It does not follow
// $TMPDIR, which differs between shells and users.
func DefaultPIDFile() string {
	return filepath.Join("/tmp", "claude", "sphere-daemon.pid")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PIDFile: DefaultPIDFile(),
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Poll: Poll{
			IntervalSeconds:         defaultIntervalSeconds,
			CollectionWindowSeconds: defaultCollectionWindowSeconds,
			GraceSeconds:            defaultGraceSeconds,
		},
		Source: Source{
			HelperCommand: defaultHelperCommand,
		},
		Hooks: Hooks{
			Shell:      defaultHookShell,
			ProjectEnv: defaultProjectEnv,
		},
	}
}
