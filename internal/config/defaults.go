package config

const (
	defaultDataDir         = "~/.local/share/localdeck"
	defaultLogDir          = "~/.local/share/localdeck/logs"
	defaultAPIBind         = "127.0.0.1:7368"
	defaultFetchTimeout    = 300
	defaultFetchRate       = 6
	defaultFailureCooldown = 30
	defaultPlayer          = "ffplay"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultBaseURL         = "http://localhost:7368"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Library: Library{
			FollowSymlinks: false,
		},
		Fetch: Fetch{
			TimeoutSeconds:  defaultFetchTimeout,
			RatePerMinute:   defaultFetchRate,
			FailureCooldown: defaultFailureCooldown,
		},
		Playback: Playback{
			Player:     defaultPlayer,
			PlayerArgs: []string{"-nodisp", "-autoexit", "-loglevel", "error"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		PublicEndpoint: PublicEndpoint{
			BaseURL: defaultBaseURL,
		},
	}
}
