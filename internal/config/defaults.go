package config

const (
	defaultDataDir             = "~/.local/share/loom"
	defaultLogDir              = "~/.local/share/loom/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultQueuePollInterval   = 2
	defaultErrorRetryInterval  = 5
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultWorkerConcurrency   = 4
	defaultStageTimeout        = 1800
	defaultRetryMaxAttempts    = 3
	defaultRetryBackoffBase    = 5
	defaultRetryBackoffMax     = 300
	defaultEducationalCategory = "science"
	defaultAgeBracket          = "6-9"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			WorkerConcurrency:  defaultWorkerConcurrency,
			StageTimeout:       defaultStageTimeout,
		},
		Retry: Retry{
			MaxAttempts:    defaultRetryMaxAttempts,
			BackoffBase:    defaultRetryBackoffBase,
			BackoffMaxWait: defaultRetryBackoffMax,
		},
		Pipeline: Pipeline{
			EducationalCategory: defaultEducationalCategory,
			AgeBracket:          defaultAgeBracket,
		},
		Stages: Stages{
			Commands: map[string]string{},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
