package commands

// Flag defaults
const (
	DefaultContextLimit = 5
	DefaultRecentLimit  = 20
	DefaultBatchWorkers = 4
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrInvalidRetainDays        = "--days must be > 0"
	ErrInvalidWorkers           = "--workers must be >= 1"
	ErrUnknownOutput            = "--output must be text or json"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgCredentialStored   = "Credential stored for %s (validity reset to unknown)\n"
	MsgCredentialCleared  = "Credential removed for %s\n"
)
