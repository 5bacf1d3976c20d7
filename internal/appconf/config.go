package appconf

// Environment identifies the runtime environment of the application.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// EnvFlagToEnvironment converts an environment flag value to an Environment.
// Unknown values default to Development.
func EnvFlagToEnvironment(envFlag string) Environment {
	switch envFlag {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// Config holds application-level configuration supplied on the command line.
type Config struct {
	Port      int
	Env       Environment
	RateLimit int
	Verbose   bool
}
