package tags

// defaultEnvironments is the built-in environment name set. Custom
// names are added via Config.
var defaultEnvironments = []string{
	"production",
	"staging",
	"canary",
	"sandbox",
	"performance",
}

type Config struct {
	// Additional environment names beyond the defaults.
	Environments []string
}
