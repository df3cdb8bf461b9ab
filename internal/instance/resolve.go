package instance

import (
	"fmt"
	"regexp"
)

const DefaultName = "main"

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Resolve determines the active instance name using precedence:
// 1. flagOverride (--instance flag)
// 2. configDefault (config.toml default_instance)
// 3. "main"
func Resolve(flagOverride, configDefault string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if configDefault != "" {
		return configDefault
	}
	return DefaultName
}

// ValidateName checks that name conforms to instance naming rules.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid instance name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}
