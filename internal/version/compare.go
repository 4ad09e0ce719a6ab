package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-retail/pkg/errors"
)

// CheckConfigCompatibility checks that a config file written for
// configVersion can be read by appVersion.
//
// Compatibility Rules:
//   - An empty config version is always accepted
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The config minor version must not be newer than the app's
//   - Patch versions can differ
//
// Examples:
//   - App 1.2.0, Config 1.2.0 -> OK
//   - App 1.3.0, Config 1.2.4 -> OK (older config)
//   - App 1.2.0, Config 1.3.0 -> ERROR (config needs a newer app)
//   - App 2.0.0, Config 1.2.0 -> ERROR (major differs)
func CheckConfigCompatibility(appVersion, configVersion string) error {
	if configVersion == "" {
		return nil
	}

	appVersion = strings.TrimPrefix(appVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if appVersion == "main" || configVersion == "main" {
		return nil
	}

	app, err := semver.NewVersion(appVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid app version '%s'", appVersion)
	}

	cfg, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version '%s'", configVersion)
	}

	if app.Major() != cfg.Major() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "major version mismatch: app is %d.x.x but config requires %d.x.x",
			app.Major(), cfg.Major())
	}

	if cfg.Minor() > app.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "minor version mismatch: app is %d.%d.x but config requires %d.%d.x",
			app.Major(), app.Minor(), cfg.Major(), cfg.Minor())
	}

	return nil
}
