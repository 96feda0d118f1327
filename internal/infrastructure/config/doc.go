// Package config handles loading and validating the ANT+ bridge
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with ANTPLUS_* environment variables
//   - Validation of every section, reporting all problems at once
//   - Default value handling
//
// Security Considerations:
//   - The ANT+ network key and broker credentials should be set via
//     environment variables, not committed in the YAML file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range cfg.HeartRate.Sensors {
//	    fmt.Println(s.Name, s.DeviceNumber)
//	}
package config
