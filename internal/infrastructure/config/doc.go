// Package config handles loading and validating ClickFlow Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT credentials, InfluxDB tokens) should be set
//     via environment variables
//   - The config file should have restricted permissions (0600)
//   - The control API binds to loopback by default; widen api.host only
//     on trusted networks
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.App.Name)
package config
