package common

// Global non-constant variables go here.

// AppName - Name of the application.
const AppName = "l2scheme"

// AppVersion - Version of the application.
const AppVersion = "0.3.0"

// PrometheusNamespace - Prometheus metrics namespace.
const PrometheusNamespace = "l2scheme"

// GlobalConfig - Global singleton.
var GlobalConfig = DefaultConfig()

// GlobalCredentials - List of loaded credentials, identified by some ID.
var GlobalCredentials map[string]Credential

// GlobalTargets - List of loaded collect targets, addresses must be unique.
var GlobalTargets []Target
