package types

// Config holds client configuration.
type Config struct {
	// BackendURL is the base URL of the OpenChad backend API.
	BackendURL string `json:"backendUrl,omitempty"`
	// Theme is the preferred UI theme: "dark" or "light".
	Theme string `json:"theme,omitempty"`
	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`
	// DataDir overrides the directory used for persisted conversations.
	DataDir string `json:"dataDir,omitempty"`
}
