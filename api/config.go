package api

// Config holds the API server configuration.
type Config struct {
	ListenAddr string
}
