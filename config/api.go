package config

// APIConfig configures the HTTP state API. An empty address disables it.
// When Token is set the history endpoint requires "Bearer <token>".
type APIConfig struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}
