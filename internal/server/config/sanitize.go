package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Server.HTTP.CORSAllowedOrigins = append([]string(nil), cfg.Server.HTTP.CORSAllowedOrigins...)

	if sanitized.Security.IngestTokenHash != "" {
		sanitized.Security.IngestTokenHash = maskSecret(sanitized.Security.IngestTokenHash)
	}
	if sanitized.Notify.MQTT.Password != "" {
		sanitized.Notify.MQTT.Password = maskSecret(sanitized.Notify.MQTT.Password)
	}

	return &sanitized
}

// maskSecret keeps the first and last two characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
