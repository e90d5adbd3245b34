// SPDX-License-Identifier: MIT

package config

import "strings"

// sensitiveKeywords mark environment keys whose values are never logged.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"api_key",
	"credential",
}

// MaskToken keeps the first four characters of a token, like the
// "ghp_****" form printed at startup.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}

// Masked returns a copy of cfg safe to print or log.
func Masked(cfg Config) Config {
	cfg.GitHub.Token = MaskToken(cfg.GitHub.Token)
	if cfg.Cache.Redis.Password != "" {
		cfg.Cache.Redis.Password = "***"
	}
	cfg.Collect.Queries = append([]string(nil), cfg.Collect.Queries...)
	cfg.Collect.Sorts = append([]string(nil), cfg.Collect.Sorts...)
	return cfg
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
