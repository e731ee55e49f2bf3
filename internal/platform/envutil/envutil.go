package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

func lookup(name string, log *logger.Logger) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		if log != nil {
			log.Debug("Environment variable not found, using default", "env_var", name)
		}
		return "", false
	}
	return v, true
}

func String(name, def string, log *logger.Logger) string {
	v, ok := lookup(name, log)
	if !ok {
		return def
	}
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v, ok := lookup(name, log)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable could not be parsed as int, using default", "env_var", name, "value", v, "error", err)
		}
		return def
	}
	return i
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v, ok := lookup(name, log)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	if log != nil {
		log.Warn("Environment variable could not be parsed as bool, using default", "env_var", name, "value", v)
	}
	return def
}

// Seconds reads an integer number of seconds.
func Seconds(name string, def time.Duration, log *logger.Logger) time.Duration {
	secs := Int(name, int(def/time.Second), log)
	if secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func Decimal(name string, def decimal.Decimal, log *logger.Logger) decimal.Decimal {
	v, ok := lookup(name, log)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable could not be parsed as decimal, using default", "env_var", name, "value", v, "error", err)
		}
		return def
	}
	return d
}
