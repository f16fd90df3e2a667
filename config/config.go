// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"dml-runner/internal/domain"
)

const (
	DefaultSourceDir   = "raw/dml"
	DefaultMetaTable   = "RawScriptsMeta"
	DefaultSplitter    = "semicolon"
	DefaultServiceName = "dml-runner"
)

// 必須の環境変数
var requiredEnv = []string{"DBHOST", "DBUSER", "DBPASSWORD", "DBNAME"}

// Config はアプリケーション設定を表す。
type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string

	SourceDir   string
	MetaTable   string
	Splitter    string
	RetryFailed bool

	LogLevel  string
	LogFormat string

	OtelEnabled      bool
	OtelEndpoint     string
	OtelServiceName  string
	OtelSamplingRate float64
}

// Load は環境変数から設定を読み込む。
// 必須の環境変数が不足している場合は不足分をまとめて domain.ErrConfig で返す。
func Load() (*Config, error) {
	var missing []string
	for _, key := range requiredEnv {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s env variable not defined", domain.ErrConfig, strings.Join(missing, ", "))
	}

	retryFailed, err := getEnvBool("RETRY_FAILED", false)
	if err != nil {
		return nil, err
	}
	otelEnabled, err := getEnvBool("OTEL_ENABLED", false)
	if err != nil {
		return nil, err
	}
	samplingRate := 1.0
	if v := os.Getenv("OTEL_SAMPLING_RATE"); v != "" {
		samplingRate, err = strconv.ParseFloat(v, 64)
		if err != nil || samplingRate < 0 || samplingRate > 1 {
			return nil, fmt.Errorf("%w: OTEL_SAMPLING_RATE must be a number between 0 and 1: %q", domain.ErrConfig, v)
		}
	}

	return &Config{
		DBHost:           os.Getenv("DBHOST"),
		DBUser:           os.Getenv("DBUSER"),
		DBPassword:       os.Getenv("DBPASSWORD"),
		DBName:           os.Getenv("DBNAME"),
		SourceDir:        getEnv("DML_DIR", DefaultSourceDir),
		MetaTable:        getEnv("META_TABLE", DefaultMetaTable),
		Splitter:         getEnv("SQL_SPLITTER", DefaultSplitter),
		RetryFailed:      retryFailed,
		LogLevel:         getEnv("LOG_LEVEL", "DEBUG"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
		OtelEnabled:      otelEnabled,
		OtelEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelServiceName:  getEnv("OTEL_SERVICE_NAME", DefaultServiceName),
		OtelSamplingRate: samplingRate,
	}, nil
}

// DSN はMySQL接続用のDSNを生成する。
// DBHOST にポートが含まれない場合はドライバの既定ポートが使われる。
func (c *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPassword
	mc.Net = "tcp"
	mc.Addr = c.DBHost
	mc.DBName = c.DBName
	mc.ParseTime = true
	return mc.FormatDSN()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean: %q", domain.ErrConfig, key, val)
	}
	return b, nil
}
