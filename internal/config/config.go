// 包 config：命令行配置，合并 .env、TRACKDB_ 前缀环境变量与命令行参数
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"track-spatial/internal/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix：环境变量前缀，例如 TRACKDB_DATABASE
const EnvPrefix = "TRACKDB"

var ErrNoDatabase = errors.New("no database configured")

// Config：一次命令行运行的全部配置
type Config struct {
	Dialect       utils.Dialect
	Database      string
	DSN           string
	DSNFromEnv    bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	LogLevel      string
	LogFormat     string
	Quiet         bool
	MetricsFile   string
}

// LoadDotEnv：依次加载工作目录与 data/env 下的 .env，已存在的环境变量不被覆盖
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// New：带默认值与环境变量绑定的 viper 实例
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("driver", string(utils.SQLite))
	v.SetDefault("database", "")
	v.SetDefault("dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", 3600)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("quiet", false)
	v.SetDefault("metrics_file", "")
	return v
}

// Load：读取并校验配置
// 约束：sqlite 需要数据库文件路径；postgres 的 DSN 为空时按 PG_* 环境变量构造
// 异常：驱动不支持时返回错误；sqlite 未给路径返回 ErrNoDatabase
func Load(v *viper.Viper) (Config, error) {
	d, err := utils.ParseDialect(v.GetString("driver"))
	if err != nil {
		return Config{}, err
	}
	c := Config{
		Dialect:       d,
		Database:      v.GetString("database"),
		DSN:           v.GetString("dsn"),
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		CacheTTL:      time.Duration(v.GetInt("cache_ttl")) * time.Second,
		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
		Quiet:         v.GetBool("quiet"),
		MetricsFile:   v.GetString("metrics_file"),
	}
	switch d {
	case utils.SQLite:
		if c.Database == "" {
			return c, fmt.Errorf("%w: pass --database", ErrNoDatabase)
		}
	case utils.Postgres:
		if c.DSN == "" {
			c.DSN = utils.BuildPostgresDSNFromEnv()
			c.DSNFromEnv = true
		}
	}
	return c, nil
}

// Target：打开存储所用的连接串
func (c Config) Target() string {
	if c.Dialect == utils.Postgres {
		return c.DSN
	}
	return c.Database
}
