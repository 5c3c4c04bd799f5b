package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"track-spatial/internal/config"
	"track-spatial/internal/logger"
	"track-spatial/internal/revgeo"
	"track-spatial/internal/store"
	"track-spatial/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// app：一次运行共享的配置与输入输出
type app struct {
	v   *viper.Viper
	cfg config.Config
	log *slog.Logger

	in  io.Reader
	out io.Writer
	err io.Writer

	// 标准输入是否为终端；测试中替换
	interactive func() bool
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		v:   config.New(),
		in:  in,
		out: out,
		err: errOut,
		interactive: func() bool {
			f, ok := in.(*os.File)
			return ok && term.IsTerminal(int(f.Fd()))
		},
	}
}

func (a *app) logger() *slog.Logger { return logger.Or(a.log) }

// printf：面向用户的进度输出，安静模式下不输出
func (a *app) printf(format string, args ...any) {
	if a.cfg.Quiet {
		return
	}
	fmt.Fprintf(a.out, format, args...)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "trackdb",
		Short:         "Import GPS recordings into a spatial database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.Configure(logger.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Quiet:  cfg.Quiet,
				Writer: a.err,
			})
			a.log.Debug("config_loaded", "driver", string(cfg.Dialect), "redis", cfg.RedisAddr != "")
			return nil
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.err)

	pf := root.PersistentFlags()
	pf.StringP("database", "d", "", "path to the SQLite database file")
	pf.String("driver", string(utils.SQLite), "storage driver: sqlite3 or postgres")
	pf.String("dsn", "", "PostgreSQL connection string (default built from PG_* variables)")
	pf.BoolP("quiet", "q", false, "only log warnings and errors, never prompt")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	for key, flag := range map[string]string{
		"database":     "database",
		"driver":       "driver",
		"dsn":          "dsn",
		"quiet":        "quiet",
		"metrics_file": "metrics-file",
		"log_level":    "log-level",
		"log_format":   "log-format",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newImportCommand(a),
		newCreateDBCommand(a),
		newRegionsCommand(a),
		newUpdateLocationsCommand(a),
		newStatsCommand(a),
	)
	return root
}

// defaultToImport：首个参数不是子命令时按 import 处理
func defaultToImport(root *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return args
	}
	switch args[0] {
	case "help", "-h", "--help", "-v", "--version", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return args
	}
	cmd, _, err := root.Find(args)
	if err == nil && cmd != root {
		return args
	}
	return append([]string{"import"}, args...)
}

// openStore：按配置打开存储；postgres 未显式给出 DSN 时沿用 PG_* 环境变量与连接池设置
func (a *app) openStore() (*store.Store, error) {
	if a.cfg.Dialect == utils.Postgres && a.cfg.DSNFromEnv {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, err
		}
		return store.AttachDB(db, utils.Postgres, a.log), nil
	}
	return store.Open(a.cfg.Dialect, a.cfg.Target(), a.log)
}

// openRedis：显式地址优先，否则读取 REDIS_HOST；均未配置时返回 nil
func (a *app) openRedis(ctx context.Context) *redis.Client {
	rc := utils.OpenRedis(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if rc == nil {
		rc = utils.OpenRedisFromEnv()
	}
	if rc == nil {
		a.log.Debug("redis_disabled")
		return nil
	}
	if err := rc.Ping(ctx).Err(); err != nil {
		a.log.Warn("redis_ping_error", "err", err)
		_ = rc.Close()
		return nil
	}
	a.log.Debug("redis_ping_ok")
	return rc
}

// loadIndex：读取区域目录并构建带两级缓存的索引；返回的 release 关闭共享缓存连接
func (a *app) loadIndex(ctx context.Context, st *store.Store) (*revgeo.Index, func(), error) {
	rc := a.openRedis(ctx)
	release := func() {
		if rc != nil {
			_ = rc.Close()
		}
	}
	cache := revgeo.NewTieredCache(
		revgeo.NewMemoryCache(a.cfg.CacheTTL),
		revgeo.NewRedisCache(rc, a.cfg.CacheTTL, a.log),
	)
	ix, err := revgeo.Load(ctx, st, revgeo.WithCache(cache), revgeo.WithLogger(a.log))
	if err != nil {
		release()
		return nil, nil, err
	}
	a.log.Info("region_index_loaded", "regions", ix.Len(), "version", ix.Version())
	return ix, release, nil
}
