package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/trainclimb/internal/config"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/logger"
	"github.com/trainclimb/internal/router"
	"github.com/trainclimb/internal/seed"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "trainclimb",
		Short:         "Train Climb blog and marketing site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file (default ./config.yaml)")

	load := func() (config.AppConfig, error) {
		cfg, err := config.LoadFile(configFile)
		if err != nil {
			return cfg, err
		}
		warnings, err := cfg.Validate()
		if err != nil {
			return cfg, err
		}
		if err := logger.Init(logger.Options{Mode: cfg.LogMode, Level: cfg.LogLevel, Dir: cfg.LogDir}); err != nil {
			return cfg, fmt.Errorf("init logger: %w", err)
		}
		for _, warning := range warnings {
			logger.Log.Warn(warning)
		}
		// 初始化数据库
		if err := db.Init(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseDSN}); err != nil {
			return cfg, fmt.Errorf("init database: %w", err)
		}
		return cfg, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runServer(cfg)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(); err != nil {
				return err
			}
			defer logger.Sync()
			logger.Log.Info("database migrated")
			return nil
		},
	}

	createUser := &cobra.Command{
		Use:   "createuser <username> <password>",
		Short: "Create an editor account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(); err != nil {
				return err
			}
			defer logger.Sync()
			user, err := db.CreateEditor(db.DB, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created editor %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with a demo site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			port, _ := strconv.Atoi(cfg.Port)
			result, err := seed.Run(cmd.Context(), db.DB, seed.Options{
				UploadDir: cfg.UploadDir,
				UploadURL: cfg.UploadURLPath,
				Hostname:  "localhost",
				Port:      port,
			})
			if errors.Is(err, seed.ErrAlreadySeeded) {
				fmt.Fprintln(cmd.OutOrStdout(), "database already seeded, nothing to do")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded home page %d with %d posts\n", result.Home.PageID, len(result.Posts))
			return nil
		},
	}

	root.AddCommand(serve, migrate, createUser, seedCmd)
	// 不带子命令时直接启动服务
	root.RunE = serve.RunE
	return root
}

func runServer(cfg config.AppConfig) error {
	gin.SetMode(cfg.GinMode)

	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		return fmt.Errorf("ensure editor: %w", err)
	}

	// 设置并运行 Gin 服务器
	r, err := router.SetupRouter(db.DB, router.Options{
		SessionSecret:      cfg.SessionSecret,
		UploadDir:          cfg.UploadDir,
		UploadURLPath:      cfg.UploadURLPath,
		SiteBaseURL:        cfg.SiteBaseURL,
		SiteName:           cfg.SiteName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}

	logger.Log.Info("server starting",
		zap.String("addr", cfg.ListenAddr),
		zap.String("database", strings.ToLower(cfg.DatabaseDriver)),
	)
	return r.Run(cfg.ListenAddr)
}
