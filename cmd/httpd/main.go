// Command httpd is the server's process entrypoint: it assembles a
// config.Config from flags, a config file and HTTPD_-prefixed
// environment variables, loads and (optionally) watches a rule file,
// then runs the server until an interrupt or terminate signal arrives.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shoresys/httpd/pkg/config"
	"github.com/shoresys/httpd/pkg/rules"
	"github.com/shoresys/httpd/pkg/server"
	"github.com/shoresys/httpd/pkg/serverlog"
)

var cfgFile string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "httpd",
		Short: "A synchronous HTTP/1.1 origin server with rule-based response rewriting",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to a config file (YAML/JSON/TOML)")
	flags.String("root", "", "document root directory")
	flags.Int("port", 0, "plaintext listen port")
	flags.Bool("https", false, "enable the TLS listener")
	flags.String("cert-path", "", "TLS certificate path (required with --https)")
	flags.String("key-path", "", "TLS private key path (required with --https)")
	flags.String("rules-path", "", "rule file to load and hot-reload")
	flags.Bool("watch-rules", true, "hot-reload rules-path on write")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("tls-profile", "", "TLS version/cipher profile: modern, secure, compatible, legacy")

	_ = viper.BindPFlag("root", flags.Lookup("root"))
	_ = viper.BindPFlag("port", flags.Lookup("port"))
	_ = viper.BindPFlag("https", flags.Lookup("https"))
	_ = viper.BindPFlag("cert_path", flags.Lookup("cert-path"))
	_ = viper.BindPFlag("key_path", flags.Lookup("key-path"))
	_ = viper.BindPFlag("rules_path", flags.Lookup("rules-path"))
	_ = viper.BindPFlag("watch_rules", flags.Lookup("watch-rules"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("tls_profile", flags.Lookup("tls-profile"))

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	// Flags take precedence over a config file's values for the fields a
	// user is most likely to override per invocation.
	if v := viper.GetString("root"); v != "" {
		cfg.Root = v
	}
	if v := viper.GetInt("port"); v != 0 {
		cfg.Port = v
	}
	if viper.GetBool("https") {
		cfg.HTTPS = true
	}
	if v := viper.GetString("cert_path"); v != "" {
		cfg.CertPath = v
	}
	if v := viper.GetString("key_path"); v != "" {
		cfg.KeyPath = v
	}
	if v := viper.GetString("rules_path"); v != "" {
		cfg.RulesPath = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if v := viper.GetString("log_format"); v != "" {
		cfg.LogFormat = v
	}
	if v := viper.GetString("tls_profile"); v != "" {
		cfg.TLSProfile = v
	}
	if cmd.Flags().Changed("watch-rules") {
		cfg.WatchRules = viper.GetBool("watch_rules")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := serverlog.New(cfg.LogLevel, cfg.LogFormat)

	var ruleSet *rules.Set
	if cfg.RulesPath != "" {
		if cfg.WatchRules {
			set, stopWatch, err := rules.Watch(cfg.RulesPath, log)
			if err != nil {
				log.Warnf("rules: cannot watch %s, hot-reload disabled: %v", cfg.RulesPath, err)
			}
			defer stopWatch()
			ruleSet = set
		} else {
			ruleSet = rules.LoadOnce(cfg.RulesPath, log)
		}
	}

	srv := server.New(cfg, ruleSet, nil, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Infof("received %s, shutting down", s)
		srv.Shutdown()
	}()

	return srv.Run()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
