package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/opinionatedgame/opinionated/internal/config"
	"github.com/opinionatedgame/opinionated/internal/game"
	"github.com/opinionatedgame/opinionated/internal/ws"
	staticserver "github.com/opinionatedgame/opinionated/static"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Opinionated - shared-device party game companion

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT             Port to listen on (default: 8080)
  SCENARIO_FILE    Path to a JSON scenario pool (falls back to built-ins)
  EXPORT_ENABLED   Export turn results to file (default: true)
  EXPORT_FILE      Path for turn results (default: ./opinionated-results.txt)
  DEBUG            Verbose logging (default: false)

Visit http://localhost:8080 on the shared device after starting.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("opinionated %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg := config.FromEnv()
	port := cfg.Port
	if *portFlag != "" {
		port = *portFlag
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Scenario pool: configured file if readable, otherwise built-ins
	scenarios := game.FallbackScenarios
	if cfg.ScenarioFile != "" {
		loaded, err := game.LoadScenarios(cfg.ScenarioFile)
		if err != nil || len(loaded) == 0 {
			zerologlog.Warn().Err(err).Str("file", cfg.ScenarioFile).Msg("using built-in scenarios")
		} else {
			scenarios = loaded
		}
	}
	zerologlog.Info().Int("scenarios", len(scenarios)).Msg("scenario pool loaded")

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Socket server + game manager
	m := game.NewManager(scenarios)
	sock := ws.New(m, cfg)
	io := sock.Mount(r)
	defer io.Close()

	// Minimal REST API for the active session
	r.GET("/api/session/active", func(c *gin.Context) {
		if code, sess := m.Active(); sess != nil {
			c.JSON(http.StatusOK, gin.H{"sessionCode": code, "phase": string(sess.Phase())})
			return
		}
		c.Status(http.StatusNotFound)
	})
	r.POST("/api/session", func(c *gin.Context) {
		sess := m.CreateSession()
		c.JSON(http.StatusOK, gin.H{"sessionCode": sess.Code})
	})

	// Serve frontend (if embedded build is present) for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	zerologlog.Info().Str("port", port).Msg("listening")
	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
