// Package main provides hackregctl, the operator CLI for hackreg.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dalemusser/hackreg/internal/app/system/dbconn"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitError       = 1 // runtime failure
	ExitConfigError = 2 // missing or invalid connection settings
)

var (
	mongoURI    string
	mongoDB     string
	redisURL    string
	humanOutput bool
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var cfgErr configError
		if errors.As(err, &cfgErr) {
			os.Exit(ExitConfigError)
		}
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hackregctl",
	Short: "Operator tooling for the hackathon registration service",
	Long: `hackregctl manages the college directory and rate-limit counters of a
running hackreg deployment. Connection settings default to the same
HACKREG_* environment variables the server reads.

All commands print JSON unless --human is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("HACKREG_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&mongoDB, "mongo-db", envOr("HACKREG_MONGO_DATABASE", "hackreg"), "MongoDB database name")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", os.Getenv("HACKREG_REDIS_URL"), "Redis URL for rate-limit counters")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log connection activity to stderr")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// configError marks failures caused by connection settings.
type configError struct{ error }

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// openDatabase connects to MongoDB. The returned close func must be called.
func openDatabase(ctx context.Context) (*mongo.Database, func(), error) {
	if mongoURI == "" || mongoDB == "" {
		return nil, nil, configError{fmt.Errorf("--mongo-uri and --mongo-db are required")}
	}
	conn := dbconn.New(mongoURI, mongoDB, dbconn.Options{}, newLogger())
	db, err := conn.EnsureConnected(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	return db, func() { _ = conn.Close(context.Background()) }, nil
}
