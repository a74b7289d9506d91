package main

import (
	"fmt"

	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/spf13/cobra"
)

func init() {
	ratelimitResetCmd.Flags().StringVar(&resetBucket, "bucket", string(ratelimit.BucketSubmission), "Bucket to clear")
	ratelimitResetCmd.Flags().StringVar(&resetIP, "ip", "", "Caller IP to clear (required)")
	ratelimitResetCmd.Flags().StringVar(&resetPrefix, "key-prefix", envOr("HACKREG_RATE_LIMIT_PREFIX", "hackreg_rl:"), "Redis key prefix the server uses")
	_ = ratelimitResetCmd.MarkFlagRequired("ip")
	ratelimitCmd.AddCommand(ratelimitResetCmd)
	rootCmd.AddCommand(ratelimitCmd)
}

var (
	resetBucket string
	resetIP     string
	resetPrefix string
)

var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect and clear rate-limit counters",
}

var ratelimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear one caller's counter in one bucket",
	Long: `Clear one caller's counter and any block in one bucket. Unlike the HTTP
debug endpoint this works against production counters.

Example:
  hackregctl ratelimit reset --bucket submission --ip 203.0.113.7`,
	Args: cobra.NoArgs,
	RunE: runRatelimitReset,
}

func runRatelimitReset(cmd *cobra.Command, args []string) error {
	if redisURL == "" {
		return configError{fmt.Errorf("--redis-url is required")}
	}
	if resetIP == "" {
		return fmt.Errorf("--ip is required")
	}

	ctx, cancel := timeouts.WithTimeout(cmd.Context(), timeouts.Short(), newLogger(), "rate limit reset")
	defer cancel()

	rdb, err := ratelimit.Dial(ctx, redisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	gate := ratelimit.NewGate(ratelimit.NewRedisStore(rdb), ratelimit.DefaultPolicies(),
		ratelimit.WithKeyPrefix(resetPrefix),
		ratelimit.WithLogger(newLogger()))
	bucket := ratelimit.Bucket(resetBucket)
	if err := gate.ForceReset(ctx, bucket, resetIP); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if humanOutput {
		outputHuman(out, "Cleared %s for %s\n", bucket, resetIP)
		return nil
	}
	return outputJSON(out, ResetResponse{Status: "reset", Bucket: string(bucket), IP: resetIP})
}
