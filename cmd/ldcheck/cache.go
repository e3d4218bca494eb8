// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ldcheck/internal/loader"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the remote context cache",
	Long: `Remote contexts are cached in the store so repeated runs do not fetch
them again until they expire. Bundled contexts are always available and never
fetched.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundled and cached contexts",
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached remote context",
	RunE:  runCacheClear,
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm URL...",
	Short: "Fetch remote contexts into the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCacheWarm,
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmCmd)

	rootCmd.AddCommand(cacheCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	cached, err := e.store.ListContexts(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, u := range loader.Bundled() {
		fmt.Fprintf(w, "%-60s  bundled\n", u)
	}
	now := time.Now()
	for _, c := range cached {
		state := "expires " + c.ExpiresAt.Local().Format(time.RFC3339)
		if c.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "%-60s  %8d bytes  %s\n", c.URL, c.Size, state)
	}
	fmt.Fprintf(w, "\n%d bundled, %d cached\n", len(loader.Bundled()), len(cached))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	n, err := e.store.ClearContexts(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached contexts\n", n)
	return nil
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	e, err := openEnv(loadConfig())
	if err != nil {
		return err
	}
	defer e.Close()

	sizes, err := e.loader.Warm(cmd.Context(), args...)
	for _, u := range args {
		if n, ok := sizes[u]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "cached %s (%d bytes)\n", u, n)
		}
	}
	return err
}
