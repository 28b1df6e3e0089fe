/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/spf13/cobra"

	"github.com/lewtec/yolomark/internal/store"
	"github.com/lewtec/yolomark/workspace"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yolomark",
	Short: "Manage YOLO bounding-box annotation datasets",
	Long: strings.TrimSpace(`
Inspect, filter, auto-annotate, validate and downsample a workspace of YOLO
label files. A workspace is a folder with images/, labels/ and a data.yaml
class manifest; every subcommand takes it via --workspace.
    `),
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "Workspace root containing images/ and labels/")
}

// env is everything a subcommand needs from an opened workspace.
type env struct {
	root    string
	fs      billy.Filesystem
	store   *store.Store
	images  []string
	classes []string
}

func openWorkspace(cmd *cobra.Command) (*env, error) {
	root, err := cmd.Flags().GetString("workspace")
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("while resolving workspace path: %w", err)
	}
	fs := osfs.New(abs)
	if err := workspace.Ensure(fs); err != nil {
		return nil, err
	}
	images, err := workspace.ScanImages(fs)
	if err != nil {
		return nil, err
	}
	classes, err := workspace.LoadClasses(fs)
	if err != nil {
		return nil, err
	}
	return &env{
		root:    abs,
		fs:      fs,
		store:   store.New(fs),
		images:  images,
		classes: classes,
	}, nil
}
