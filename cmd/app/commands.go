package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github-profile-miner/internal/adapter/httpapi"
	"github-profile-miner/internal/domain"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "profile-miner",
		Short:         "Fetch, enrich and export GitHub user profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (yaml/json/toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newDeleteCmd(a))
	return root
}

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build <username>",
		Short: "Fetch a user from GitHub, enrich the bio and persist the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.wire(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			profile, err := svc.BuildProfile(cmd.Context(), args[0], a.cfg.GitHub.Token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfile(profile))
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export <username>",
		Short: "Export a persisted profile as JSON or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.wire(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			file, err := svc.ExportProfile(cmd.Context(), args[0], domain.ExportFormat(format))
			if err != nil {
				return err
			}
			path, err := writeExport(cmd.OutOrStdout(), outDir, file)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("✓")+" wrote "+path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(domain.FormatJSON), "export format: json or csv")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory, - for stdout")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.wire(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      httpapi.NewServer(svc, a.cfg.GitHub.Token, a.logger).Routes(),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}
			return runServer(cmd.Context(), srv, a)
		},
	}
}

// runServer 阻塞直到 ctx 取消，然后优雅关闭
func runServer(ctx context.Context, srv *http.Server, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a persisted profile with its repositories and export records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.wire(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.DeleteProfile(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("✓")+" deleted "+args[0])
			return nil
		},
	}
}

// writeExport dir 为 "-" 时写到 w，否则写入 dir/{filename} 并返回路径
func writeExport(w io.Writer, dir string, file *domain.ExportFile) (string, error) {
	if dir == "-" {
		_, err := w.Write(file.Payload)
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, file.Filename)
	if err := os.WriteFile(path, file.Payload, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}
