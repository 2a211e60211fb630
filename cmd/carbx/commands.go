package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/layer-3/carbx/internal/logger"
	transporthttp "github.com/layer-3/carbx/transport/http"
)

// withApp wires the dashboard for the duration of a command
func withApp(run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, globalOptions)
		if err != nil {
			return err
		}
		defer a.Close()

		return run(ctx, a, cmd, args)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signedIn makes sure a backend session exists before a protected call
func signedIn(ctx context.Context, a *app) error {
	ok, err := a.dashboard.EnsureAuthorized(ctx)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	if !ok {
		return errors.New("sign-in did not produce a session")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
		if !a.cfg.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		router := transporthttp.SetupRouter(a.dashboard, transporthttp.RouterConfig{
			Logger:         logger.Default(),
			Metrics:        a.metrics,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
		})

		srv := &http.Server{
			Addr:              net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port)),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}),
}

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in to the backend with the wallet",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		ok, err := a.dashboard.SignIn(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("backend returned no session")
		}
		return printJSON(cmd, a.dashboard.Session())
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the backend session",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		if _, err := a.dashboard.CheckSession(ctx); err != nil {
			return err
		}
		return printJSON(cmd, struct {
			Wallet  any `json:"wallet"`
			Session any `json:"session"`
		}{a.dashboard.WalletStatus(), a.dashboard.Session()})
	}),
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the Puro deposit account",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		if err := signedIn(ctx, a); err != nil {
			return err
		}
		account, err := a.dashboard.PuroAccount(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, account)
	}),
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List tokenization orders, newest first",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		if err := signedIn(ctx, a); err != nil {
			return err
		}
		rows, err := a.dashboard.Orders(ctx, true)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDER\tTYPE\tSTATUS\tCREATED\tMINT TX")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				row.OrderID, row.OrderType, row.Status, orDash(row.CreatedAt), orDash(&row.MintExplorerURL))
		}
		return tw.Flush()
	}),
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List vintage tokens held by the wallet",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		assets, err := a.dashboard.Tokens(ctx, true)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MINT\tNAME\tSYMBOL\tAMOUNT")
		for _, asset := range assets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", asset.Mint, orDash(asset.Name), orDash(asset.Symbol), asset.Amount())
		}
		return tw.Flush()
	}),
}

var redeemOpts struct {
	mint        string
	amount      string
	destination string
}

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Redeem vintage tokens by burning them",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
		if err := a.dashboard.OpenRedemption(ctx, redeemOpts.mint); err != nil {
			return err
		}
		if err := a.dashboard.UpdateRedemption(&redeemOpts.amount, &redeemOpts.destination); err != nil {
			return err
		}

		result, err := a.dashboard.SubmitRedemption(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	}),
}

func init() {
	redeemCmd.Flags().StringVar(&redeemOpts.mint, "mint", "", "mint of the vintage token")
	redeemCmd.Flags().StringVar(&redeemOpts.amount, "amount", "", "amount to burn, in token units")
	redeemCmd.Flags().StringVar(&redeemOpts.destination, "destination", "", "Puro user id credited by the redemption")
	_ = redeemCmd.MarkFlagRequired("mint")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
