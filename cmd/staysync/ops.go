package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	syncapp "staysync/internal/app/handlers/sync"
	"staysync/internal/infra/config"
	"staysync/internal/infra/obs"
	"staysync/internal/infra/platforms"
	"staysync/internal/infra/security"
)

// oneShot builds a runtime whose memory dispatcher delivers inline, runs fn
// and flushes what it recorded.
func oneShot(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())
	if rt.dispatcher != nil {
		rt.dispatcher.Synchronous = true
		if err := loadFixtures(ctx, rt, logger); err != nil {
			logger.Warn("property fixtures load failed", "error", err)
		}
	}
	if err := fn(ctx, rt); err != nil {
		return err
	}
	return rt.flush(ctx)
}

func reapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Release expired holds once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				res, err := rt.reap(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "properties=%d released=%d abandoned=%d\n", res.Properties, res.Released, res.Abandoned)
				return nil
			})
		},
	}
}

func resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync <booking-id>",
		Short: "Queue another propagation round for a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("booking id required")
			}
			return oneShot(cmd, func(ctx context.Context, rt *runtime) error {
				booking, err := commands.Dispatch[syncapp.ResyncBookingCommand, *dto.Booking](ctx, rt.app.Commands, syncapp.ResyncBookingCommand{
					BookingID: args[0],
					Operator:  true,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booking %s queued for resync (sync_status=%s)\n", booking.ID, booking.SyncStatus)
				return nil
			})
		},
	}
}

func platformSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform-sim",
		Short: "Serve a simulated channel gateway over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.PlatformGRPCAddr
			}
			return servePlatformSim(ctx, addr, platforms.NewSimulated(cfg.PlatformFailureRate, cfg.PlatformLatency, time.Now().UnixNano()), logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (defaults to PLATFORM_GRPC_ADDR)")
	return cmd
}

func servePlatformSim(ctx context.Context, addr string, gw *platforms.Simulated, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	platforms.RegisterServer(srv, gw)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	logger.Info("platform simulator listening", "addr", addr)
	return srv.Serve(lis)
}

func channelKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel-key <platform>",
		Short: "Generate a webhook key and the bcrypt hash to configure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, _ := cmd.Flags().GetInt("cost")
			key, hash, err := security.NewChannelKey(cost)
			if err != nil {
				return err
			}
			if _, err := security.NewChannelKeys(map[string]string{args[0]: hash}); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key:  %s\n", key)
			fmt.Fprintf(out, "CHANNEL_KEY_HASHES entry: %s=%s\n", args[0], hash)
			return nil
		},
	}
	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an identity token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tokens, err := security.NewTokens(cfg.JWTSecret)
			if err != nil {
				return err
			}
			tokens.Issuer = defaultJWTIssuer
			user, _ := cmd.Flags().GetString("user")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			tokens.TTL = ttl
			raw, err := tokens.Issue(user, roles...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id (token subject)")
	cmd.Flags().StringSlice("role", nil, "role to grant: guest, host or operator")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
