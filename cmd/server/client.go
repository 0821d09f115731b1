package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"ordmap/api/grpcserver"
	"ordmap/config"
	"ordmap/service"
)

var (
	serverAddr  string
	callTimeout time.Duration
)

// withClient dials the server and runs fn with a per-call deadline.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *grpcserver.Client) error) error {
	conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	return fn(ctx, grpcserver.NewClient(conn))
}

var putCmd = &cobra.Command{
	Use:   "put KEY VALUE",
	Short: "Insert or replace a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *grpcserver.Client) error {
			res, err := c.Put(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revision=%d replaced=%v\n", res.Revision, res.Replaced)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Look up a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *grpcserver.Client) error {
			v, ok, err := c.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "(not found)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *grpcserver.Client) error {
			res, ok, err := c.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted=%v revision=%d\n", ok, res.Revision)
			return nil
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [FROM [TO [LIMIT]]]",
	Short: "List keys in ascending order",
	Args:  cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req service.ScanRequest
		if len(args) > 0 {
			req.From = args[0]
		}
		if len(args) > 1 {
			req.To = args[1]
		}
		if len(args) > 2 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("limit: %w", err)
			}
			req.Limit = n
		}
		return withClient(cmd, func(ctx context.Context, c *grpcserver.Client) error {
			entries, err := c.Scan(ctx, req)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Key, e.Value)
			}
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show size, height and invariant status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *grpcserver.Client) error {
			st, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "size=%d height=%d capacity=%d revision=%d balanced=%v\n",
				st.Size, st.Height, st.Capacity, st.Revision, st.Balanced)
			if st.Violation != "" {
				fmt.Fprintln(cmd.OutOrStdout(), st.Violation)
			}
			return nil
		})
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost"+config.DefaultGRPCAddr, "gRPC server address")
	RootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 5*time.Second, "per-call timeout")
	RootCmd.AddCommand(putCmd, getCmd, deleteCmd, scanCmd, statsCmd)
}
