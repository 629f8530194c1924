// Command p9pull copies a 9P2000.L tree onto the local file system in
// one shot: point it at a Unix socket, a virtio-9p character device,
// or nothing (in which case it scans for one), and it recursively
// pulls everything visible under the attached root into a local
// directory.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"9fans.dev/p9l"
	"9fans.dev/p9l/internal/devscan"
	"9fans.dev/p9l/pull"
	"9fans.dev/p9l/transport"
)

var log = logrus.StandardLogger()

var rootCmd = &cobra.Command{
	Use:   "p9pull [flags] [device-or-socket-path]",
	Short: "recursively copy a 9P2000.L tree onto the local file system",
	Args:  cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().Uint32("chunk-size", pull.DefaultChunkSize, "bytes requested per Tread/Treaddir")
	rootCmd.Flags().String("uname", "root", "user name attached as")
	rootCmd.Flags().String("aname", "/", "tree name attached to")
	rootCmd.Flags().StringSlice("skip", nil, "glob patterns (path.Match) for entries to skip")

	viper.SetEnvPrefix("P9PULL")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	runID := xid.New().String()
	entry := log.WithField("run", runID)

	localDir := "."

	dial, path, err := resolveDialer(context.Background(), args)
	if err != nil {
		return fmt.Errorf("p9pull: %w", err)
	}
	entry.Infof("pulling from %s into %s", path, localDir)

	// A character device delivers one reply per read(2), so it gets a
	// RecordTransport; anything else is treated as a byte stream.
	var tr transport.Transport = transport.NewStreamTransport(dial)
	if info, err := os.Stat(path); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		devPath := path
		tr = transport.NewRecordTransport(func(ctx context.Context) (io.ReadWriteCloser, error) {
			return os.OpenFile(devPath, os.O_RDWR, 0)
		}, p9l.DefaultMaxSize)
	}
	client := &p9l.Client{
		Transport: tr,
		Logger:    entry,
	}
	opts := pull.Options{
		Uname:       viper.GetString("uname"),
		Aname:       viper.GetString("aname"),
		ChunkSize:   viper.GetUint32("chunk-size"),
		SkipPattern: viper.GetStringSlice("skip"),
		Logger:      log,
	}

	st, err := pull.NewPuller(client, opts).Tree(context.Background(), localDir)
	entry.Infof("pulled %d files (%d bytes) across %d directories, skipped %d, in %s",
		st.Files, st.Bytes, st.Dirs, st.Skipped, st.Elapsed)
	if err != nil {
		return fmt.Errorf("p9pull: %w", err)
	}
	return nil
}

// resolveDialer returns a Dialer for either the explicit positional
// argument (dialed as a Unix socket path) or, when it is omitted, a
// device found by internal/devscan. run replaces it with a device
// opener when the resolved path is a character device.
func resolveDialer(ctx context.Context, args []string) (transport.Dialer, string, error) {
	if len(args) == 1 {
		path := args[0]
		return func(ctx context.Context) (io.ReadWriteCloser, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		}, path, nil
	}

	found, err := devscan.Discover(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("discovering a 9P2000.L device: %w", err)
	}
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		return os.OpenFile(found.Path, os.O_RDWR, 0)
	}, found.Path, nil
}
