// Command tlsclient connects to a TLS server, sends what it reads from
// the standard input, and prints the reply on the standard output.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/devlink/tlstransport/internal/config"
	"github.com/devlink/tlstransport/internal/metrics"
	"github.com/devlink/tlstransport/internal/netsocket"
	"github.com/devlink/tlstransport/internal/runtimex"
	"github.com/devlink/tlstransport/internal/tlstransport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
)

// DefaultTimeout is the default value of the --timeout flag.
const DefaultTimeout = 5 * time.Second

// options contains the command line options.
type options struct {
	alpn        []string
	ca          string
	cert        string
	config      string
	engine      string
	fingerprint string
	host        string
	insecure    bool
	key         string
	keyPassword string
	metrics     bool
	noSNI       bool
	port        uint16
	save        string
	timeout     time.Duration
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd := newRootCommand(ctx, os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand creates the tlsclient command.
func newRootCommand(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "tlsclient",
		Short:         "Sends stdin to a TLS server and prints the reply",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetHandler(cli.New(stderr))
			log.SetLevel(log.InfoLevel)
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
				log.Debugf("tlsclient version %s", version.Version)
			}
			profile, err := newProfile(cmd, opts)
			if err != nil {
				log.WithError(err).Error("invalid configuration")
				return err
			}
			if opts.save != "" {
				if err := profile.Write(opts.save); err != nil {
					log.WithError(err).Error("cannot save profile")
					return err
				}
				log.Infof("profile saved to %s", opts.save)
			}
			reg := prometheus.NewRegistry()
			err = run(ctx, profile, metrics.New(reg), stdin, stdout)
			if opts.metrics {
				runtimex.Try0(writeMetrics(reg, stderr))
			}
			if err != nil {
				log.WithError(err).Error("tlsclient failed")
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.alpn, "alpn", nil, "ALPN protocols to offer")
	flags.StringVar(&opts.ca, "ca", "", "File containing the trust anchors")
	flags.StringVar(&opts.cert, "cert", "", "File containing the client certificate")
	flags.StringVarP(&opts.config, "config", "c", "", "YAML connection profile")
	flags.StringVar(&opts.engine, "engine", "", "TLS engine to use (stdlib or utls)")
	flags.StringVar(&opts.fingerprint, "fingerprint", "", "ClientHello fingerprint for the utls engine")
	flags.StringVar(&opts.host, "host", "", "Server host name or address")
	flags.BoolVar(&opts.insecure, "insecure", false, "Do NOT verify the server certificate")
	flags.StringVar(&opts.key, "key", "", "File containing the client private key")
	flags.StringVar(&opts.keyPassword, "key-password", "", "Password of the client private key")
	flags.BoolVar(&opts.metrics, "metrics", false, "Print metrics on the standard error when done")
	flags.BoolVar(&opts.noSNI, "no-sni", false, "Do not send the server name indication")
	flags.Uint16Var(&opts.port, "port", config.DefaultPort, "Server port")
	flags.StringVar(&opts.save, "save", "", "Save the effective profile to this file")
	flags.DurationVar(&opts.timeout, "timeout", DefaultTimeout, "Send and receive timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose log output")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, version.Print("tlsclient"))
		},
	})
	return cmd
}

// newProfile reads the profile, if any, and applies the flags that
// have been set on the command line on top of it.
func newProfile(cmd *cobra.Command, opts *options) (*config.Profile, error) {
	profile := &config.Profile{}
	if opts.config != "" {
		log.Debugf("reading profile from %s", opts.config)
		var err error
		if profile, err = config.ReadProfile(opts.config); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		profile.Host = opts.host
	}
	if flags.Changed("port") || profile.Port == 0 {
		profile.Port = opts.port
	}
	if flags.Changed("ca") {
		profile.CAFile = opts.ca
	}
	if flags.Changed("cert") {
		profile.CertFile = opts.cert
	}
	if flags.Changed("key") {
		profile.KeyFile = opts.key
	}
	if flags.Changed("key-password") {
		profile.KeyPassword = opts.keyPassword
	}
	if flags.Changed("alpn") {
		profile.ALPN = opts.alpn
	}
	if flags.Changed("no-sni") {
		profile.DisableSNI = opts.noSNI
	}
	if flags.Changed("insecure") {
		profile.InsecureSkipVerify = opts.insecure
	}
	if flags.Changed("engine") {
		profile.Engine = opts.engine
	}
	if flags.Changed("fingerprint") {
		profile.Fingerprint = opts.fingerprint
	}
	if flags.Changed("timeout") || profile.RecvTimeout == 0 {
		profile.RecvTimeout = opts.timeout
	}
	if flags.Changed("timeout") || profile.SendTimeout == 0 {
		profile.SendTimeout = opts.timeout
	}
	profile.Default()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// run connects, sends the whole stdin, and copies the reply to
// stdout until the server closes the connection or stops talking.
func run(ctx context.Context, profile *config.Profile, observer *metrics.Observer,
	stdin io.Reader, stdout io.Writer) error {
	creds, err := profile.LoadCredentials()
	if err != nil {
		return err
	}
	request, err := io.ReadAll(stdin)
	if err != nil {
		return err
	}

	txpConfig := profile.TransportConfig(log.Log)
	txpConfig.Observer = observer
	txp, err := tlstransport.Allocate(netsocket.New(log.Log), txpConfig)
	if err != nil {
		return err
	}
	defer txp.Free()

	err = txp.Connect(ctx, profile.Host, profile.Port, creds, profile.RecvTimeout, profile.SendTimeout)
	if err != nil {
		return err
	}
	if err := sendAll(ctx, txp, request); err != nil {
		return err
	}
	if err := copyReply(txp, stdout); err != nil {
		return err
	}
	return txp.Disconnect()
}

// sendAll sends buf, retrying when the transport asks us to.
func sendAll(ctx context.Context, txp *tlstransport.Transport, buf []byte) error {
	for len(buf) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := txp.Send(buf)
		if err != nil {
			return err
		}
		buf = buf[count:]
	}
	return nil
}

// copyReply copies what we receive to w. We stop when the server closes
// the connection or when a Recv yields no data within the timeout.
func copyReply(txp *tlstransport.Transport, w io.Writer) error {
	buf := make([]byte, 1<<14)
	for {
		count, err := txp.Recv(buf)
		var wrapper *tlstransport.ErrWrapper
		if errors.As(err, &wrapper) && wrapper.Failure == tlstransport.FailureEOFError {
			return nil
		}
		if err != nil {
			return err
		}
		if count <= 0 {
			return nil
		}
		if _, err := w.Write(buf[:count]); err != nil {
			return err
		}
	}
}

// writeMetrics writes the metrics in the Prometheus text format.
func writeMetrics(reg *prometheus.Registry, w io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
