// Command astarte-e2e-shell drives one device through the line-oriented
// E2E verification grammar of spec.md §4.7, against an in-memory broker
// and pairing backend suitable for CI. Commands are read from stdin and
// results written to stdout, one "OK" or "ERROR: <message>" line per
// command; the shell is held back from reading any command until the
// device reports Connected.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucaato/astarte-device-sdk-go/astarteconfig"
	"github.com/lucaato/astarte-device-sdk-go/astartedevice"
	"github.com/lucaato/astarte-device-sdk-go/astarteiface"
	"github.com/lucaato/astarte-device-sdk-go/astartelog"
	"github.com/lucaato/astarte-device-sdk-go/astartepairing/devpairing"
	"github.com/lucaato/astarte-device-sdk-go/astartetransport/membroker"
	"github.com/lucaato/astarte-device-sdk-go/e2e/idata"
	"github.com/lucaato/astarte-device-sdk-go/e2e/shell"
	"github.com/lucaato/astarte-device-sdk-go/tlsstore"
)

func main() {
	var (
		deviceID       = flag.String("device-id", "dev1", "device id encoded in the device's base topic, also the astarteconfig lookup key")
		ifacesPath     = flag.String("interfaces", "", "path to a JSON file holding the device's interface descriptors")
		connectTimeout = flag.Duration("connect-timeout", 5*time.Second, "time budget to reach Connected before the shell starts reading commands")
	)
	flag.Parse()

	cfg, err := astarteconfig.Load(*deviceID)
	if err != nil {
		println("Error: loading config:", err.Error())
		os.Exit(1)
	}

	if *ifacesPath == "" {
		println("Error: -interfaces is required")
		os.Exit(1)
	}
	raw, err := os.ReadFile(*ifacesPath)
	if err != nil {
		println("Error: reading interfaces:", err.Error())
		os.Exit(1)
	}
	descs, err := astarteiface.LoadInterfaces(raw)
	if err != nil {
		println("Error: parsing interfaces:", err.Error())
		os.Exit(1)
	}
	ins := astarteiface.New()
	for _, d := range descs {
		if err := ins.Add(d); err != nil {
			println("Error: registering interface", d.Name, ":", err.Error())
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := membroker.New()
	pairing := devpairing.New(cfg.Realm, *deviceID, cfg.Hostname, cfg.Port, cfg.InsecureNoTLS)
	store := idata.NewStore()
	sh := shell.NewShell(store)

	device := astartedevice.New(
		astartedevice.Config{
			TLSTag:                 cfg.TLSTag,
			HandshakeBackoffInitMs: cfg.HandshakeBackoffInitMs,
			HandshakeBackoffMaxMs:  cfg.HandshakeBackoffMaxMs,
			Logger:                 astartelog.Default,
		},
		ins, broker, pairing, tlsstore.NewMemStore(), nil, sh.Callbacks(),
	)
	sh.Attach(device)

	println("Info: connecting …")
	if err := device.Connect(ctx); err != nil {
		println("Error: connect:", err.Error())
		os.Exit(1)
	}

	deadline := time.Now().Add(*connectTimeout)
	for device.State() != astartedevice.Connected {
		if time.Now().After(deadline) {
			println("Error: did not reach Connected within", connectTimeout.String())
			os.Exit(1)
		}
		pollCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		_ = device.Poll(pollCtx)
		cancel()
	}
	println("Info: connected, base topic", device.BaseTopic())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if sh.Stopped() {
				return
			}
			pollCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
			_ = device.Poll(pollCtx)
			cancel()
		}
	}()

	runErr := sh.Run(os.Stdin, os.Stdout)
	stop()
	<-done

	if runErr != nil {
		println("Error: reading commands:", runErr.Error())
		os.Exit(1)
	}
	if failures := sh.Failures(); len(failures) > 0 {
		for _, f := range failures {
			println("Failure:", f)
		}
		os.Exit(1)
	}
	if pending := sh.Pending(); len(pending) > 0 {
		for iface, n := range pending {
			println("Pending:", iface, n)
		}
		os.Exit(1)
	}
	os.Exit(0)
}
