package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebfe/scard"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/gregLibert/cardsession/internal/config"
	"github.com/gregLibert/cardsession/internal/logging"
	"github.com/gregLibert/cardsession/pkg/device"
	"github.com/gregLibert/cardsession/pkg/iso7816"
	"github.com/gregLibert/cardsession/pkg/journal"
	"github.com/gregLibert/cardsession/pkg/pcsc"
	"github.com/gregLibert/cardsession/pkg/reader"
)

var (
	app        = kingpin.New("cardsession", "Watch smart-card readers and talk ISO 7816-4 to the cards inserted in them.")
	configPath = app.Flag("config", "YAML configuration file.").Short('c').ExistingFile()
	logLevel   = app.Flag("log-level", "Override log.level.").String()
	logFormat  = app.Flag("log-format", "Override log.format (auto, text, json).").Enum("auto", "text", "json")

	readersCmd = app.Command("readers", "List the connected readers and their state.")

	watchCmd = app.Command("watch", "Follow readers and cards until interrupted.")
	watchAID = watchCmd.Flag("aid", "Select this application (hex) on every inserted card.").String()

	sendCmd    = app.Command("send", "Send one command to the card in a reader and print the answer.")
	sendAPDU   = sendCmd.Arg("apdu", "Command in hex, e.g. \"00 A4 04 00 07 A0000000031010 00\".").Required().String()
	sendReader = sendCmd.Flag("reader", "Reader name (default: first reader holding a card).").Short('r').String()
	sendTrace  = sendCmd.Flag("trace", "Print every physical exchange.").Bool()

	journalCmd    = app.Command("journal", "Print the recorded exchanges of a reader.")
	journalReader = journalCmd.Arg("reader", "Reader name.").Required().String()
	journalPurge  = journalCmd.Flag("purge", "Delete the entries after printing them.").Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig()
	if err != nil {
		kingpin.Fatalf("%v", err)
	}

	switch command {
	case readersCmd.FullCommand():
		err = listReaders(cfg)
	case watchCmd.FullCommand():
		err = watch(cfg)
	case sendCmd.FullCommand():
		err = send(cfg)
	case journalCmd.FullCommand():
		err = dumpJournal(cfg)
	default:
		kingpin.FatalUsage("Unrecognized command")
	}

	if err != nil {
		log.WithError(err).Fatal(command + " failed")
	}
}

// =========================================================================
// Setup
// =========================================================================

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newManager(cfg *config.Config) (*device.Manager, func(), error) {
	opts, err := cfg.DeviceOptions(log.StandardLogger())
	if err != nil {
		return nil, nil, err
	}
	m := device.NewManager(opts...)

	if cfg.Journal.Path == "" {
		return m, func() {}, nil
	}

	j, err := journal.Open(cfg.Journal.Path, log.StandardLogger())
	if err != nil {
		return nil, nil, err
	}
	m.Subscribe(j)

	return m, func() {
		if err := j.Close(); err != nil {
			log.WithError(err).Warn("close journal")
		}
	}, nil
}

// =========================================================================
// Commands
// =========================================================================

func listReaders(cfg *config.Config) error {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return err
	}
	defer ctx.Release()

	names, err := pcsc.ListReaders(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No smart card reader found.")
		return nil
	}

	for _, name := range names {
		if cfg.Ignored(name) {
			continue
		}
		st, err := pcsc.ReadStatus(ctx, name)
		if err != nil {
			fmt.Printf("%s\t(error: %v)\n", name, err)
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", name, st.State, st.ATRHex())
	}
	return nil
}

func watch(cfg *config.Config) error {
	m, closeJournal, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	var aid []byte
	if *watchAID != "" {
		if aid, err = iso7816.DecodeHex(*watchAID); err != nil {
			return err
		}
	}

	m.Subscribe(device.ListenerFunc(func(e device.Event) {
		printEvent(e)
		if e.Kind == device.KindCardInserted && aid != nil {
			if res, err := e.Device.SelectApplication(aid); err == nil {
				fmt.Println(res.Describe())
			}
		}
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mon := pcsc.NewMonitor(m)
	mon.Ignore = cfg.Ignored
	mon.Log = log.StandardLogger()

	err = mon.Run(ctx)
	if cerr := m.Close(); cerr != nil {
		log.WithError(cerr).Warn("close sessions")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func send(cfg *config.Config) error {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return err
	}
	defer ctx.Release()

	name, err := pickReader(ctx, cfg)
	if err != nil {
		return err
	}

	r, err := pcsc.NewReader(name)
	if err != nil {
		return err
	}
	defer r.Close()

	m, closeJournal, err := newManager(cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	d := m.AddReader(r)
	st, err := pcsc.ReadStatus(ctx, name)
	if err != nil {
		return err
	}
	d.HandleStatus(st)

	if d.Card() == nil {
		if _, err = d.Connect(); err != nil {
			return err
		}
	}
	defer func() {
		if _, err := d.Disconnect(); err != nil {
			log.WithError(err).WithField("reader", name).Warn("disconnect")
		}
	}()

	cmd, err := iso7816.ParseCommand(*sendAPDU)
	if err != nil {
		return err
	}

	if *sendTrace {
		trace, err := d.Send(cmd)
		for i, tx := range trace {
			fmt.Printf("[%d] > %s\n    < %s\n", i+1, tx.Command, tx.Response.Describe())
		}
		return err
	}

	resp, err := d.Issue(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s (%s)\n", hex.EncodeToString(resp.Data), resp.StatusCode(), resp.Meaning())
	return nil
}

func dumpJournal(cfg *config.Config) error {
	if cfg.Journal.Path == "" {
		return fmt.Errorf("no journal configured (journal.path)")
	}

	j, err := journal.Open(cfg.Journal.Path, log.StandardLogger())
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Entries(*journalReader)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%6d %s atr=%s > %s < %s (%s)\n",
			e.Seq, e.Time.Format("2006-01-02 15:04:05"), e.ATR, e.Command, e.Response, e.Meaning)
	}

	if *journalPurge {
		n, err := j.Purge(*journalReader)
		if err != nil {
			return err
		}
		fmt.Printf("%d entries purged\n", n)
	}
	return nil
}

// =========================================================================
// Helpers
// =========================================================================

// pickReader returns the --reader flag, or the first reader holding a card.
func pickReader(ctx *scard.Context, cfg *config.Config) (string, error) {
	if *sendReader != "" {
		return *sendReader, nil
	}

	names, err := pcsc.ListReaders(ctx)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if cfg.Ignored(name) {
			continue
		}
		st, err := pcsc.ReadStatus(ctx, name)
		if err == nil && st.State.Has(reader.StatePresent) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no card found in %d reader(s)", len(names))
}

func printEvent(e device.Event) {
	entry := log.WithFields(log.Fields{"event": string(e.Kind), "reader": e.ReaderName()})

	switch e.Kind {
	case device.KindStatus, device.KindCardLeft, device.KindCardDetected:
		entry.WithFields(log.Fields{"state": e.Status.State.String(), "atr": e.Status.ATRHex()}).Info()
	case device.KindCardInserted:
		entry.WithFields(log.Fields{"card": e.Card.String(), "protocol": e.Protocol.String()}).Info()
	case device.KindCardRemoved:
		entry.WithField("card", e.Card.String()).Info()
	case device.KindCommandIssued:
		entry.WithField("command", e.Command.String()).Debug()
	case device.KindResponseReceived:
		entry.WithFields(log.Fields{"response": e.Response.String(), "meaning": e.Response.Meaning()}).Debug()
	case device.KindApplicationSelected:
		entry.WithField("aid", hex.EncodeToString(e.Selection.AID)).Info()
	case device.KindDeviceActivated, device.KindDeviceDeactivated:
		entry.WithField("devices", len(e.Devices)).Info()
	case device.KindError:
		entry.WithError(e.Err).Warn()
	}
}
