package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/kamstrup/config"
	"github.com/temoto/kamstrup/hardware/kmp"
	"github.com/temoto/kamstrup/helpers/cli"
	"github.com/temoto/kamstrup/log2"
)

const usage = `syntax: commands separated by whitespace
(main)
- @XXXX    read register XXXX (hex), show value
- r=label  read register by label, underscore for space: r=voltage_p1
- all      read every register from registry
- list     show registry
- stat     show transport counters
- sN       pause N milliseconds

(meta)
- log=yes  enable debug logging
- log=no   disable debug logging
- loop=N   repeat N times all commands on this line
`

const defaultDevice = "/dev/ttyUSB0"

var log = log2.NewStderr(log2.LInfo)

type action struct {
	name string
	f    func() error
}

type session struct {
	client   *kmp.Client
	registry *kmp.Registry
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := cmdline.String("config", "", "HCL config path")
	devicePath := cmdline.String("device", "", "uart device, default "+defaultDevice)
	driver := cmdline.String("driver", "", "file|serial|mock")
	baud := cmdline.Int("baud", 0, "uart baud rate")
	_ = cmdline.Parse(os.Args[1:])

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	} else {
		log.SetFlags(log2.LServiceFlags)
	}

	cfg := new(config.Config)
	if *configPath != "" {
		fs, err := config.NewOsFullReader(".")
		if err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
		cfg = config.MustReadConfig(log, fs, *configPath)
	}
	if *devicePath != "" {
		cfg.Uart.Device = *devicePath
	}
	if cfg.Uart.Device == "" {
		cfg.Uart.Device = defaultDevice
	}
	if *driver != "" {
		cfg.Uart.Driver = *driver
	}
	if *baud != 0 {
		cfg.Uart.Baud = *baud
	}

	registry, err := cfg.Registry()
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	uarter, err := kmp.NewUarter(cfg.Uart.Driver)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	if err = uarter.Open(cfg.Uart.Device, cfg.Uart.Baud); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	defer uarter.Close()

	kmpLog := log.Clone(log2.LInfo)
	if cfg.Kmp.LogDebug {
		kmpLog.SetLevel(log2.LDebug)
	}
	s := &session{
		client: kmp.NewClient(uarter, kmp.Options{
			Timeout: cfg.Timeout(),
			Retry:   cfg.RetryPolicy(),
			Log:     kmpLog,
		}),
		registry: registry,
	}
	log.Infof("uart driver=%s device=%s timeout=%v", cfg.Uart.Driver, cfg.Uart.Device, cfg.Timeout())

	cli.MainLoop("kmp-cli", s.executor(), s.completer())
}

func (s *session) completer() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "all", Description: "read all registers"},
		{Text: "list", Description: "show registry"},
		{Text: "stat", Description: "transport counters"},
		{Text: "sN", Description: "pause for N ms"},
		{Text: "loop=N", Description: "repeat line N times"},
		{Text: "log=yes", Description: "enable debug logging"},
		{Text: "log=no", Description: "disable debug logging"},
		{Text: "help", Description: "show syntax"},
	}
	for _, r := range s.registry.List() {
		suggests = append(suggests, prompt.Suggest{
			Text:        fmt.Sprintf("@%04x", uint16(r.ID)),
			Description: r.Label,
		})
		suggests = append(suggests, prompt.Suggest{
			Text:        "r=" + strings.Replace(r.Label, " ", "_", -1),
			Description: r.ID.String(),
		})
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func (s *session) executor() func(string) {
	return func(line string) {
		actions, loop, err := s.parseLine(line)
		if err != nil {
			log.Error(errors.ErrorStack(err))
			return
		}
		for i := 1; i <= loop; i++ {
			for _, a := range actions {
				if err := a.f(); err != nil {
					log.Errorf("%s: %s", a.name, errors.ErrorStack(err))
				}
			}
		}
	}
}

func (s *session) parseLine(line string) ([]action, int, error) {
	loop := 1
	actions := make([]action, 0, 8)
	for _, word := range strings.Fields(line) {
		switch {
		case word == "help":
			actions = append(actions, action{word, func() error { log.Info(usage); return nil }})

		case word == "list":
			actions = append(actions, action{word, s.list})

		case word == "all":
			actions = append(actions, action{word, s.readAll})

		case word == "stat":
			actions = append(actions, action{word, s.showStat})

		case word == "log=yes":
			actions = append(actions, action{word, func() error { s.client.Log.SetLevel(log2.LDebug); return nil }})

		case word == "log=no":
			actions = append(actions, action{word, func() error { s.client.Log.SetLevel(log2.LInfo); return nil }})

		case strings.HasPrefix(word, "loop="):
			n, err := strconv.Atoi(word[5:])
			if err != nil || n < 1 {
				return nil, 0, errors.NotValidf("word=%s", word)
			}
			loop = n

		case strings.HasPrefix(word, "r="):
			label := strings.Replace(word[2:], "_", " ", -1)
			r, ok := s.registry.FindLabel(label)
			if !ok {
				return nil, 0, errors.NotFoundf("register label=%q", label)
			}
			actions = append(actions, action{word, func() error { return s.read(r.ID) }})

		case strings.HasPrefix(word, "@"):
			id, err := kmp.ParseRegisterID("0x" + strings.TrimPrefix(word[1:], "0x"))
			if err != nil {
				return nil, 0, errors.Annotatef(err, "word=%s", word)
			}
			actions = append(actions, action{word, func() error { return s.read(id) }})

		case strings.HasPrefix(word, "s"):
			ms, err := strconv.Atoi(word[1:])
			if err != nil {
				return nil, 0, errors.NotValidf("word=%s", word)
			}
			d := time.Duration(ms) * time.Millisecond
			actions = append(actions, action{word, func() error { time.Sleep(d); return nil }})

		default:
			return nil, 0, errors.NotValidf("word=%s (try help)", word)
		}
	}
	return actions, loop, nil
}

func (s *session) read(id kmp.RegisterID) error {
	r, err := s.client.ReadRegister(id)
	if err != nil {
		return err
	}
	unit := ""
	if reg, ok := s.registry.Get(id); ok {
		unit = reg.Unit
	}
	log.Infof("< %s %s = %g %s", id, s.registry.Label(id), r.Value, unit)
	return nil
}

func (s *session) readAll() error {
	errs := 0
	for _, r := range s.registry.List() {
		if err := s.read(r.ID); err != nil {
			errs++
			log.Errorf("%s: %v", r, err)
		}
	}
	if errs != 0 {
		return errors.Errorf("failed registers=%d/%d", errs, s.registry.Len())
	}
	return nil
}

func (s *session) list() error {
	for _, id := range s.registry.SortedIDs() {
		r, _ := s.registry.Get(id)
		log.Infof("%s", r)
	}
	return nil
}

func (s *session) showStat() error {
	st := s.client.Stat()
	log.Infof("requests=%d replies=%d timeouts=%d checksum=%d protocol=%d escape=%d",
		st.Requests, st.Replies, st.Timeouts, st.ChecksumErrors, st.ProtocolErrors, st.EscapeAnomalies)
	return nil
}
