// Command bridge hosts one side of a radiolink bridge: it attaches a local
// serial port to a half-duplex radio and runs the protocol engine between
// them until interrupted, modeled on the teacher's examples/simple
// sender/receiver programs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	charm "github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jlkm/radiolink"
)

// bridgeConfig is the on-disk/flag-level configuration for one bridge
// endpoint.
type bridgeConfig struct {
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	Channel    byte   `yaml:"channel"`
	RxAddrHex  string `yaml:"rx_addr"`
	CEPin      int    `yaml:"ce_pin"`
	QueueSize  int    `yaml:"queue_size"`
}

func defaultBridgeConfig() bridgeConfig {
	return bridgeConfig{
		SerialPort: "/dev/ttyUSB0",
		BaudRate:   115200,
		Channel:    76,
		RxAddrHex:  "e7e7e7e7e7",
		CEPin:      25,
		QueueSize:  1024,
	}
}

func loadConfigFile(path string) (bridgeConfig, error) {
	cfg := defaultBridgeConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func parseRxAddr(hexStr string) ([5]byte, error) {
	var addr [5]byte
	if len(hexStr) != 10 {
		return addr, fmt.Errorf("rx_addr must be 10 hex characters, got %q", hexStr)
	}
	for i := 0; i < 5; i++ {
		var b byte
		if _, err := fmt.Sscanf(hexStr[i*2:i*2+2], "%02x", &b); err != nil {
			return addr, fmt.Errorf("rx_addr: %w", err)
		}
		addr[i] = b
	}
	return addr, nil
}

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to a YAML bridge config file")
		serialPort = pflag.String("serial", "", "serial port device (overrides config)")
		loopback   = pflag.Bool("loopback", false, "run both bridge ends in-process against in-memory loopback drivers, for demos without hardware")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	logger := charm.Default()
	if *verbose {
		logger.SetLevel(charm.DebugLevel)
	}
	radiolink.SetLogger(&cmdLogger{l: logger})

	if *loopback {
		runLoopbackDemo(logger)
		return
	}

	cfg, err := loadConfigFile(*configPath)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}
	if *serialPort != "" {
		cfg.SerialPort = *serialPort
	}

	rxAddr, err := parseRxAddr(cfg.RxAddrHex)
	if err != nil {
		logger.Fatal("bad rx_addr", "err", err)
	}

	uart, err := radiolink.OpenSerialUART(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		logger.Fatal("opening serial port", "err", err)
	}
	defer uart.Close()

	radio, err := radiolink.NewPeriphRadio(radiolink.PeriphRadioConfig{
		Channel: cfg.Channel,
		RxAddr:  rxAddr,
		CEPin:   cfg.CEPin,
	})
	if err != nil {
		logger.Fatal("opening radio", "err", err)
	}
	defer radio.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("bridge starting", "serial", cfg.SerialPort, "channel", cfg.Channel)
	engineCfg := radiolink.DefaultConfig()
	engineCfg.QueueSize = cfg.QueueSize
	runBridge(ctx, radio, uart, engineCfg, newTickSource())
}

// cmdLogger adapts a charm log.Logger to radiolink.Logger, the same shape as
// the library's own logger-std.go but configured for the CLI's verbosity
// flag instead of the package default.
type cmdLogger struct{ l *charm.Logger }

func (c *cmdLogger) Debug(msg string) { c.l.Debug(msg) }
func (c *cmdLogger) Info(msg string)  { c.l.Info(msg) }
func (c *cmdLogger) Warn(msg string)  { c.l.Warn(msg) }
func (c *cmdLogger) Error(msg string) { c.l.Error(msg) }

// runBridge wires a RadioDriver and UARTDriver into an Engine and its two
// adapter shims, then event-loops until ctx is cancelled.
func runBridge(ctx context.Context, radio radiolink.RadioDriver, uart radiolink.UARTDriver, cfg radiolink.Config, tick radiolink.TickSource) {
	radioRxQ := radiolink.NewFrameQueue(8)
	radioTxQ := radiolink.NewFrameQueue(8)
	uartRxQ := radiolink.NewQueue(cfg.QueueSize)
	uartTxQ := radiolink.NewQueue(cfg.QueueSize)

	engine := radiolink.NewEngine(cfg, radioRxQ, radioTxQ, uartRxQ, uartTxQ)
	radioAdapter := radiolink.NewRadioAdapter(radio, engine, tick)
	uartAdapter := radiolink.NewUARTAdapter(uart, engine, tick)

	radioAdapter.Start()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-radio.Events():
			radioAdapter.HandleEvent(ev)
			radioAdapter.PumpTx()
		case <-uart.RxReady():
			uartAdapter.HandleRx()
		case <-uart.TxReady():
			uartAdapter.HandleTx()
		case <-time.After(time.Millisecond):
			radioAdapter.Tick(tick())
			uartAdapter.Tick(tick())
		}
	}
}

// runLoopbackDemo runs two complete bridge ends in-process against
// in-memory loopback drivers, moving bytes written by the host attached to
// A's UART out to the host attached to B's UART, for trying the protocol
// with no hardware attached.
func runLoopbackDemo(logger *charm.Logger) {
	_, radioA, radioB := radiolink.NewLoopbackRadioPair(radiolink.MaxData + 4)
	// Each bridge end drives one end of its own UART pair; the demo plays
	// the attached host on the other end.
	hostA, uartA := radiolink.NewLoopbackUARTPair()
	hostB, uartB := radiolink.NewLoopbackUARTPair()

	tick := newTickSource()

	ctxA, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelA()
	defer cancelB()

	demoCfg := radiolink.DefaultConfig()
	demoCfg.QueueSize = 256
	go runBridge(ctxA, radioA, uartA, demoCfg, tick)
	go runBridge(ctxB, radioB, uartB, demoCfg, tick)

	logger.Info("loopback demo running, sending a test message through side A")
	for _, b := range []byte("hello over radiolink\n") {
		hostA.WriteByte(b)
	}

	time.Sleep(500 * time.Millisecond)

	var out []byte
	for {
		b := hostB.ReadByte()
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	logger.Info("received on side B", "data", string(out))
}

func newTickSource() radiolink.TickSource {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}
