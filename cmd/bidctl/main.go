package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	httpapi "github.com/forever-free1/bidindex/api/http"
	"github.com/forever-free1/bidindex/config"
	"github.com/forever-free1/bidindex/storage/session"
	"github.com/forever-free1/bidindex/watch"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flags 是命令行参数，显式给出的参数覆盖配置文件
type flags struct {
	configPath string
	backend    string
	csvPath    string
	key        string
	tableSize  int
	serve      bool
	addr       string
	logLevel   string
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("bidctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &flags{}
	fs.StringVar(&f.configPath, "config", "", "path to bidindex.yaml")
	fs.StringVar(&f.backend, "backend", "", "backend: sequence, list, hash or tree")
	fs.StringVar(&f.csvPath, "csv", "", "CSV (or .snap) file loaded by menu option 1")
	fs.StringVar(&f.key, "key", "98109", "bid id used when the prompt is left empty")
	fs.IntVar(&f.tableSize, "table-size", 0, "hash backend bucket count")
	fs.BoolVar(&f.serve, "serve", false, "run the HTTP API instead of the menu")
	fs.StringVar(&f.addr, "addr", "", "HTTP listen address")
	fs.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply 把显式给出的参数写入配置
func (f *flags) apply(cfg *config.Config) {
	if f.set["backend"] {
		cfg.Backend = f.backend
	}
	if f.set["csv"] {
		cfg.Loader.Path = f.csvPath
	}
	if f.set["table-size"] {
		cfg.Hash.TableSize = f.tableSize
	}
	if f.set["addr"] {
		cfg.Server.Addr = f.addr
	}
	if f.set["log-level"] {
		cfg.Log.Level = f.logLevel
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	f.apply(cfg)

	typ, err := cfg.IndexType()
	if err != nil {
		return err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "bidctl",
		Level:  cfg.LogLevel(),
		Output: os.Stderr,
	})

	hub := watch.NewHub()
	sess, err := session.Open(
		session.WithBackend(typ),
		session.WithTableSize(cfg.Hash.TableSize),
		session.WithBloomFilter(cfg.Bloom.ExpectedItems, cfg.Bloom.FalsePositive),
		session.WithLogger(logger),
		session.WithWatchHub(hub),
	)
	if err != nil {
		return err
	}
	defer sess.Close()

	if f.serve {
		return serve(cfg, sess, hub, logger)
	}

	c := newConsole(sess, stdin, stdout)
	c.csvPath = cfg.Loader.Path
	c.defaultKey = f.key
	c.stripChar = cfg.StripRune()
	c.loaderOpts = cfg.LoaderOptions()

	c.run(context.Background())
	return nil
}

// serve 运行 HTTP API，收到 SIGINT/SIGTERM 后优雅关闭
func serve(cfg *config.Config, sess *session.Session, hub *watch.Hub, logger hclog.Logger) error {
	srv := httpapi.NewServer(cfg.Server.Addr, sess, hub, logger, cfg.LoaderOptions()...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
