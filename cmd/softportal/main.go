// Command softportal runs and manages emulated toy-to-life portals.
//
// Usage:
//
//	softportal catalog [filter]
//	softportal create -n <number> [-config c.yaml] <path>
//	softportal inspect <path>
//	softportal descriptors [-config c.yaml] [-family f]
//	softportal replay -config c.yaml <script>
//	softportal serve -config c.yaml
//	softportal library -config c.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ardnew/softportal/device/emulated/infinity"
	"github.com/ardnew/softportal/internal/config"
	"github.com/ardnew/softportal/internal/library"
	"github.com/ardnew/softportal/internal/manage"
	"github.com/ardnew/softportal/internal/portal"
	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

const usage = `usage: softportal <command> [arguments]

commands:
  catalog [filter]                      list catalog figures
  create -n <number> [-config c] <path> write a new figure file
  inspect <path>                        decode a figure file
  descriptors [-config c] [-family f]   enumerate the emulated device
  replay -config c <script>             run a transfer script
  serve -config c                       run the device and its management endpoint
  library -config c                     list created figure files
`

// errUsage reports a malformed command line.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "catalog":
		err = runCatalog(args[1:], stdout)
	case "create":
		err = runCreate(ctx, args[1:], stdout, stderr)
	case "inspect":
		err = runInspect(args[1:], stdout)
	case "descriptors":
		err = runDescriptors(ctx, args[1:], stdout, stderr)
	case "replay":
		err = runReplay(ctx, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "library":
		err = runLibrary(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintln(stderr, "softportal:", err)
		return 1
	}
}

// loadConfig reads path and applies its logging settings.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.ApplyLogging()
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runCatalog(args []string, stdout io.Writer) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: catalog [filter]", errUsage)
	}
	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tCATEGORY\tNAME")
	for _, e := range infinity.Search(filter) {
		fmt.Fprintf(tw, "%#04x\t%s\t%s\n", e.Number, e.Category, e.Name)
	}
	return tw.Flush()
}

func runCreate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("create", stderr)
	numberFlag := fs.String("n", "", "catalog number (decimal or 0x hex)")
	configPath := fs.String("config", "", "configuration file (records the figure in its library)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *numberFlag == "" || fs.NArg() != 1 {
		return fmt.Errorf("%w: create -n <number> [-config c.yaml] <path>", errUsage)
	}
	n, err := strconv.ParseUint(*numberFlag, 0, 16)
	if err != nil {
		return fmt.Errorf("%w: number %q: %v", errUsage, *numberFlag, err)
	}
	number := uint16(n)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	path := figurePath(fs.Arg(0), number)

	if cfg.Library.Path != "" {
		dev, err := portal.New(config.Config{
			Family:  config.FamilyInfinity,
			Log:     cfg.Log,
			Library: cfg.Library,
		})
		if err != nil {
			return err
		}
		defer dev.Close()
		e, err := dev.Create(ctx, path, number)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %s (%s)\n", path, e.Name)
		return nil
	}

	e, err := infinity.CreateFigure(path, number)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created %s (%s)\n", path, e.Name)
	return nil
}

// figurePath names the file inside path when path is a directory.
func figurePath(path string, number uint16) string {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return path
	}
	name, ok := infinity.FindByNumber(number)
	if !ok {
		name = fmt.Sprintf("Unknown(%d)", number)
	}
	return filepath.Join(path, name+".bin")
}

func runInspect(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: inspect <path>", errUsage)
	}
	f, data, err := storage.OpenFigure(args[0], infinity.FigureSize)
	if err != nil {
		return err
	}
	storage.Close(f)

	info, err := infinity.InspectFigure(data)
	fmt.Fprintf(stdout, "uid:      %x\n", info.UID)
	fmt.Fprintf(stdout, "category: %s\n", info.Category)
	fmt.Fprintf(stdout, "number:   %#04x\n", info.Number)
	fmt.Fprintf(stdout, "stamp:    %x\n", info.Stamp)
	fmt.Fprintf(stdout, "crc:      %#08x\n", info.CRC)
	if info.Name != "" {
		fmt.Fprintf(stdout, "name:     %s\n", info.Name)
	}
	return err
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.Manage.Listen == "" {
		return fmt.Errorf("%w: serve needs manage.listen in the configuration", errUsage)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev, err := portal.New(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()
	if err := dev.Start(ctx); err != nil {
		return err
	}

	srv, err := manage.NewServer(dev)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.Manage.Listen,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()
	pkg.LogInfo(pkg.ComponentManage, "listening", "addr", cfg.Manage.Listen, "family", cfg.Family)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runLibrary(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("library", stderr)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.Library.Path == "" {
		return fmt.Errorf("%w: library needs library.path in the configuration", errUsage)
	}

	lib, err := library.Open(cfg.Library.Path)
	if err != nil {
		return err
	}
	defer lib.Close()
	entries, err := lib.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tNUMBER\tNAME\tUID\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%#04x\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Number, e.Name, e.UID, e.Path)
	}
	return tw.Flush()
}
