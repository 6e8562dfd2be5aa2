package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/SethCurry/stocktag/internal/csvexport"
	"github.com/SethCurry/stocktag/internal/embed"
	"github.com/SethCurry/stocktag/internal/inspect"
	"github.com/SethCurry/stocktag/internal/stocktag"
	"github.com/SethCurry/stocktag/internal/watch"
	"github.com/SethCurry/stocktag/pkg/metagen"
	"github.com/SethCurry/stocktag/pkg/stock"
)

const defaultResultsFile = "stocktag-results.json"

// GenerationFlags override the generation settings from the config file.
type GenerationFlags struct {
	Provider string `optional:"" help:"The AI provider to use: gemini, openai, openrouter or claude."`
	Model    string `optional:"" help:"The model to request from the provider."`
	Platform string `optional:"" help:"The target platform: general, adobestock, shutterstock or freepik."`
	Mode     string `optional:"" help:"What to generate: metadata or image-to-prompt."`
	Keywords string `optional:"" help:"The keyword range, e.g. 10-50."`
}

func (g GenerationFlags) apply(config *stocktag.Config) {
	if g.Provider != "" {
		config.Provider = metagen.ProviderName(g.Provider)
		config.APIKey = ""
		config.ApplyEnv()
	}

	if g.Model != "" {
		config.Model = g.Model
	}

	if g.Platform != "" {
		config.Platform = g.Platform
	}

	if g.Mode != "" {
		config.Mode = g.Mode
	}

	if g.Keywords != "" {
		config.Keywords = g.Keywords
	}
}

func newClient(ctx context.Context, c *Context) (*metagen.Client, error) {
	provider, err := metagen.NewProvider(ctx, c.Config.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return metagen.NewClient(provider,
		metagen.WithLogger(c.Logger),
		metagen.WithPacer(metagen.NewPacer(c.Config.Interval())),
		metagen.WithTimeout(c.Config.Timeout())), nil
}

// runPostEmbedCommand invokes the configured command with the written file.
// A failing command is logged and never fails the run.
func runPostEmbedCommand(c *Context, path string) {
	if c.Config.PostEmbedCommand == "" {
		return
	}

	cmd := exec.Command(c.Config.PostEmbedCommand, path)

	err := cmd.Run()
	if err != nil {
		c.Logger.Error(
			"post-embed command failed",
			zap.String("command", fmt.Sprintf("%s %q", c.Config.PostEmbedCommand, path)),
			zap.Error(err))
	}
}

type AnalyzeCommand struct {
	GenerationFlags `embed:""`

	Results string   `optional:"" default:"${results}" type:"path" help:"The results file to write.  Existing records are kept and complete ones are not analyzed again."`
	Files   []string `arg:"" type:"existingfile" help:"The images and videos to analyze."`
}

func (a AnalyzeCommand) Run(c *Context) error {
	a.apply(&c.Config)

	opts, err := c.Config.Options()
	if err != nil {
		return fmt.Errorf("invalid generation settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := newClient(ctx, c)
	if err != nil {
		return err
	}

	records, err := loadOrCreateRecords(a.Results)
	if err != nil {
		return err
	}

	files, err := stock.LoadSourceFiles(ctx, a.Files)
	if err != nil {
		return fmt.Errorf("failed to load files: %w", err)
	}

	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.Path] = true
	}

	for i, f := range files {
		if err := metagen.ValidateFile(f, opts.MaxFileSize); err != nil {
			c.Logger.Warn("skipping file", zap.String("file", a.Files[i]), zap.Error(err))
			continue
		}

		path, err := filepath.Abs(a.Files[i])
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", a.Files[i], err)
		}

		if !known[path] {
			records = append(records, stock.NewRecord(path, f))
			known[path] = true
		}
	}

	summary := client.RunBatch(ctx, records, opts, func(r *stock.Record) {
		c.Logger.Info("file status changed", zap.String("file", r.Name), zap.String("status", string(r.Status)))

		if r.Status == stock.StatusProcessing {
			return
		}

		if err := stock.WriteRecords(a.Results, records); err != nil {
			c.Logger.Error("failed to save results", zap.String("path", a.Results), zap.Error(err))
		}
	})

	c.Logger.Info("analysis finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.String("results", a.Results))

	return stock.WriteRecords(a.Results, records)
}

func loadOrCreateRecords(path string) ([]*stock.Record, error) {
	records, err := stock.ReadRecords(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	return records, err
}

type EmbedCommand struct {
	Results string `optional:"" default:"${results}" type:"existingfile" help:"The results file to embed metadata from."`
	Zip     bool   `optional:"" help:"Always write a ZIP archive, even for a single file."`
}

func (e EmbedCommand) Run(c *Context) error {
	records, err := stock.ReadRecords(e.Results)
	if err != nil {
		return err
	}

	embedder := embed.New(embed.WithLogger(c.Logger))

	var exportable []*stock.Record

	for _, r := range records {
		if r.Exportable() {
			exportable = append(exportable, r)
		}
	}

	switch {
	case len(exportable) == 0:
		return errors.New("no complete records to embed")
	case len(exportable) == 1 && !e.Zip:
		return embedOne(c, embedder, exportable[0])
	}

	name := fmt.Sprintf("stock_metadata_%s.zip", time.Now().Format("2006-01-02"))

	fd, err := embed.CreateUnique(c.Config.OutputDirectory, name)
	if err != nil {
		return err
	}

	report, err := embedder.EmbedBatch(records, fd)
	if err != nil {
		fd.Close()
		return err
	}

	err = fd.Close()
	if err != nil {
		return fmt.Errorf("failed to close archive %q: %w", fd.Name(), err)
	}

	c.Logger.Info("wrote archive",
		zap.String("path", fd.Name()),
		zap.Int("embedded", report.Embedded),
		zap.Int("not_embedded", report.NotEmbedded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))

	runPostEmbedCommand(c, fd.Name())

	return nil
}

func embedOne(c *Context, embedder *embed.Embedder, record *stock.Record) error {
	file, err := record.Source()
	if err != nil {
		return err
	}

	out, err := embedder.Embed(file, record.Result)
	if err != nil {
		return fmt.Errorf("failed to embed %s: %w", record.Name, err)
	}

	if out.Warning != embed.WarningNone {
		c.Logger.Warn(out.Warning.String(), zap.String("file", record.Name), zap.Error(out.Cause))
	}

	path, err := embed.WriteSingle(c.Config.OutputDirectory, out)
	if err != nil {
		return err
	}

	c.Logger.Info("wrote file", zap.String("path", path), zap.Bool("metadata_embedded", out.MetadataEmbedded))

	runPostEmbedCommand(c, path)

	return nil
}

type CSVCommand struct {
	Results  string `optional:"" default:"${results}" type:"existingfile" help:"The results file to export."`
	Platform string `optional:"" help:"The platform whose CSV layout to use.  Defaults to the configured platform."`
}

func (cc CSVCommand) Run(c *Context) error {
	if cc.Platform != "" {
		c.Config.Platform = cc.Platform
	}

	platform, err := stock.ParsePlatform(c.Config.Platform)
	if err != nil {
		return err
	}

	records, err := stock.ReadRecords(cc.Results)
	if err != nil {
		return err
	}

	var images, videos []*stock.Record

	for _, r := range records {
		if !r.Exportable() {
			continue
		}

		if r.IsVideo() {
			videos = append(videos, r)
		} else {
			images = append(images, r)
		}
	}

	if len(images) == 0 && len(videos) == 0 {
		return errors.New("no complete records to export")
	}

	now := time.Now()

	if len(images) > 0 {
		err = writeCSV(c, csvexport.ExportFilename(platform, false, now), csvexport.Format(images, platform))
		if err != nil {
			return err
		}
	}

	if len(videos) > 0 {
		err = writeCSV(c, csvexport.ExportFilename(platform, true, now), csvexport.FormatVideo(videos))
		if err != nil {
			return err
		}
	}

	return nil
}

func writeCSV(c *Context, name, contents string) error {
	path, err := embed.WriteUnique(c.Config.OutputDirectory, name, []byte(contents))
	if err != nil {
		return err
	}

	c.Logger.Info("wrote CSV", zap.String("path", path))

	return nil
}

type InspectCommand struct {
	Files []string `arg:"" type:"existingfile" help:"The files to inspect."`
}

func (i InspectCommand) Run(c *Context) error {
	for _, path := range i.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}

		report, err := inspect.File(filepath.Base(path), data)
		if err != nil {
			return err
		}

		err = report.Write(os.Stdout)
		if err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}
	}

	return nil
}

type WatchCommand struct {
	GenerationFlags `embed:""`

	Dir string `arg:"" type:"existingdir" help:"The directory to watch for new images."`
}

func (w WatchCommand) Run(c *Context) error {
	w.apply(&c.Config)

	opts, err := c.Config.Options()
	if err != nil {
		return fmt.Errorf("invalid generation settings: %w", err)
	}

	same, err := sameDir(w.Dir, c.Config.OutputDirectory)
	if err != nil {
		return err
	}

	if same {
		return errors.New("the watched directory must differ from the output directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := newClient(ctx, c)
	if err != nil {
		return err
	}

	embedder := embed.New(embed.WithLogger(c.Logger))

	watcher, err := watch.New(w.Dir, func(ctx context.Context, path string) error {
		file, err := stock.ReadSourceFile(path)
		if err != nil {
			return err
		}

		if err := metagen.ValidateFile(file, opts.MaxFileSize); err != nil {
			return err
		}

		record := stock.NewRecord(path, file)

		result, err := client.Analyze(ctx, file, opts)
		if err != nil {
			return err
		}

		record.Status = stock.StatusComplete
		record.Result = result

		return embedOne(c, embedder, record)
	}, watch.WithLogger(c.Logger))
	if err != nil {
		return err
	}

	return watcher.Run(ctx)
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %q: %w", a, err)
	}

	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %q: %w", b, err)
	}

	return absA == absB, nil
}

type CLI struct {
	Config string `optional:"" type:"path" help:"The configuration file to use.  Defaults to ~/.config/stocktag/config.toml or config.json."`

	Analyze AnalyzeCommand `cmd:"" help:"Generate stock metadata for images and videos with an AI model."`
	Embed   EmbedCommand   `cmd:"" help:"Write JPEGs with the metadata embedded, as a single file or a ZIP archive."`
	CSV     CSVCommand     `cmd:"" name:"csv" help:"Export the metadata as a platform CSV file."`
	Inspect InspectCommand `cmd:"" help:"Print the Exif, IPTC and XMP metadata of files."`
	Watch   WatchCommand   `cmd:"" help:"Analyze and embed every image dropped into a directory."`
}

type Context struct {
	Logger *zap.Logger
	Config stocktag.Config
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}

	cli := &CLI{}

	ctx := kong.Parse(cli,
		kong.Name("stocktag"),
		kong.Description("Generate, embed and export stock photo metadata."),
		kong.Vars{"results": defaultResultsFile})

	config, err := stocktag.LoadConfig(cli.Config)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	err = ctx.Run(&Context{
		Logger: logger,
		Config: *config,
	})
	if err != nil {
		logger.Fatal("failed to execute command", zap.Error(err))
	}
}
