package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/docstore/internal/cli"
	"github.com/hyperjump/docstore/internal/extract"
	"github.com/hyperjump/docstore/internal/indexer"
	"github.com/hyperjump/docstore/internal/models"
)

// clientFlags registers the flags shared by every client command.
type clientFlags struct {
	config *string
	server *string
	output *string
}

func newClientFlags(fs *flag.FlagSet, args []string) *clientFlags {
	configPath := configPathFromArgs(args, defaultConfigPath)
	return &clientFlags{
		config: fs.String("config", defaultConfigPath, "config file path (used for the default server URL)"),
		server: fs.String("server", serverURLFromConfig(configPath), "server URL"),
		output: fs.String("output", "text", "output format: text, compact, or json"),
	}
}

func (f *clientFlags) client() *cli.Client {
	return cli.NewClient(*f.server, nil)
}

func (f *clientFlags) format() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func fail(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, err)
	os.Exit(1)
}

// printRetrieveUsage prints retrieve subcommand usage.
func printRetrieveUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: docstore retrieve [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Only text and table documents are ranked. A --filter that pins content_type
to other types is rejected.

Examples:
  docstore retrieve machine learning
  docstore retrieve "machine learning"                  # same as above
  docstore retrieve --top-k 3 --scale=false revenue      # raw BM25 scores
  docstore retrieve --filter '{"lang": "en"}' invoice
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseFilter decodes a JSON filter expression. Blank input means no filter.
func parseFilter(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var filters map[string]any
	if err := dec.Decode(&filters); err != nil {
		return nil, fmt.Errorf("invalid filter JSON: %w", err)
	}
	return filters, nil
}

func runRetrieve() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	topK := fs.Int("top-k", 0, "number of results (0 = server default)")
	filterJSON := fs.String("filter", "", "metadata filter as JSON")
	scale := fs.Bool("scale", true, "scale scores into (0,1)")
	fs.Usage = func() { printRetrieveUsage(fs) }
	_ = fs.Parse(args)

	query := buildQuery(fs.Args())
	if query == "" {
		printRetrieveUsage(fs)
		os.Exit(1)
	}
	format := cf.format()
	filters, err := parseFilter(*filterJSON)
	if err != nil {
		fail("Retrieve", err)
	}

	ctx, cancel := requestContext()
	defer cancel()
	response, err := cf.client().Retrieve(ctx, &models.RetrievalQuery{
		Query:      query,
		Filters:    filters,
		TopK:       *topK,
		ScaleScore: scale,
	})
	if err != nil {
		fail("Retrieve", err)
	}
	if err := cli.WriteRetrievalResults(os.Stdout, response, format); err != nil {
		fail("Output", err)
	}
}

func runFilter() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	_ = fs.Parse(args)

	format := cf.format()
	filters, err := parseFilter(strings.Join(fs.Args(), " "))
	if err != nil {
		fail("Filter", err)
	}
	ctx, cancel := requestContext()
	defer cancel()
	response, err := cf.client().Filter(ctx, filters)
	if err != nil {
		fail("Filter", err)
	}
	if err := cli.WriteDocuments(os.Stdout, response, format); err != nil {
		fail("Output", err)
	}
}

func runCount() {
	args := os.Args[2:]
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	_ = fs.Parse(args)

	ctx, cancel := requestContext()
	defer cancel()
	n, err := cf.client().Count(ctx)
	if err != nil {
		fail("Count", err)
	}
	if cf.format() == cli.OutputJSON {
		_ = json.NewEncoder(os.Stdout).Encode(&models.CountResponse{Count: n})
		return
	}
	fmt.Println(n)
}

func runGet() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Println("Usage: docstore get [flags] <document-id>")
		os.Exit(1)
	}
	format := cf.format()

	ctx, cancel := requestContext()
	defer cancel()
	doc, err := cf.client().Get(ctx, fs.Arg(0))
	if err != nil {
		fail("Get", err)
	}
	if err := cli.WriteDocuments(os.Stdout, &models.FilterResponse{Documents: []*models.Document{doc}, Total: 1}, format); err != nil {
		fail("Output", err)
	}
}

// collectDocuments extracts every supported file under paths. Directories
// are walked recursively and filtered by extensions.
func collectDocuments(paths []string, extensions []string) ([]*models.Document, error) {
	extractor := extract.NewExtractor()
	var docs []*models.Document
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		files := []string{p}
		if info.IsDir() {
			files, err = indexer.ListFiles(p, extensions)
			if err != nil {
				return nil, err
			}
		}
		for _, f := range files {
			doc, err := indexer.LoadFile(extractor, f)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func runLoad() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	policy := fs.String("policy", "", "duplicate policy: skip, overwrite, or fail (empty = server default)")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Usage: docstore load [flags] <file-or-directory>...")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*cf.config)
	if err != nil {
		fail("Load config", err)
	}
	docs, err := collectDocuments(fs.Args(), cfg.Watch.Extensions)
	if err != nil {
		fail("Load", err)
	}
	if len(docs) == 0 {
		fmt.Println("No supported files found")
		return
	}

	ctx, cancel := requestContext()
	defer cancel()
	resp, err := cf.client().Write(ctx, docs, *policy)
	if err != nil {
		fail("Load", err)
	}
	fmt.Printf("Wrote %d of %d document(s) (policy %s)\n", resp.Written, len(docs), resp.Policy)
	for _, d := range docs {
		fmt.Printf("  %s  %s\n", d.ID, filepath.Base(d.Metadata["source_path"].String()))
	}
}

func runDelete() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("Usage: docstore delete [flags] <document-id>...")
		os.Exit(1)
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := cf.client().Delete(ctx, fs.Args()); err != nil {
		fail("Deletion", err)
	}
	fmt.Printf("Deleted %d document(s)\n", fs.NArg())
}

func runStatus() {
	args := os.Args[2:]
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cf := newClientFlags(fs, args)
	_ = fs.Parse(args)

	format := cf.format()
	ctx, cancel := requestContext()
	defer cancel()
	status, err := cf.client().Status(ctx)
	if err != nil {
		fail("Status", err)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Printf("documents:  %v\n", status["documents"])
	if cfg, ok := status["config"].(map[string]any); ok {
		fmt.Println()
		fmt.Println("# configuration")
		for _, key := range []string{"bm25_algorithm", "bm25_tokenization_regex", "bm25_parameters", "duplicate_policy", "default_top_k", "max_top_k", "scale_score", "watch_directories"} {
			if v, ok := cfg[key]; ok {
				fmt.Printf("%-24s %v\n", key+":", v)
			}
		}
	}
}
