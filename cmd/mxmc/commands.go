package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mxmc"
	"github.com/hupe1980/mxmc/blobstore"
	miniostore "github.com/hupe1980/mxmc/blobstore/minio"
	s3store "github.com/hupe1980/mxmc/blobstore/s3"
	"github.com/hupe1980/mxmc/catalog"
	"github.com/hupe1980/mxmc/catalog/dynamo"
)

type flags struct {
	configPath string
	storeDir   string
	prefix     string
	output     string
	logLevel   string
	jsonLogs   bool

	s3Bucket string
	s3Region string

	minioEndpoint  string
	minioBucket    string
	minioAccessKey string
	minioSecretKey string
	minioSecure    bool

	dynamoTable string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "mxmc",
		Short:         "Optimal sample allocation for multi-fidelity Monte Carlo",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "mxmc.yaml", "problem file")
	pf.StringVar(&f.storeDir, "store", "", "directory for allocation files (overrides store.dir)")
	pf.StringVar(&f.prefix, "prefix", "", "key prefix for remote stores")
	pf.StringVarP(&f.output, "output", "o", "text", "output format: text or yaml")
	pf.StringVar(&f.logLevel, "log-level", "warn", "log level")
	pf.BoolVar(&f.jsonLogs, "json-logs", false, "emit JSON logs")
	pf.StringVar(&f.s3Bucket, "s3-bucket", "", "store allocations in this S3 bucket")
	pf.StringVar(&f.s3Region, "s3-region", "", "S3 region")
	pf.StringVar(&f.minioEndpoint, "minio-endpoint", "", "store allocations in MinIO at this endpoint")
	pf.StringVar(&f.minioBucket, "minio-bucket", "", "MinIO bucket")
	pf.StringVar(&f.minioAccessKey, "minio-access-key", "", "MinIO access key")
	pf.StringVar(&f.minioSecretKey, "minio-secret-key", "", "MinIO secret key")
	pf.BoolVar(&f.minioSecure, "minio-secure", false, "use TLS for MinIO")
	pf.StringVar(&f.dynamoTable, "dynamo-table", "", "record results in this DynamoDB table")

	root.AddCommand(newOptimizeCmd(f), newSweepCmd(f), newEntriesCmd(f), newMethodsCmd())
	return root
}

func newOptimizeCmd(f *flags) *cobra.Command {
	var target float64
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Optimize the allocation for one target cost",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if target <= 0 {
				return fmt.Errorf("--target must be positive")
			}
			study, err := openStudy(cmd.Context(), f)
			if err != nil {
				return err
			}
			res, err := study.Optimize(cmd.Context(), target)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), f.output, study, []float64{target}, []*mxmc.Result{res})
		},
	}
	cmd.Flags().Float64VarP(&target, "target", "t", 0, "target cost")
	return cmd
}

func newSweepCmd(f *flags) *cobra.Command {
	var targets []float64
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Optimize allocations for several target costs concurrently",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f.configPath)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				targets = cfg.Targets
			}
			if len(targets) == 0 {
				return fmt.Errorf("no target costs: pass --targets or set targets in %s", f.configPath)
			}
			study, err := newStudy(cmd.Context(), f, cfg)
			if err != nil {
				return err
			}
			results, err := study.Sweep(cmd.Context(), targets)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), f.output, study, targets, results)
		},
	}
	cmd.Flags().Float64SliceVar(&targets, "targets", nil, "target costs (default: targets from the problem file)")
	return cmd
}

func newEntriesCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "entries",
		Short: "List recorded results of the study",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.dynamoTable == "" {
				return fmt.Errorf("entries needs --dynamo-table")
			}
			study, err := openStudy(cmd.Context(), f)
			if err != nil {
				return err
			}
			entries, err := study.Entries(cmd.Context())
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), f.output, entries)
		},
	}
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the supported methods",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, m := range mxmc.Methods() {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
		},
	}
}

func openStudy(ctx context.Context, f *flags) (*mxmc.Study, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	return newStudy(ctx, f, cfg)
}

func newStudy(ctx context.Context, f *flags, cfg *Config) (*mxmc.Study, error) {
	p, err := cfg.problem()
	if err != nil {
		return nil, err
	}
	compression, err := cfg.compression()
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := mxmc.NewTextLogger(level)
	if f.jsonLogs {
		logger = mxmc.NewJSONLogger(level)
	}

	opts := []mxmc.Option{
		mxmc.WithLogger(logger),
		mxmc.WithCompression(compression),
	}
	if cfg.Workers > 0 {
		opts = append(opts, mxmc.WithMaxWorkers(cfg.Workers))
	}
	if s, ok := cfg.solverSettings(); ok {
		opts = append(opts, mxmc.WithSolverSettings(s))
	}

	store, err := openStore(ctx, f, cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, mxmc.WithBlobStore(store))
	}
	if f.dynamoTable != "" {
		cat, err := dynamo.New(ctx, f.dynamoTable)
		if err != nil {
			return nil, fmt.Errorf("dynamodb catalog: %w", err)
		}
		opts = append(opts, mxmc.WithCatalog(cat))
	}

	return mxmc.NewStudy(cfg.Name, cfg.Method, p, opts...)
}

func openStore(ctx context.Context, f *flags, cfg *Config) (blobstore.BlobStore, error) {
	switch {
	case f.s3Bucket != "":
		var optFns []s3store.Option
		if f.prefix != "" {
			optFns = append(optFns, s3store.WithPrefix(f.prefix))
		}
		if f.s3Region != "" {
			optFns = append(optFns, s3store.WithRegion(f.s3Region))
		}
		return s3store.New(ctx, f.s3Bucket, optFns...)
	case f.minioEndpoint != "":
		if f.minioBucket == "" {
			return nil, fmt.Errorf("--minio-bucket is required with --minio-endpoint")
		}
		client, err := minio.New(f.minioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(f.minioAccessKey, f.minioSecretKey, ""),
			Secure: f.minioSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, f.minioBucket, f.prefix), nil
	}

	dir := cfg.Store.Dir
	if f.storeDir != "" {
		dir = f.storeDir
	}
	if dir == "" {
		return nil, nil
	}
	return blobstore.NewLocalStore(dir), nil
}

type resultView struct {
	TargetCost float64 `yaml:"target_cost"`
	Cost       float64 `yaml:"cost"`
	Variance   float64 `yaml:"variance"`
	Feasible   bool    `yaml:"feasible"`
	Allocation [][]int `yaml:"allocation,flow"`
	Blob       string  `yaml:"blob,omitempty"`
}

func writeResults(w io.Writer, format string, study *mxmc.Study, targets []float64, results []*mxmc.Result) error {
	views := make([]resultView, len(results))
	for i, res := range results {
		views[i] = resultView{
			TargetCost: targets[i],
			Cost:       res.Cost,
			Variance:   res.Variance,
			Feasible:   res.Valid(),
			Allocation: res.Allocation.Compressed(),
		}
		if res.Valid() && study.Persists() {
			views[i].Blob = study.BlobName(targets[i])
		}
	}

	switch strings.ToLower(format) {
	case "yaml":
		return yaml.NewEncoder(w).Encode(views)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TARGET\tCOST\tVARIANCE\tFEASIBLE\tALLOCATION")
		for _, v := range views {
			fmt.Fprintf(tw, "%g\t%g\t%g\t%t\t%v\n", v.TargetCost, v.Cost, v.Variance, v.Feasible, v.Allocation)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeEntries(w io.Writer, format string, entries []catalog.Entry) error {
	best, ok := catalog.Best(entries)
	switch strings.ToLower(format) {
	case "yaml":
		return yaml.NewEncoder(w).Encode(entries)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TARGET\tMETHOD\tCOST\tVARIANCE\tBLOB\t")
		for _, e := range entries {
			mark := ""
			if ok && e.TargetCost == best.TargetCost && e.Method == best.Method {
				mark = "*"
			}
			fmt.Fprintf(tw, "%g\t%s\t%g\t%g\t%s\t%s\n", e.TargetCost, e.Method, e.Cost, e.Variance, e.Blob, mark)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
