package export

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/justapithecus/panelrt/config"
)

// Sink is the optional, fire-and-forget execution/artifact record
// writer. A nil *Sink is valid and a no-op — the engine façade never
// needs to check for export being configured before calling it.
type Sink struct {
	dataset lode.Dataset
}

// New builds a Sink from cfg. A nil cfg returns a nil *Sink (export
// disabled), matching the "nil means not configured" convention
// SPEC_FULL.md §10 documents for config.ExportConfig.
func New(cfg *config.ExportConfig) (*Sink, error) {
	if cfg == nil {
		return nil, nil
	}

	dataset := cfg.Dataset
	if dataset == "" {
		dataset = "panelrt"
	}

	var factory lode.StoreFactory
	switch cfg.Backend {
	case "", "fs":
		factory = lode.NewFSFactory(cfg.Path)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("export: s3 backend requires a bucket")
		}
		ctx := context.Background()
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("export: failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)
		prefix := cfg.Path
		factory = func() (lode.Store, error) {
			return lodes3.New(s3Client, lodes3.Config{Bucket: cfg.Bucket, Prefix: prefix})
		}
	default:
		return nil, fmt.Errorf("export: unknown backend %q", cfg.Backend)
	}

	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("day", "panel_id", "record_kind"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("export: failed to build dataset: %w", err)
	}

	return &Sink{dataset: ds}, nil
}

// WriteExecution persists one ExecutionRecord. Safe to call on a nil
// Sink (no-op), so the engine façade can call it unconditionally.
func (s *Sink) WriteExecution(ctx context.Context, r ExecutionRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.dataset.Write(ctx, []any{toExecutionRecordMap(r)}, lode.Metadata{})
	return err
}

// WriteArtifact persists one ArtifactRecord. Safe to call on a nil Sink.
func (s *Sink) WriteArtifact(ctx context.Context, r ArtifactRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.dataset.Write(ctx, []any{toArtifactRecordMap(r)}, lode.Metadata{})
	return err
}
