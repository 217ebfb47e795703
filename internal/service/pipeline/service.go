// Package pipeline drives one end-to-end integration run: file discovery,
// external transformation, referential-integrity validation, and the
// transactional replace-and-load, always finishing with run registration.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"barrio-etl/internal/config"
	"barrio-etl/internal/domain"
	"barrio-etl/internal/frame"
	"barrio-etl/internal/resolve"
	"barrio-etl/internal/store"
	"barrio-etl/internal/transform"
	"barrio-etl/internal/validate"
)

// registerTimeout bounds run registration, which must succeed even when the
// caller's context is already dead.
const registerTimeout = 30 * time.Second

// Service orchestrates pipeline runs. It is single-threaded: one invocation
// runs to completion before returning, and callers serialize concurrent
// invocations against the same store.
type Service struct {
	cfg        *config.Config
	datasets   []domain.DatasetSpec
	transforms *transform.Registry
	runs       domain.RunRepository
	strategy   validate.Strategy
	logger     *slog.Logger
}

// New creates a pipeline service. Neither the analytics store nor the file
// resolver is held here: the store is a scoped resource opened when the run
// needs it and closed on every exit path, and the resolver re-reads the
// manifest on each invocation.
func New(
	cfg *config.Config,
	datasets []domain.DatasetSpec,
	transforms *transform.Registry,
	runs domain.RunRepository,
	strategy validate.Strategy,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		datasets:   datasets,
		transforms: transforms,
		runs:       runs,
		strategy:   strategy,
		logger:     logger,
	}
}

// Run executes one pipeline invocation and always appends exactly one run
// record, whatever the outcome. On failure the original error is returned
// after registration — the record is a side effect of failure handling, not
// a substitute for propagating it.
func (s *Service) Run(ctx context.Context, trigger string) (*domain.ETLRun, error) {
	started := time.Now()
	runID := domain.NewRunID(started)
	logger := s.logger.With("run_id", runID)

	params := map[string]string{
		"raw_base_dir":  s.cfg.RawBaseDir,
		"processed_dir": s.cfg.ProcessedDir,
	}

	logger.Info("pipeline run starting", "trigger", trigger, "strategy", string(s.strategy))
	runErr := s.execute(ctx, logger, params)

	run := &domain.ETLRun{
		RunID:       runID,
		TriggerType: trigger,
		Parameters:  params,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
	params["finished_at"] = run.FinishedAt.UTC().Format(time.RFC3339)
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		msg := runErr.Error()
		run.ErrorMessage = &msg
		params["error"] = msg
	} else {
		run.Status = domain.RunStatusSuccess
	}

	// Registration must survive even very early failures and a dead caller
	// context, so it gets its own context.
	regCtx, cancel := context.WithTimeout(context.Background(), registerTimeout)
	defer cancel()
	if regErr := s.runs.Insert(regCtx, run); regErr != nil {
		if runErr != nil {
			// Never mask the pipeline error with the registration error.
			logger.Error("failed to register failed run", "error", regErr)
			return run, runErr
		}
		return run, fmt.Errorf("register run: %w", regErr)
	}

	if runErr != nil {
		logger.Error("pipeline run failed", "error", runErr)
		return run, runErr
	}
	logger.Info("pipeline run succeeded", "duration", run.FinishedAt.Sub(run.StartedAt).String())
	return run, nil
}

// execute drives DISCOVER through LOAD. Any error aborts the remaining
// stages; panics in collaborator transforms are converted to errors so run
// registration still happens.
func (s *Service) execute(ctx context.Context, logger *slog.Logger, params map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Error("pipeline run panicked", "error", err)
		}
	}()

	// DISCOVER + EXTERNAL_TRANSFORM
	frames, err := s.discoverAndTransform(logger, params)
	if err != nil {
		return err
	}

	// VALIDATE
	dimSpec := s.dimensionSpec()
	dimFrame := frames[dimSpec.Name]
	if dimFrame == nil || dimFrame.Empty() {
		return domain.ErrValidation("dimension dataset %q produced no rows", dimSpec.Name)
	}

	factSpecs := s.factSpecs()
	tables := make([]validate.FactTable, len(factSpecs))
	for i, spec := range factSpecs {
		tables[i] = validate.FactTable{
			Name:     spec.Table,
			FKColumn: spec.FKColumn,
			Frame:    frames[spec.Name],
		}
	}

	outputs, results, err := validate.AllFactTables(dimFrame, dimSpec.KeyColumn, tables, s.strategy)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.IsValid() {
			continue
		}
		logger.Warn("fact table has dangling foreign keys",
			"table", res.TableName,
			"invalid_records", res.InvalidRecords,
			"total_records", res.TotalRecords,
			"pct_invalid", fmt.Sprintf("%.2f", res.PctInvalid()),
		)
		params["invalid_"+res.TableName] = fmt.Sprintf("%d", res.InvalidRecords)
	}

	// ENSURE_SCHEMA + TRUNCATE + LOAD
	st, err := store.Open(s.cfg.DuckDBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	dimLoad, factLoads, err := s.buildLoads(dimSpec, dimFrame, factSpecs, outputs)
	if err != nil {
		return err
	}

	defs := make([]store.TableDef, 0, len(factLoads)+1)
	defs = append(defs, dimLoad.Def)
	for _, f := range factLoads {
		defs = append(defs, f.Def)
	}
	if err := st.EnsureSchema(ctx, defs); err != nil {
		return err
	}

	counts, err := st.Replace(ctx, dimLoad, factLoads)
	if err != nil {
		return err
	}
	for table, n := range counts {
		params["rows_"+table] = fmt.Sprintf("%d", n)
	}
	return nil
}

// discoverAndTransform resolves every dataset and runs its transform.
// A missing required dataset is fatal; a missing optional dataset leaves a
// nil frame, which downstream stages treat as an absent-but-expected state.
func (s *Service) discoverAndTransform(logger *slog.Logger, params map[string]string) (map[string]*frame.Frame, error) {
	frames := make(map[string]*frame.Frame, len(s.datasets))
	resolver := resolve.NewResolver(s.cfg.RawBaseDir, logger)
	loadedAt := time.Now()

	for _, spec := range s.datasets {
		path, ok := resolver.Resolve(spec.LogicalType, spec.Source, spec.GlobPattern)
		if !ok {
			if spec.Required {
				return nil, domain.ErrNotFound("no %s file found under %s", spec.Name, s.cfg.RawBaseDir)
			}
			logger.Warn("optional dataset missing, continuing without it", "dataset", spec.Name)
			frames[spec.Name] = nil
			continue
		}
		params["file_"+spec.Name] = filepath.Base(path)

		raw, err := frame.ReadCSV(path)
		if err != nil {
			return nil, err
		}

		entry, err := s.transforms.Get(spec.Name)
		if err != nil {
			return nil, err
		}
		normalized, err := entry.Func(raw, transform.Meta{
			Dataset:      spec.Name,
			ResolvedPath: path,
			LoadedAt:     loadedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", spec.Name, err)
		}
		frames[spec.Name] = normalized
		logger.Info("dataset transformed", "dataset", spec.Name, "file", filepath.Base(path), "rows", normalized.NumRows())
	}
	return frames, nil
}

// buildLoads pairs every target table with its (possibly nil) validated
// frame and declared column set.
func (s *Service) buildLoads(dimSpec domain.DatasetSpec, dimFrame *frame.Frame,
	factSpecs []domain.DatasetSpec, outputs []*frame.Frame) (store.Load, []store.Load, error) {

	dimEntry, err := s.transforms.Get(dimSpec.Name)
	if err != nil {
		return store.Load{}, nil, err
	}
	dimLoad := store.Load{
		Def:   store.TableDef{Name: dimSpec.Table, Columns: dimEntry.Columns},
		Frame: dimFrame,
	}

	factLoads := make([]store.Load, len(factSpecs))
	for i, spec := range factSpecs {
		entry, err := s.transforms.Get(spec.Name)
		if err != nil {
			return store.Load{}, nil, err
		}
		factLoads[i] = store.Load{
			Def:   store.TableDef{Name: spec.Table, Columns: entry.Columns},
			Frame: outputs[i],
		}
	}
	return dimLoad, factLoads, nil
}

func (s *Service) dimensionSpec() domain.DatasetSpec {
	for _, spec := range s.datasets {
		if spec.Role == domain.DatasetRoleDimension {
			return spec
		}
	}
	// LoadDatasets guarantees exactly one dimension.
	return domain.DatasetSpec{}
}

func (s *Service) factSpecs() []domain.DatasetSpec {
	specs := make([]domain.DatasetSpec, 0, len(s.datasets))
	for _, spec := range s.datasets {
		if spec.Role == domain.DatasetRoleFact {
			specs = append(specs, spec)
		}
	}
	return specs
}
