package meadow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	goruntime "runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/store"
)

// rulesHashKey is the metadata key of the rules hash the store was last
// written with.
const rulesHashKey = "rules_hash"

// Checker checks files on disk, each in its own session, and optionally
// records the results in a SQLite store so unchanged files are not checked
// again.
type Checker struct {
	store    *store.Store // nil without a database
	logger   *zap.Logger
	session  []Option
	rules    *Rules
	link     string
	parallel int
	cacheKey string
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithSessionOptions applies opts to every session the Checker creates.
func WithSessionOptions(opts ...Option) CheckerOption {
	return func(c *Checker) {
		c.session = append(c.session, opts...)
	}
}

// WithRules adds rule script validators to every session.
func WithRules(r *Rules) CheckerOption {
	return func(c *Checker) {
		c.rules = r
	}
}

// WithLink checks every file as a child of a session holding the file at
// path, so declarations in path are visible to the checked files.
func WithLink(path string) CheckerOption {
	return func(c *Checker) {
		c.link = path
	}
}

// WithParallel sets how many files are checked at once. Zero or less means
// one per CPU.
func WithParallel(n int) CheckerOption {
	return func(c *Checker) {
		c.parallel = n
	}
}

// WithCheckerLogger sets the Checker's logger.
func WithCheckerLogger(l *zap.Logger) CheckerOption {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCacheKey folds key into the rules hash. Use it for settings that
// change diagnostics without changing the rule scripts, such as disabled
// validators.
func WithCacheKey(key string) CheckerOption {
	return func(c *Checker) {
		c.cacheKey = key
	}
}

// NewChecker creates a Checker. With a non-empty dbPath, results are stored
// in a SQLite database at dbPath and reused while neither a file (nor the
// linked file) nor the rules change.
func NewChecker(dbPath string, opts ...CheckerOption) (*Checker, error) {
	c := &Checker{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if dbPath == "" {
		return c, nil
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("meadow: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("meadow: migrate: %w", err)
	}
	c.store = s
	return c, nil
}

// Close releases the Checker's database resources.
func (c *Checker) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Store returns the underlying Store, or nil without a database.
func (c *Checker) Store() *store.Store {
	return c.store
}

// RulesHash identifies the validator configuration results are cached
// under.
func (c *Checker) RulesHash() string {
	var rules string
	if c.rules != nil {
		rules = c.rules.Hash
	}
	return store.ContentHash([]byte(rules), []byte(c.cacheKey))
}

// RulesChanged reports whether the store was last written with other rules.
// It is true for a new database and false without one.
func (c *Checker) RulesChanged() bool {
	if c.store == nil {
		return false
	}
	stored, err := c.store.GetMetadata(rulesHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != c.RulesHash()
}

// FileResult is the outcome of checking one file.
type FileResult struct {
	Path        string            `json:"path"`
	Cached      bool              `json:"cached,omitempty"`
	Diagnostics []lint.Diagnostic `json:"diagnostics"`
	Symbols     []Symbol          `json:"symbols,omitempty"`
}

// workItem holds everything a check worker needs.
type workItem struct {
	index  int
	path   string // as given
	key    string // absolute, as stored
	text   string
	hash   string
	fileID int64
	batch  *store.BatchedStore
}

// CheckFiles checks paths and returns one result per path in the same
// order. It runs in three phases:
//
//	Phase A (serial):   read files, reuse stored results for unchanged ones.
//	Phase B (parallel): validate the rest, each in its own session.
//	Phase C (serial):   replace the stored results of every checked file.
func (c *Checker) CheckFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	rulesHash := c.RulesHash()

	var linkText []byte
	if c.link != "" {
		var err error
		if linkText, err = os.ReadFile(c.link); err != nil {
			return nil, fmt.Errorf("meadow: read link: %w", err)
		}
	}

	// ---- Phase A: Serial preparation ----
	var items []*workItem
	for i, path := range paths {
		item, cached, err := c.prepareFile(path, linkText, rulesHash)
		if err != nil {
			return nil, fmt.Errorf("meadow: prepare %s: %w", path, err)
		}
		if cached != nil {
			cached.Path = path
			results[i] = *cached
			continue
		}
		item.index = i
		items = append(items, item)
	}

	// ---- Phase B: Parallel checks ----
	workers := c.parallel
	if workers <= 0 {
		workers = goruntime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.checkFile(item, string(linkText))
			if err != nil {
				return fmt.Errorf("meadow: check %s: %w", item.path, err)
			}
			results[item.index] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// ---- Phase C: Serial commit ----
	pruned := 0
	if c.store != nil {
		if len(items) > 0 {
			now := time.Now()
			for _, item := range items {
				f := &store.File{ID: item.fileID, Path: item.key, Hash: item.hash, RulesHash: rulesHash, LastChecked: now}
				if err := c.store.ReplaceFileResults(f, item.batch); err != nil {
					return nil, fmt.Errorf("meadow: commit %s: %w", item.path, err)
				}
			}
			if err := c.store.SetMetadata(rulesHashKey, rulesHash); err != nil {
				return nil, fmt.Errorf("meadow: %w", err)
			}
		}
		var err error
		if pruned, err = c.pruneVanished(); err != nil {
			return nil, fmt.Errorf("meadow: %w", err)
		}
	}

	c.logger.Info("check complete",
		zap.Int("files", len(paths)),
		zap.Int("checked", len(items)),
		zap.Int("cached", len(paths)-len(items)),
		zap.Int("pruned", pruned))
	return results, nil
}

// pruneVanished removes the stored results of files no longer on disk and
// returns how many it removed.
func (c *Checker) pruneVanished() (int, error) {
	files, err := c.store.Files()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if _, err := os.Stat(f.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := c.store.DeleteFile(f.ID); err != nil {
			return n, fmt.Errorf("prune %s: %w", f.Path, err)
		}
		c.logger.Debug("pruned vanished file", zap.String("path", f.Path))
		n++
	}
	return n, nil
}

// prepareFile reads path and either returns its stored results, when the
// file, the linked file and the rules are all unchanged, or a work item with
// a file row ready to receive new results.
func (c *Checker) prepareFile(path string, linkText []byte, rulesHash string) (*workItem, *FileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve path: %w", err)
	}
	item := &workItem{
		path: path,
		key:  key,
		text: string(content),
		hash: store.ContentHash(content, []byte(c.link), linkText),
	}
	if c.store == nil {
		return item, nil, nil
	}

	existing, err := c.store.FileByPath(key)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == item.hash && existing.RulesHash == rulesHash {
		res, err := c.storedResult(existing)
		if err != nil {
			return nil, nil, err
		}
		c.logger.Debug("unchanged", zap.String("path", key))
		return nil, res, nil
	}

	if existing != nil {
		item.fileID = existing.ID
	} else {
		// The hash stays empty until results are committed, so a failed
		// check is retried next time.
		if item.fileID, err = c.store.InsertFile(&store.File{Path: key}); err != nil {
			return nil, nil, fmt.Errorf("insert file: %w", err)
		}
	}
	item.batch = store.NewBatchedStore(c.store)
	return item, nil, nil
}

func (c *Checker) storedResult(f *store.File) (*FileResult, error) {
	diags, err := c.store.DiagnosticsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	syms, err := c.store.SymbolsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	res := &FileResult{Path: f.Path, Cached: true, Diagnostics: []lint.Diagnostic{}}
	for _, d := range diags {
		var sev lint.Severity
		if err := sev.UnmarshalText([]byte(d.Severity)); err != nil {
			return nil, fmt.Errorf("stored diagnostic: %w", err)
		}
		res.Diagnostics = append(res.Diagnostics, lint.Diagnostic{
			From:      d.Start,
			To:        d.End,
			Severity:  sev,
			Validator: d.Validator,
			Message:   d.Message,
		})
	}
	for _, sym := range syms {
		res.Symbols = append(res.Symbols, Symbol{
			Name:  sym.Name,
			Kind:  sym.Kind,
			Owner: sym.Owner,
			From:  sym.Start,
			To:    sym.End,
		})
	}
	return res, nil
}

// checkFile validates one work item in a fresh session, attached to a
// session holding the linked file when there is one.
func (c *Checker) checkFile(item *workItem, linkText string) (FileResult, error) {
	opts := append([]Option(nil), c.session...)
	if c.rules != nil {
		opts = append(opts, WithValidators(c.rules.Validators...))
	}

	s := NewSession(opts...)
	if c.link != "" {
		root := NewSession(opts...)
		root.SetVisible(false)
		root.SetText(linkText)
		if err := root.Attach(s); err != nil {
			return FileResult{}, err
		}
	}
	s.SetText(item.text)

	res := FileResult{
		Path:        item.path,
		Diagnostics: s.Diagnostics(),
		Symbols:     s.Symbols(),
	}
	if res.Diagnostics == nil {
		res.Diagnostics = []lint.Diagnostic{}
	}
	if item.batch != nil {
		if err := recordResults(item.batch, item.fileID, res); err != nil {
			return FileResult{}, err
		}
	}
	return res, nil
}

// recordResults writes a file's symbols and diagnostics to ds.
func recordResults(ds store.DataStore, fileID int64, res FileResult) error {
	for _, sym := range res.Symbols {
		_, err := ds.InsertSymbol(&store.Symbol{
			FileID:        fileID,
			Name:          sym.Name,
			Kind:          sym.Kind,
			Owner:         sym.Owner,
			Start:         sym.From,
			End:           sym.To,
			SignatureHash: store.ComputeSignatureHash(sym.Name, sym.Kind, sym.Owner, sym.Params),
		})
		if err != nil {
			return err
		}
	}
	for _, d := range res.Diagnostics {
		_, err := ds.InsertDiagnostic(&store.Diagnostic{
			FileID:    fileID,
			Validator: d.Validator,
			Severity:  d.Severity.String(),
			Start:     d.From,
			End:       d.To,
			Message:   d.Message,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
